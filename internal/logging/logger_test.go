package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info().Str("dataset", "mlb_nrfi_predictions.csv").Int("rows", 12).Msg("reconciled")
	log.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "mlb_nrfi_predictions.csv", entry["dataset"])
	assert.Equal(t, float64(12), entry["rows"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewAutoFormatOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})
	log.Warn().Msg("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		verbose  bool
		quiet    bool
		env      string
		want     string
		warns    bool
	}{
		{name: "explicit wins", explicit: "error", verbose: true, want: "error"},
		{name: "invalid explicit falls back", explicit: "loud", want: "info", warns: true},
		{name: "verbose", verbose: true, want: "debug"},
		{name: "quiet", quiet: true, want: "warn"},
		{name: "conflict prefers quiet", verbose: true, quiet: true, want: "warn", warns: true},
		{name: "env", env: "debug", want: "debug"},
		{name: "default", want: "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			got, warning := ResolveLevel(tt.explicit, tt.verbose, tt.quiet)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warns, warning != "")
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf})
	ctx := WithLogger(context.Background(), &log)

	FromContext(ctx).Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	assert.Equal(t, &Nop, FromContext(context.Background()))
}
