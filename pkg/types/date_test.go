package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-04-01", "2024-04-01"},
		{"2024-04-01T00:00:00", "2024-04-01"},
		{"2024-04-01 00:00:00", "2024-04-01"},
		{"2024-04-01 13:05:00.250", "2024-04-01"},
		{"2024-04-01T23:30:00-04:00", "2024-04-01"},
		{"04/01/2024", "2024-04-01"},
		{"4/1/2024", "2024-04-01"},
		{"20240401", "2024-04-01"},
		{"  2024-04-01  ", "2024-04-01"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDateRejectsGarbage(t *testing.T) {
	_, err := NormalizeDate("opening day")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestIsDateColumn(t *testing.T) {
	assert.True(t, IsDateColumn("Game Date", nil))
	assert.True(t, IsDateColumn("game_date", nil))
	assert.True(t, IsDateColumn("Played", []string{"Played"}))
	assert.False(t, IsDateColumn("Away Team", nil))

	tests := []struct {
		name string
		want bool
	}{
		{"Date", true},
		{"GAME-DATE", true},
		{"Game  Date", true},
		{"Updated_At", false},
		{"Candidate", false},
		{"Validated", false},
		{"Last Update Date", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDateColumn(tt.name, nil))
		})
	}
}
