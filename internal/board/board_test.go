package board

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bullpen/internal/output"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

const (
	predsCSV = `Game Date,Away Team,Home Team,Predicted_NRFI_Probability
2024-04-01,NYY,BOS,72
2024-04-01,LAD,SF,56
2024-04-01,CHC,STL,40
2024-04-02,SEA,HOU,66
2024-03-31,ATL,PHI,58
2024-03-31,MIA,NYM,
`
	resultsCSV = `Game Date,Away Team,Home Team,Actual_1st_Inning_Runs,Prediction_Result
04/01/2024,NYY,BOS,0,✅ HIT
2024-04-01,LAD,SF,2,❌ MISS
2024-03-31,ATL,PHI,0,✅ HIT
`
	inningsCSV = `Game Date,Away Team,Home Team,Predicted_Runs_1to5,Target_Line,Predicted_Over_4_5,Actual_Over_4_5,Actual_Runs_1to5
2024-04-01,NYY,BOS,6.5,4.5,Over,Over,7
2024-04-01,LAD,SF,3.8,4.5,Under,Over,6
2024-04-01,CHC,STL,4.6,4.5,Over,,Pending
2024-03-31,ATL,PHI,2.9,4.5,Under,Under,2
2024-04-02,SEA,HOU,6.0,4.5,Over,,Pending
`
)

func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		types.NRFIPredictionsFile:    predsCSV,
		types.NRFIResultsFile:        resultsCSV,
		types.InningsPredictionsFile: inningsCSV,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func loadBoard(t *testing.T) *Board {
	t.Helper()
	b, err := Load(context.Background(), writeData(t), "")
	require.NoError(t, err)
	return b
}

func TestLoadJoinsResults(t *testing.T) {
	b := loadBoard(t)
	require.Len(t, b.NRFI, 6)

	nyy := b.NRFI[0]
	assert.Equal(t, "2024-04-01", nyy.Date)
	assert.Equal(t, 5, nyy.Rating)
	assert.Equal(t, ResultHit, nyy.Result, "dates match after normalization")
	assert.Equal(t, "0", nyy.ActualRuns)

	assert.Equal(t, 0, b.NRFI[2].Rating)
	assert.Empty(t, b.NRFI[2].Result, "left join keeps unmatched predictions")

	assert.Nil(t, b.NRFI[5].Probability)
	assert.Equal(t, 0, b.NRFI[5].Rating)

	assert.Equal(t, []string{"2024-03-31", "2024-04-01", "2024-04-02"}, b.Dates())
}

func TestLoadMissingTable(t *testing.T) {
	dir := writeData(t)
	require.NoError(t, os.Remove(filepath.Join(dir, types.NRFIResultsFile)))

	_, err := Load(context.Background(), dir, "")
	require.Error(t, err)
	var nf *types.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, types.NRFIResultsFile, nf.Dataset)
}

func TestLoadRequiresGameColumns(t *testing.T) {
	dir := writeData(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, types.InningsPredictionsFile),
		[]byte("Game Date,Away\n2024-04-01,NYY\n"), 0o644))

	_, err := Load(context.Background(), dir, "")
	assert.ErrorIs(t, err, types.ErrSchemaMismatch)
}

func TestLoadFingerprintsArtifact(t *testing.T) {
	dir := writeData(t)
	blob := []byte("\x80\x04opaque model bytes")
	path := filepath.Join(dir, types.DefaultModelArtifact)
	require.NoError(t, os.WriteFile(path, blob, 0o444))

	b, err := Load(context.Background(), dir, path)
	require.NoError(t, err)
	require.NotNil(t, b.Model)

	sum := sha256.Sum256(blob)
	assert.Equal(t, hex.EncodeToString(sum[:]), b.Model.SHA256)
	assert.Equal(t, int64(len(blob)), b.Model.Size)
	assert.Len(t, b.Model.Short(), 12)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, blob, after, "artifact is never modified")
}

func TestLoadMissingArtifactIsNotFatal(t *testing.T) {
	dir := writeData(t)
	b, err := Load(context.Background(), dir, filepath.Join(dir, "absent.pkl"))
	require.NoError(t, err)
	assert.Nil(t, b.Model)
}

func TestNRFIView(t *testing.T) {
	b := loadBoard(t)

	all := b.NRFIView("2024-04-01", false)
	assert.Len(t, all.Games, 3)

	best := b.NRFIView("2024-04-01", true)
	require.Len(t, best.Games, 2)
	assert.Equal(t, "NYY", best.Games[0].Away)
	assert.Equal(t, "LAD", best.Games[1].Away)

	none := b.NRFIView("2023-01-01", false)
	assert.Empty(t, none.Games)
	assert.NotNil(t, none.Games)
}

func TestInningsView(t *testing.T) {
	b := loadBoard(t)
	v := b.InningsView("2024-04-01")

	assert.Len(t, v.Played, 2)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, "CHC", v.Pending[0].Away)
	assert.Equal(t, Accuracy{Correct: 1, Total: 2}, v.DailyAccuracy)
	assert.Equal(t, Accuracy{Correct: 2, Total: 3}, v.RollingAccuracy)
}

func TestInningsGameCorrect(t *testing.T) {
	tests := []struct {
		name      string
		predicted string
		actual    string
		want      bool
	}{
		{"over hit", SideOver, SideOver, true},
		{"under missed", SideUnder, SideOver, false},
		{"no outcome yet", SideOver, "", false},
		{"no prediction or outcome", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := InningsGame{Predicted: tt.predicted, Actual: tt.actual}
			assert.Equal(t, tt.want, g.Correct())
		})
	}
}

func TestInningsViewBlankSidesCountAsMisses(t *testing.T) {
	b := &Board{Innings: []InningsGame{
		{Date: "2024-04-01", Away: "A", Home: "B", Predicted: SideOver, Actual: SideOver, ActualRuns: "6"},
		{Date: "2024-04-01", Away: "C", Home: "D", ActualRuns: ""},
	}}
	v := b.InningsView("2024-04-01")
	assert.Equal(t, Accuracy{Correct: 1, Total: 2}, v.DailyAccuracy)
	assert.Equal(t, Accuracy{Correct: 1, Total: 2}, v.RollingAccuracy)
}

func TestBestPicksView(t *testing.T) {
	b := loadBoard(t)
	v := b.BestPicksView("2024-04-01")

	require.Len(t, v.NRFI, 2)
	assert.Equal(t, "NYY", v.NRFI[0].Away, "sorted by probability")
	assert.Equal(t, Record{Wins: 1, Losses: 1}, v.NRFIDaily)
	assert.Equal(t, Record{Wins: 2, Losses: 1}, v.NRFISeason)

	// NYY over by 2.0 rates 5, LAD under by 0.7 rates 3, CHC over by 0.1 rates 1.
	require.Len(t, v.Innings, 2)
	assert.Equal(t, "NYY", v.Innings[0].Away)
	assert.Equal(t, "LAD", v.Innings[1].Away)
	assert.Equal(t, Record{Wins: 1, Losses: 1}, v.InningsDaily)
	// ATL under by 1.6 rates 5 and hit on 03-31; SEA on 04-02 is after the date.
	assert.Equal(t, Record{Wins: 2, Losses: 1}, v.InningsSeason)
}

func TestViewsRenderAsTables(t *testing.T) {
	b := loadBoard(t)
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable)

	require.NoError(t, f.Format(&buf, b.BestPicksView("2024-04-01")))
	out := buf.String()
	assert.Contains(t, out, "NRFI Best Picks 2024-04-01")
	assert.Contains(t, out, "🔥🔥🔥🔥🔥")
	assert.Contains(t, out, "1-1 (50.00%)")

	buf.Reset()
	require.NoError(t, f.Format(&buf, b.InningsView("2030-01-01")))
	assert.Contains(t, buf.String(), "No played games for this date.")
}
