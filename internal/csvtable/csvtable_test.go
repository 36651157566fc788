package csvtable

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bullpen/pkg/types"
)

const nrfiCSV = `Game Date,Away Team,Home Team,Predicted_NRFI_Probability,Notes
2024-04-01T00:00:00,NYY,BOS,72.5,
2024-04-02,LAD,SF,48,rain delay
`

func TestReadInfersSchema(t *testing.T) {
	tbl, err := Read(strings.NewReader(nrfiCSV), Options{})
	require.NoError(t, err)

	require.Len(t, tbl.Schema, 5)
	assert.Equal(t, types.KindDate, tbl.Schema[0].Kind)
	assert.Equal(t, types.KindText, tbl.Schema[1].Kind)
	assert.Equal(t, types.KindNumber, tbl.Schema[3].Kind)
	assert.Equal(t, types.KindText, tbl.Schema[4].Kind)
	require.Equal(t, 2, tbl.Len())
}

func TestReadNormalizesDates(t *testing.T) {
	tbl, err := Read(strings.NewReader(nrfiCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, "2024-04-01", tbl.Rows[0][0].Raw)
	assert.Equal(t, "2024-04-02", tbl.Rows[1][0].Raw)
}

func TestReadEmptyCellsAreMissing(t *testing.T) {
	tbl, err := Read(strings.NewReader(nrfiCSV), Options{})
	require.NoError(t, err)
	assert.True(t, tbl.Rows[0][4].IsMissing())
	assert.Equal(t, "rain delay", tbl.Rows[1][4].Raw)
}

func TestReadConfiguredDateColumn(t *testing.T) {
	in := "Played,Team\n04/01/2024,NYY\n"
	tbl, err := Read(strings.NewReader(in), Options{DateColumns: []string{"Played"}})
	require.NoError(t, err)
	assert.Equal(t, types.KindDate, tbl.Schema[0].Kind)
	assert.Equal(t, "2024-04-01", tbl.Rows[0][0].Raw)
}

func TestReadInvalidDateReportsLine(t *testing.T) {
	in := "Game Date,Away Team\n2024-04-01,NYY\nsoon,BOS\n"
	_, err := Read(strings.NewReader(in), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidDate))
	assert.Contains(t, err.Error(), `column "Game Date" line 3`)
}

func TestReadKeepsTimestampText(t *testing.T) {
	in := "Game Date,Away Team,Home Team,Updated_At\n2024-04-01,A,B,2024-04-01T13:05:00\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, types.KindText, tbl.Schema[3].Kind)

	out, err := Encode(tbl)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestReadNameContainingDateIsText(t *testing.T) {
	in := "Game Date,Candidate,Validated\n2024-04-01,Smith,yes\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, types.KindText, tbl.Schema[1].Kind)
	assert.Equal(t, "Smith", tbl.Rows[0][1].Raw)
	assert.Equal(t, "yes", tbl.Rows[0][2].Raw)
}

func TestReadMixedColumnIsText(t *testing.T) {
	in := "Actual_Runs_1to5,Target_Line\n3,4.5\nPending,4.5\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, types.KindText, tbl.Schema[0].Kind)
	assert.Equal(t, types.KindNumber, tbl.Schema[1].Kind)
}

func TestReadHeaderOnly(t *testing.T) {
	tbl, err := Read(strings.NewReader("Game Date,Away Team,Home Team\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"Game Date", "Away Team", "Home Team"}, tbl.Schema.Names())
}

func TestReadEmptyInput(t *testing.T) {
	tbl, err := Read(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, tbl.Schema)
	assert.True(t, tbl.Empty())
}

func TestReadCleansHeader(t *testing.T) {
	in := "\ufeffGame Date , Away Team\n2024-04-01,NYY\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Game Date", "Away Team"}, tbl.Schema.Names())
}

func TestReadDuplicateColumn(t *testing.T) {
	_, err := Read(strings.NewReader("a,b,a\n1,2,3\n"), Options{})
	assert.True(t, errors.Is(err, types.ErrDuplicateColumn))
}

func TestReadRaggedRowFails(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2\n3\n"), Options{})
	assert.Error(t, err)
}

func TestWriteRoundTripKeepsValues(t *testing.T) {
	tbl, err := Read(strings.NewReader(nrfiCSV), Options{})
	require.NoError(t, err)

	out, err := Encode(tbl)
	require.NoError(t, err)

	want := "Game Date,Away Team,Home Team,Predicted_NRFI_Probability,Notes\n" +
		"2024-04-01,NYY,BOS,72.5,\n" +
		"2024-04-02,LAD,SF,48,rain delay\n"
	assert.Equal(t, want, string(out))
}

func TestWriteQuotesCommas(t *testing.T) {
	tbl := types.NewTable(
		types.Schema{{Name: "Team", Kind: types.KindText}},
		types.Row{types.Text("St. Louis, MO")},
	)
	out, err := Encode(tbl)
	require.NoError(t, err)
	assert.Equal(t, "Team\n\"St. Louis, MO\"\n", string(out))
}

func TestLoadSourceMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")
	_, err := LoadSource(path, Options{})
	require.Error(t, err)

	var nf *types.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, path, nf.Path)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestLoadDestinationMissingIsEmpty(t *testing.T) {
	tbl, err := LoadDestination(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.Empty(t, tbl.Schema)
}

func TestLoadSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nrfi.csv")
	require.NoError(t, os.WriteFile(path, []byte(nrfiCSV), 0o644))

	tbl, err := LoadSource(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}
