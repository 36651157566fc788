// Package board builds the dashboard views over the reconciled prediction
// tables: NRFI picks, 1-5 inning over/under picks, and best picks with their
// win/loss records.
package board

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"github.com/mesh-intelligence/bullpen/internal/csvtable"
	"github.com/mesh-intelligence/bullpen/internal/logging"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// Column names read from the prediction tables.
const (
	colDate          = "Game Date"
	colAway          = "Away Team"
	colHome          = "Home Team"
	colNRFIProb      = "Predicted_NRFI_Probability"
	colActualFirst   = "Actual_1st_Inning_Runs"
	colResult        = "Prediction_Result"
	colPredictedRuns = "Predicted_Runs_1to5"
	colTargetLine    = "Target_Line"
	colPredictedSide = "Predicted_Over_4_5"
	colActualSide    = "Actual_Over_4_5"
	colActualRuns    = "Actual_Runs_1to5"
)

// NRFIGame is one NRFI prediction joined with its result, if any.
type NRFIGame struct {
	Date        string   `json:"date" yaml:"date"`
	Away        string   `json:"away" yaml:"away"`
	Home        string   `json:"home" yaml:"home"`
	Probability *float64 `json:"probability,omitempty" yaml:"probability,omitempty"`
	Rating      int      `json:"rating" yaml:"rating"`
	ActualRuns  string   `json:"actual_runs,omitempty" yaml:"actual_runs,omitempty"`
	Result      string   `json:"result,omitempty" yaml:"result,omitempty"`
}

// Decided reports whether the game has a hit or miss result.
func (g NRFIGame) Decided() bool { return g.Result == ResultHit || g.Result == ResultMiss }

// InningsGame is one 1-5 inning over/under prediction.
type InningsGame struct {
	Date          string   `json:"date" yaml:"date"`
	Away          string   `json:"away" yaml:"away"`
	Home          string   `json:"home" yaml:"home"`
	PredictedRuns *float64 `json:"predicted_runs,omitempty" yaml:"predicted_runs,omitempty"`
	TargetLine    *float64 `json:"target_line,omitempty" yaml:"target_line,omitempty"`
	Predicted     string   `json:"predicted" yaml:"predicted"`
	Actual        string   `json:"actual,omitempty" yaml:"actual,omitempty"`
	ActualRuns    string   `json:"actual_runs,omitempty" yaml:"actual_runs,omitempty"`
	Confidence    int      `json:"confidence" yaml:"confidence"`
}

// Played reports whether the game has been played.
func (g InningsGame) Played() bool { return g.ActualRuns != PendingRuns }

// Decided reports whether the game has an over or under outcome.
func (g InningsGame) Decided() bool { return g.Actual == SideOver || g.Actual == SideUnder }

// Correct reports whether the predicted side matched the outcome. A game
// with no prediction is never correct.
func (g InningsGame) Correct() bool { return g.Predicted != "" && g.Predicted == g.Actual }

// Board holds the loaded prediction tables.
type Board struct {
	NRFI    []NRFIGame
	Innings []InningsGame
	Model   *Artifact
}

// Load reads the three prediction tables from dataDir and fingerprints the
// model artifact. A missing artifact is logged and leaves Model nil.
func Load(ctx context.Context, dataDir, artifactPath string) (*Board, error) {
	log := logging.FromContext(ctx)

	preds, err := loadTable(dataDir, types.NRFIPredictionsFile)
	if err != nil {
		return nil, err
	}
	results, err := loadTable(dataDir, types.NRFIResultsFile)
	if err != nil {
		return nil, err
	}
	innings, err := loadTable(dataDir, types.InningsPredictionsFile)
	if err != nil {
		return nil, err
	}

	nrfi, err := joinNRFI(preds, results)
	if err != nil {
		return nil, err
	}
	inn, err := inningsGames(innings)
	if err != nil {
		return nil, err
	}
	b := &Board{NRFI: nrfi, Innings: inn}

	if artifactPath != "" {
		a, err := Fingerprint(artifactPath)
		switch {
		case err == nil:
			b.Model = &a
		case errors.Is(err, types.ErrNotFound):
			log.Warn().Str("path", artifactPath).Msg("model artifact not found")
		default:
			return nil, err
		}
	}
	log.Debug().
		Int("nrfi_games", len(b.NRFI)).
		Int("innings_games", len(b.Innings)).
		Msg("board loaded")
	return b, nil
}

func loadTable(dataDir, name string) (*types.Table, error) {
	t, err := csvtable.LoadSource(filepath.Join(dataDir, name), csvtable.Options{})
	if err != nil {
		types.AttachDataset(err, name)
		return nil, err
	}
	return t, nil
}

func requireColumns(t *types.Table, name string, cols ...string) error {
	if t.Empty() && len(t.Schema) == 0 {
		return nil
	}
	if missing := t.Schema.Missing(cols...); len(missing) > 0 {
		return &types.SchemaMismatchError{
			Dataset:       name,
			Key:           types.MergeKey(cols),
			Missing:       missing,
			SourceColumns: t.Schema.Names(),
		}
	}
	return nil
}

// gameKey identifies a game across the NRFI tables.
func gameKey(t *types.Table, r types.Row) string {
	return t.Value(r, colDate).Canonical() + "\x1f" +
		t.Value(r, colAway).Canonical() + "\x1f" +
		t.Value(r, colHome).Canonical()
}

func floatPtr(v types.Value) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

// joinNRFI left-joins predictions with results on the game identity. When
// results repeat a game, the first one wins.
func joinNRFI(preds, results *types.Table) ([]NRFIGame, error) {
	if err := requireColumns(preds, types.NRFIPredictionsFile, types.CanonicalKey...); err != nil {
		return nil, err
	}
	if err := requireColumns(results, types.NRFIResultsFile, types.CanonicalKey...); err != nil {
		return nil, err
	}

	byGame := make(map[string]types.Row, results.Len())
	for _, r := range results.Rows {
		k := gameKey(results, r)
		if _, ok := byGame[k]; !ok {
			byGame[k] = r
		}
	}

	games := make([]NRFIGame, 0, preds.Len())
	for _, r := range preds.Rows {
		g := NRFIGame{
			Date:        preds.Value(r, colDate).String(),
			Away:        preds.Value(r, colAway).String(),
			Home:        preds.Value(r, colHome).String(),
			Probability: floatPtr(preds.Value(r, colNRFIProb)),
		}
		if g.Probability != nil {
			g.Rating = FireballRating(*g.Probability)
		}
		if res, ok := byGame[gameKey(preds, r)]; ok {
			g.ActualRuns = results.Value(res, colActualFirst).String()
			g.Result = results.Value(res, colResult).String()
		}
		games = append(games, g)
	}
	return games, nil
}

func inningsGames(t *types.Table) ([]InningsGame, error) {
	if err := requireColumns(t, types.InningsPredictionsFile, types.CanonicalKey...); err != nil {
		return nil, err
	}
	games := make([]InningsGame, 0, t.Len())
	for _, r := range t.Rows {
		g := InningsGame{
			Date:          t.Value(r, colDate).String(),
			Away:          t.Value(r, colAway).String(),
			Home:          t.Value(r, colHome).String(),
			PredictedRuns: floatPtr(t.Value(r, colPredictedRuns)),
			TargetLine:    floatPtr(t.Value(r, colTargetLine)),
			Predicted:     t.Value(r, colPredictedSide).String(),
			Actual:        t.Value(r, colActualSide).String(),
			ActualRuns:    t.Value(r, colActualRuns).String(),
			Confidence:    1,
		}
		if g.PredictedRuns != nil && g.TargetLine != nil {
			g.Confidence = Confidence(g.Predicted, *g.PredictedRuns, *g.TargetLine)
		}
		games = append(games, g)
	}
	return games, nil
}

// Dates returns the distinct NRFI game dates in ascending order.
func (b *Board) Dates() []string {
	seen := make(map[string]bool)
	var dates []string
	for _, g := range b.NRFI {
		if g.Date != "" && !seen[g.Date] {
			seen[g.Date] = true
			dates = append(dates, g.Date)
		}
	}
	sort.Strings(dates)
	return dates
}
