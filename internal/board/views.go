package board

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mesh-intelligence/bullpen/internal/output"
)

// NRFIView lists the NRFI predictions of one date.
type NRFIView struct {
	Date     string     `json:"date" yaml:"date"`
	BestOnly bool       `json:"best_only" yaml:"best_only"`
	Model    *Artifact  `json:"model,omitempty" yaml:"model,omitempty"`
	Games    []NRFIGame `json:"games" yaml:"games"`
}

// InningsView splits the 1-5 inning predictions of one date into played and
// pending games and reports the model's accuracy.
type InningsView struct {
	Date            string        `json:"date" yaml:"date"`
	Played          []InningsGame `json:"played" yaml:"played"`
	Pending         []InningsGame `json:"pending" yaml:"pending"`
	DailyAccuracy   Accuracy      `json:"daily_accuracy" yaml:"daily_accuracy"`
	RollingAccuracy Accuracy      `json:"rolling_accuracy" yaml:"rolling_accuracy"`
}

// BestPicksView lists the best picks of one date with daily and
// season-to-date records.
type BestPicksView struct {
	Date          string        `json:"date" yaml:"date"`
	NRFI          []NRFIGame    `json:"nrfi" yaml:"nrfi"`
	NRFIDaily     Record        `json:"nrfi_daily" yaml:"nrfi_daily"`
	NRFISeason    Record        `json:"nrfi_season" yaml:"nrfi_season"`
	Innings       []InningsGame `json:"innings" yaml:"innings"`
	InningsDaily  Record        `json:"innings_daily" yaml:"innings_daily"`
	InningsSeason Record        `json:"innings_season" yaml:"innings_season"`
}

// NRFIView returns the NRFI games on date, optionally only best picks.
func (b *Board) NRFIView(date string, bestOnly bool) NRFIView {
	v := NRFIView{Date: date, BestOnly: bestOnly, Model: b.Model, Games: []NRFIGame{}}
	for _, g := range b.NRFI {
		if g.Date != date || (bestOnly && !IsBest(g.Rating)) {
			continue
		}
		v.Games = append(v.Games, g)
	}
	return v
}

// InningsView returns the 1-5 inning games on date. Rolling accuracy covers
// every played game in the table.
func (b *Board) InningsView(date string) InningsView {
	v := InningsView{Date: date, Played: []InningsGame{}, Pending: []InningsGame{}}
	for _, g := range b.Innings {
		if g.Played() {
			v.RollingAccuracy.Total++
			if g.Correct() {
				v.RollingAccuracy.Correct++
			}
		}
		if g.Date != date {
			continue
		}
		if g.Played() {
			v.Played = append(v.Played, g)
			v.DailyAccuracy.Total++
			if g.Correct() {
				v.DailyAccuracy.Correct++
			}
		} else {
			v.Pending = append(v.Pending, g)
		}
	}
	return v
}

// BestPicksView returns the best picks on date. NRFI picks are ordered by
// probability and 1-5 picks by confidence, both descending. Season records
// count decided best picks on or before date.
func (b *Board) BestPicksView(date string) BestPicksView {
	v := BestPicksView{Date: date, NRFI: []NRFIGame{}, Innings: []InningsGame{}}

	for _, g := range b.NRFI {
		if !IsBest(g.Rating) {
			continue
		}
		if g.Date == date {
			v.NRFI = append(v.NRFI, g)
		}
		if !g.Decided() {
			continue
		}
		if g.Date == date {
			tally(&v.NRFIDaily, g.Result == ResultHit)
		}
		if g.Date <= date {
			tally(&v.NRFISeason, g.Result == ResultHit)
		}
	}
	sort.SliceStable(v.NRFI, func(i, j int) bool {
		return prob(v.NRFI[i]) > prob(v.NRFI[j])
	})

	for _, g := range b.Innings {
		if !IsBest(g.Confidence) {
			continue
		}
		if g.Date == date {
			v.Innings = append(v.Innings, g)
		}
		if !g.Decided() {
			continue
		}
		if g.Date == date {
			tally(&v.InningsDaily, g.Correct())
		}
		if g.Date <= date {
			tally(&v.InningsSeason, g.Correct())
		}
	}
	sort.SliceStable(v.Innings, func(i, j int) bool {
		return v.Innings[i].Confidence > v.Innings[j].Confidence
	})
	return v
}

func tally(r *Record, win bool) {
	if win {
		r.Wins++
	} else {
		r.Losses++
	}
}

func prob(g NRFIGame) float64 {
	if g.Probability == nil {
		return -1
	}
	return *g.Probability
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

var (
	nrfiHeaders    = []string{"Away Team", "Home Team", "Fireballs", "NRFI Probability"}
	nrfiAlign      = []output.Align{output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignRight}
	inningsHeaders = []string{"Away Team", "Home Team", "Predicted Runs", "Target Line", "Pick", "Actual Runs", "Result", "Confidence"}
	bestInnHeaders = []string{"Away Team", "Home Team", "Confidence", "Predicted Runs", "Target Line"}
)

func nrfiRows(games []NRFIGame) [][]string {
	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{g.Away, g.Home, Fireballs(g.Rating), num(g.Probability)})
	}
	return rows
}

func inningsRows(games []InningsGame) [][]string {
	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{
			g.Away, g.Home, num(g.PredictedRuns), num(g.TargetLine),
			g.Predicted, g.ActualRuns, g.Actual, Fireballs(g.Confidence),
		})
	}
	return rows
}

// Tables implements output.Tabler.
func (v NRFIView) Tables() []output.Data {
	title := "NRFI Predictions " + v.Date
	if v.BestOnly {
		title = "NRFI Best Fireballs " + v.Date
	}
	if v.Model != nil {
		title += fmt.Sprintf("\nmodel %s (%d bytes, sha256 %s)", filepath.Base(v.Model.Path), v.Model.Size, v.Model.Short())
	}
	return []output.Data{{
		Title:   title,
		Headers: nrfiHeaders,
		Rows:    nrfiRows(v.Games),
		Align:   nrfiAlign,
		Empty:   "No NRFI predictions available for this date.",
	}}
}

// Tables implements output.Tabler.
func (v InningsView) Tables() []output.Data {
	return []output.Data{
		{
			Title:   "Played Games on " + v.Date,
			Headers: inningsHeaders,
			Rows:    inningsRows(v.Played),
			Empty:   "No played games for this date.",
		},
		{
			Title:   "Pending Games on " + v.Date,
			Headers: inningsHeaders,
			Rows:    inningsRows(v.Pending),
			Empty:   "No pending games for this date.",
		},
		{
			Title:   "Model Accuracy",
			Headers: []string{"Window", "Accuracy"},
			Rows: [][]string{
				{"Daily", v.DailyAccuracy.String()},
				{"Rolling", v.RollingAccuracy.String()},
			},
		},
	}
}

// Tables implements output.Tabler.
func (v BestPicksView) Tables() []output.Data {
	inn := make([][]string, 0, len(v.Innings))
	for _, g := range v.Innings {
		inn = append(inn, []string{g.Away, g.Home, Fireballs(g.Confidence), num(g.PredictedRuns), num(g.TargetLine)})
	}
	return []output.Data{
		{
			Title:   "NRFI Best Picks " + v.Date,
			Headers: nrfiHeaders,
			Rows:    nrfiRows(v.NRFI),
			Align:   nrfiAlign,
			Empty:   "No NRFI best picks for this date.",
		},
		{
			Title:   "1-5 Inning Best Picks " + v.Date,
			Headers: bestInnHeaders,
			Rows:    inn,
			Empty:   "No 1-5 inning best picks for this date.",
		},
		{
			Title:   "Records",
			Headers: []string{"Market", "Daily", "Season To Date"},
			Rows: [][]string{
				{"NRFI", v.NRFIDaily.String(), v.NRFISeason.String()},
				{"1-5 Innings", v.InningsDaily.String(), v.InningsSeason.String()},
			},
		},
	}
}
