package reporting

import (
	"context"
	"sort"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/scan"
	"pairs-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	pairStore storage.PairStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(pairStore storage.PairStore) *Generator {
	return &Generator{
		pairStore: pairStore,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a universe report from the persisted pair state.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	pairs, err := g.pairStore.List(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		PairCount:   len(pairs),
	}
	r.Summary.TotalPairs = len(pairs)

	for _, p := range pairs {
		if p.ChosenWindow != nil {
			r.Summary.WithChosenWin++
		}
		if p.Grid != nil {
			r.Summary.WithGrid++
			r.Grids = append(r.Grids, gridRow(p))
		}
		if p.Base == nil {
			continue
		}
		switch p.Base.Status {
		case domain.StatusOK:
			r.Summary.Approved++
			r.ApprovedPairs = append(r.ApprovedPairs, pairRow(p))
		case domain.StatusRejected:
			r.Summary.Rejected++
			r.Rejections = append(r.Rejections, RejectionRow{
				PairID: p.PairID,
				Label:  p.Label(),
				Window: p.Base.Window,
				Reason: p.Base.Message,
			})
		case domain.StatusError:
			r.Summary.Errored++
			r.Errors = append(r.Errors, p.Label()+": "+p.Base.Message)
		}
	}

	sortApproved(pairs, r.ApprovedPairs)

	return r, nil
}

// WithHunt attaches a hunt outcome to the report.
func (r *Report) WithHunt(hr *domain.HuntResult) *Report {
	if hr == nil {
		return r
	}
	r.Hunt = &HuntSection{
		Found:          hr.Found,
		Window:         hr.Window,
		ScannedWindows: hr.ScannedWindows,
		ApprovedIDs:    hr.ApprovedIDs,
	}
	r.Errors = append(r.Errors, hr.Errors...)
	return r
}

func pairRow(p *domain.PairCandidate) PairRow {
	b := p.Base
	return PairRow{
		PairID:       p.PairID,
		Left:         p.Left,
		Right:        p.Right,
		Window:       b.Window,
		NSamples:     b.NSamples,
		ADFPct:       b.ADFPct,
		ZScore:       b.ZScore,
		Beta:         b.Beta,
		HalfLife:     b.HalfLife,
		Corr30:       b.Corr30,
		Corr60:       b.Corr60,
		ChosenWindow: p.ChosenWindow,
	}
}

func gridRow(p *domain.PairCandidate) GridRow {
	approved := 0
	for _, row := range p.Grid.Rows {
		if row.Approved() {
			approved++
		}
	}
	return GridRow{
		PairID:     p.PairID,
		Label:      p.Label(),
		Windows:    p.Grid.Windows,
		BestWindow: p.Grid.BestWindow,
		Approved:   approved,
	}
}

// sortApproved orders approved rows best-first using the grid tie-break.
func sortApproved(pairs []*domain.PairCandidate, rows []PairRow) {
	evals := make(map[string]*domain.WindowEvaluation, len(pairs))
	for _, p := range pairs {
		if p.Base != nil {
			evals[p.PairID] = &p.Base.WindowEvaluation
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return scan.Better(evals[rows[i].PairID], evals[rows[j].PairID])
	})
}
