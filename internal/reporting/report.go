package reporting

import "time"

// Report summarizes the current state of the pair universe: the latest base
// evaluations, window grids and the outcome of the run that produced them.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	PairCount   int

	// Universe Summary
	Summary UniverseSummary

	// Approved pairs, sorted by evaluation quality (best first)
	ApprovedPairs []PairRow

	// Latest rejections of known pairs
	Rejections []RejectionRow

	// Per-pair window grids
	Grids []GridRow

	// Hunt outcome, when the report follows a hunt run
	Hunt *HuntSection

	// Evaluation errors carried from the last run
	Errors []string
}

// UniverseSummary counts the universe by latest base status.
type UniverseSummary struct {
	TotalPairs    int
	Approved      int
	Rejected      int
	Errored       int
	WithGrid      int
	WithChosenWin int
}

// PairRow is one approved pair with its latest base metrics.
type PairRow struct {
	PairID       string
	Left         string
	Right        string
	Window       int
	NSamples     int
	ADFPct       *float64
	ZScore       *float64
	Beta         *float64
	HalfLife     *float64
	Corr30       *float64
	Corr60       *float64
	ChosenWindow *int
}

// RejectionRow is one known pair whose latest base evaluation failed.
type RejectionRow struct {
	PairID string
	Label  string
	Window int
	Reason string
}

// GridRow summarizes one pair's multi-window grid.
type GridRow struct {
	PairID     string
	Label      string
	Windows    []int
	BestWindow *int
	Approved   int
}

// HuntSection records the outcome of a descending-window hunt.
type HuntSection struct {
	Found          bool
	Window         *int
	ScannedWindows []int
	ApprovedIDs    []string
}
