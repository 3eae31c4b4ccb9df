package domain

// HuntSource selects the universe a hunt evaluates.
type HuntSource string

const (
	// SourceAssets builds pairs from every combination of active assets.
	SourceAssets HuntSource = "assets"
	// SourceExistingPairs re-evaluates already-known pairs, never creating new ones.
	SourceExistingPairs HuntSource = "existing_pairs"
)

// HuntResult is the outcome of a descending-window hunt.
type HuntResult struct {
	Found          bool     `json:"found"`
	Window         *int     `json:"window,omitempty"` // winning window when Found
	ApprovedIDs    []string `json:"approved_ids"`
	Errors         []string `json:"errors"`
	ScannedWindows []int    `json:"scanned_windows"`
}

// BaseBuildResult is the outcome of one universe base build.
type BaseBuildResult struct {
	Created     int      `json:"created"` // approvals that created a new pair
	Updated     int      `json:"updated"` // approvals on already-known pairs
	ApprovedIDs []string `json:"approved_ids"`
	Errors      []string `json:"errors"`
}
