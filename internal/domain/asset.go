package domain

// Asset represents one instrument of the research universe.
// Corresponds to the assets table in PostgreSQL.
type Asset struct {
	Ticker    string // exchange ticker, unique, canonical upper-case
	Name      string // human-readable company name (optional)
	Active    bool   // inactive assets are skipped by the universe builder
	CreatedAt int64  // record creation timestamp (ms)
}
