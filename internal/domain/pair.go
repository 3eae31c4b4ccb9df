package domain

import (
	"errors"
	"strings"
)

// ErrSameInstrument is returned when a pair is built from one instrument.
var ErrSameInstrument = errors.New("pair legs must be distinct instruments")

// PairCandidate is an ordered, canonicalized tuple of two instruments plus
// the latest persisted evaluations. Left < Right always holds, so (A,B) and
// (B,A) are the same entity. Base and Grid are independent slots: writing
// one never erases the other.
type PairCandidate struct {
	PairID         string          // deterministic id, see pairid.ForPair
	Left           string          // lower ticker
	Right          string          // higher ticker
	BaseWindow     int             // window of the last base approval
	ChosenWindow   *int            // operator-selected trading window (nullable)
	Base           *BaseEvaluation // latest single-window evaluation
	Grid           *GridEvaluation // latest multi-window grid result
	CacheUpdatedAt int64           // last Base/Grid write timestamp (ms)
	CreatedAt      int64           // record creation timestamp (ms)
}

// CanonicalTickers orders two tickers into the stored (Left, Right) form.
// Returns ErrSameInstrument when they normalize to the same ticker.
func CanonicalTickers(a, b string) (left, right string, err error) {
	left = strings.ToUpper(strings.TrimSpace(a))
	right = strings.ToUpper(strings.TrimSpace(b))
	if left == right {
		return "", "", ErrSameInstrument
	}
	if left > right {
		left, right = right, left
	}
	return left, right, nil
}

// Label renders the pair for logs and progress events.
func (p *PairCandidate) Label() string {
	return p.Left + "x" + p.Right
}
