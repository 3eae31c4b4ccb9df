package scan

import (
	"sort"

	"pairs-lab/internal/domain"
)

// Override is one layer of scan parameter overrides. Nil or invalid fields
// leave the lower-precedence value in place, so a bad configuration degrades
// to the defaults instead of failing the scan.
type Override struct {
	Windows      []int
	BaseWindow   int
	ADFMin       *float64
	ZScoreAbsMin *float64
	HalfLifeMax  *float64 // non-positive disables the half-life filter
	BetaWindow   int
}

// Params are fully resolved scan parameters.
type Params struct {
	Windows    []int
	BaseWindow int
	BetaWindow int
	Thresholds domain.Thresholds
}

// DefaultParams returns the built-in parameters.
func DefaultParams() Params {
	windows := make([]int, len(domain.DefaultWindows))
	copy(windows, domain.DefaultWindows)
	return Params{
		Windows:    windows,
		BaseWindow: domain.DefaultBaseWindow,
		BetaWindow: domain.DefaultBetaWindow,
		Thresholds: domain.DefaultThresholds(),
	}
}

// ResolveParams applies override layers over the built-in defaults in
// increasing precedence (process-wide, then per-user, then caller). Nil
// layers are skipped.
func ResolveParams(layers ...*Override) Params {
	p := DefaultParams()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		p.apply(layer)
	}
	return p
}

// FromConfig converts a user's stored configuration into an override layer.
func FromConfig(cfg *domain.MetricsConfig) *Override {
	if cfg == nil {
		return nil
	}
	return &Override{
		Windows:      cfg.Windows,
		BaseWindow:   cfg.BaseWindow,
		ADFMin:       cfg.ADFMin,
		ZScoreAbsMin: cfg.ZScoreAbsMin,
		HalfLifeMax:  cfg.HalfLifeMax,
		BetaWindow:   cfg.BetaWindow,
	}
}

func (p *Params) apply(o *Override) {
	if ws := validWindows(o.Windows); len(ws) > 0 {
		p.Windows = ws
	}
	if o.BaseWindow > 0 {
		p.BaseWindow = o.BaseWindow
	}
	if o.BetaWindow > 0 {
		p.BetaWindow = o.BetaWindow
	}
	if o.ADFMin != nil && *o.ADFMin > 0 && *o.ADFMin <= 100 {
		p.Thresholds.ADFMin = *o.ADFMin
	}
	if o.ZScoreAbsMin != nil && *o.ZScoreAbsMin > 0 {
		p.Thresholds.ZScoreAbsMin = *o.ZScoreAbsMin
	}
	if o.HalfLifeMax != nil {
		if *o.HalfLifeMax > 0 {
			v := *o.HalfLifeMax
			p.Thresholds.HalfLifeMax = &v
		} else {
			p.Thresholds.HalfLifeMax = nil
		}
	}
}

// WindowsDescending returns the resolved windows sorted largest first, the
// order the hunt walks them in.
func (p *Params) WindowsDescending() []int {
	out := make([]int, len(p.Windows))
	copy(out, p.Windows)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// validWindows drops non-positive and repeated entries. A window repeated in
// an override must not be evaluated twice per pair.
func validWindows(ws []int) []int {
	var out []int
	seen := make(map[int]bool, len(ws))
	for _, w := range ws {
		if w > 0 && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
