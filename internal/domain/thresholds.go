package domain

import "sort"

// Default metric parameters. Per-user configuration and explicit overrides
// take precedence; see scan.ResolveThresholds.
var DefaultWindows = []int{80, 90, 100, 110, 120, 130, 140, 150, 160, 170, 180}

const (
	DefaultBaseWindow   = 180
	DefaultBetaWindow   = 2
	DefaultADFMin       = 95.0 // percentage, p <= 0.05
	DefaultZScoreAbsMin = 2.0
	DefaultHalfLifeMax  = 5.0 // days
)

// Thresholds are the approval criteria applied to a WindowEvaluation.
// A nil HalfLifeMax disables the half-life filter.
type Thresholds struct {
	ADFMin       float64  `json:"adf_min" yaml:"adf_min"`
	ZScoreAbsMin float64  `json:"zscore_abs_min" yaml:"zscore_abs_min"`
	HalfLifeMax  *float64 `json:"half_life_max,omitempty" yaml:"half_life_max,omitempty"`
}

// DefaultThresholds returns the built-in approval criteria.
func DefaultThresholds() Thresholds {
	hl := DefaultHalfLifeMax
	return Thresholds{
		ADFMin:       DefaultADFMin,
		ZScoreAbsMin: DefaultZScoreAbsMin,
		HalfLifeMax:  &hl,
	}
}

// MetricsConfig carries one user's scan parameters. Zero or missing values
// fall back to the process defaults at resolution time.
type MetricsConfig struct {
	UserID       string   `json:"user_id"`
	Windows      []int    `json:"windows"`
	BaseWindow   int      `json:"base_window"`
	ADFMin       *float64 `json:"adf_min,omitempty"`
	ZScoreAbsMin *float64 `json:"zscore_abs_min,omitempty"`
	HalfLifeMax  *float64 `json:"half_life_max,omitempty"`
	BetaWindow   int      `json:"beta_window"`
}

// WindowsDescending returns the configured windows sorted largest first,
// falling back to the defaults when none are configured.
func (c *MetricsConfig) WindowsDescending() []int {
	src := c.Windows
	if len(src) == 0 {
		src = DefaultWindows
	}
	out := make([]int, len(src))
	copy(out, src)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
