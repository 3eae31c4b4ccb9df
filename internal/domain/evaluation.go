package domain

// EvaluationStatus tags the outcome of evaluating one pair at one window.
type EvaluationStatus string

const (
	StatusOK       EvaluationStatus = "ok"
	StatusRejected EvaluationStatus = "reprovado"
	StatusError    EvaluationStatus = "erro"
	StatusPending  EvaluationStatus = "pendente"
)

// MinSamples is the floor below which the regression and the stationarity
// test are not trusted. A smaller aligned sample always fails approval.
const MinSamples = 60

// WindowEvaluation is the result of evaluating one pair at one window.
// Optional metrics are nil when the underlying computation had insufficient
// data or failed numerically.
type WindowEvaluation struct {
	Window    int              `json:"window"`
	ADFPct    *float64         `json:"adf_pct,omitempty"`    // (1 - p_value) * 100
	ADFPValue *float64         `json:"adf_pvalue,omitempty"` // raw stationarity p-value
	Beta      *float64         `json:"beta,omitempty"`       // hedge ratio
	ZScore    *float64         `json:"zscore,omitempty"`     // last standardized spread value
	HalfLife  *float64         `json:"half_life,omitempty"`  // mean-reversion half-life, days
	Corr30    *float64         `json:"corr30,omitempty"`     // 30-observation log-return correlation
	Corr60    *float64         `json:"corr60,omitempty"`     // 60-observation log-return correlation
	NSamples  int              `json:"n_samples"`
	Status    EvaluationStatus `json:"status"`
	Message   string           `json:"message"`
}

// Approved reports whether the row passed every threshold.
func (w *WindowEvaluation) Approved() bool {
	return w.Status == StatusOK
}

// Reject marks the row as failing approval for the given reason.
func (w *WindowEvaluation) Reject(reason string) {
	w.Status = StatusRejected
	w.Message = reason
}

// BaseEvaluation is the persisted single-window (Grid A) result of a pair.
type BaseEvaluation struct {
	WindowEvaluation
}

// GridEvaluation is the persisted multi-window (Grid B) result of a pair.
type GridEvaluation struct {
	Rows       []WindowEvaluation `json:"rows"`
	BestWindow *int               `json:"best_window,omitempty"`
	Windows    []int              `json:"windows"`
	Thresholds Thresholds         `json:"thresholds"`
}
