package engine

import (
	"time"

	"tradescript/internal/strategy"
)

// Tuple identifies one coordination unit: a user's activated script on one
// timeframe.
type Tuple struct {
	UserID   uint64 `json:"user_id"`
	ScriptID uint64 `json:"script_id"`

	Timeframe string `json:"timeframe"`
}

const (
	StatusExecuted         = "EXECUTED"
	StatusExecutionFailed  = "EXECUTION_FAILED"
	StatusSkippedGated     = "SKIPPED_GATED"
	StatusSkippedNoSignal  = "SKIPPED_NO_SIGNAL"
	StatusSkippedNoBudget  = "SKIPPED_NO_BUDGET"
	StatusSkippedDuplicate = "SKIPPED_DUPLICATE"
	StatusDryRun           = "DRY_RUN"
	// StatusFailed covers pre-trade failures (market data down, bad script).
	// The tuple is retried on the next sweep.
	StatusFailed = "FAILED"
)

// Outcome is the terminal state of one coordinator run.
type Outcome struct {
	Tuple Tuple `json:"tuple"`

	Status  string                `json:"status"`
	Reason  string                `json:"reason,omitempty"`
	Signal  *strategy.TradeSignal `json:"signal,omitempty"`
	TradeID uint64                `json:"trade_id,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// SweepReport aggregates one full pass over all active tuples.
type SweepReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Total    int            `json:"total"`
	Executed int            `json:"executed"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"`
	ByStatus map[string]int `json:"by_status"`

	Outcomes []Outcome `json:"outcomes"`
}

func (r *SweepReport) add(o Outcome) {
	if r.ByStatus == nil {
		r.ByStatus = map[string]int{}
	}
	r.Total++
	r.ByStatus[o.Status]++
	switch o.Status {
	case StatusExecuted:
		r.Executed++
	case StatusExecutionFailed, StatusFailed:
		r.Failed++
	default:
		r.Skipped++
	}
	r.Outcomes = append(r.Outcomes, o)
}
