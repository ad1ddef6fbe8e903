// Package output renders scoring results for people (console, Markdown) and
// for machines (JSON).
package output

import (
	"fmt"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/google/uuid"
)

// Tool metadata stamped on every report
const (
	Tool    = "mbiscore"
	Version = "1.0.0"
)

// Report wraps a batch result with run metadata
type Report struct {
	RunID      string
	StartTime  time.Time
	Instrument string // e.g. "MBI-HSS 1.0"
	Sources    []string
	Result     *batch.Result
}

// NewReport stamps a batch result with a fresh run id
func NewReport(instrument string, sources []string, start time.Time, res *batch.Result) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		StartTime:  start,
		Instrument: instrument,
		Sources:    sources,
		Result:     res,
	}
}

// Formatter renders single and batch results
type Formatter interface {
	FormatRespondent(r scoring.RespondentResult) error
	FormatBatch(rep *Report) error
}

// FormatPercent renders a summary percentage, "n/a" when undefined
func FormatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *p)
}

func riskIcon(r scoring.Risk) string {
	switch r {
	case scoring.RiskHigh:
		return "✗"
	case scoring.RiskModerate:
		return "⚠"
	default:
		return "✓"
	}
}
