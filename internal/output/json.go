package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/scoring"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	w      io.Writer
	indent bool
}

// NewJSONFormatter creates a new JSONFormatter
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{w: w, indent: indent}
}

// JSONHeader contains report metadata
type JSONHeader struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	RunID      string `json:"run_id,omitempty"`
	Timestamp  string `json:"timestamp"`
	Instrument string `json:"instrument,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// JSONRespondent is one respondent with its advisory message
type JSONRespondent struct {
	scoring.RespondentResult
	Advisory string `json:"advisory"`
}

// JSONRowError describes a skipped batch row
type JSONRowError struct {
	Row     int    `json:"row"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id"`
	Item    int    `json:"item,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// JSONRespondentReport is a single-respondent report
type JSONRespondentReport struct {
	Header JSONHeader     `json:"header"`
	Result JSONRespondent `json:"result"`
}

// JSONBatchReport is a batch report
type JSONBatchReport struct {
	Header  JSONHeader       `json:"header"`
	Sources []string         `json:"sources,omitempty"`
	Summary batch.Summary    `json:"summary"`
	Results []JSONRespondent `json:"results"`
	Errors  []JSONRowError   `json:"errors"`
}

// NewJSONRespondent attaches the advisory message to a result
func NewJSONRespondent(r scoring.RespondentResult) JSONRespondent {
	return JSONRespondent{RespondentResult: r, Advisory: scoring.Advisory(r.Risk)}
}

// NewJSONBatchReport converts a report into its JSON shape
func NewJSONBatchReport(rep *Report) JSONBatchReport {
	out := JSONBatchReport{
		Header: JSONHeader{
			Tool:       Tool,
			Version:    Version,
			RunID:      rep.RunID,
			Timestamp:  time.Now().Format(time.RFC3339),
			Instrument: rep.Instrument,
		},
		Sources: rep.Sources,
		Summary: rep.Result.Summary,
		Results: make([]JSONRespondent, 0, len(rep.Result.Results)),
		Errors:  make([]JSONRowError, 0, len(rep.Result.Errors)),
	}
	if !rep.StartTime.IsZero() {
		out.Header.Duration = time.Since(rep.StartTime).Round(time.Millisecond).String()
	}
	for _, r := range rep.Result.Results {
		out.Results = append(out.Results, NewJSONRespondent(r))
	}
	for _, e := range rep.Result.Errors {
		out.Errors = append(out.Errors, JSONRowError{
			Row:     e.Position,
			Source:  e.Source,
			Line:    e.Line,
			ID:      e.Identifier,
			Item:    e.Item,
			Kind:    scoring.KindName(e.Err),
			Message: e.Error(),
		})
	}
	return out
}

// FormatRespondent writes a single-respondent report
func (f *JSONFormatter) FormatRespondent(r scoring.RespondentResult) error {
	return f.write(JSONRespondentReport{
		Header: JSONHeader{
			Tool:      Tool,
			Version:   Version,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Result: NewJSONRespondent(r),
	})
}

// FormatBatch writes a batch report
func (f *JSONFormatter) FormatBatch(rep *Report) error {
	return f.write(NewJSONBatchReport(rep))
}

func (f *JSONFormatter) write(v any) error {
	var jsonBytes []byte
	var err error
	if f.indent {
		jsonBytes, err = json.MarshalIndent(v, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if _, err := fmt.Fprintln(f.w, string(jsonBytes)); err != nil {
		return fmt.Errorf("error writing JSON: %w", err)
	}
	return nil
}
