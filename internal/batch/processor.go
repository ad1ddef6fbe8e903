// Package batch scores many respondents at once. Bad rows are skipped and
// reported instead of aborting the batch, and every batch carries a summary
// of tier and risk distributions over the rows that scored.
package batch

import (
	"strconv"
	"strings"

	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/sourcegraph/conc/iter"
)

// Result is the outcome of one batch: scored respondents in input order,
// the rows that failed, and the summary over the scored subset.
type Result struct {
	Results []scoring.RespondentResult `json:"results"`
	Errors  []*RowError                `json:"-"`
	Summary Summary                    `json:"summary"`
}

// Processor applies an engine to every row of a batch
type Processor struct {
	engine      *scoring.Engine
	concurrency int
}

// NewProcessor creates a Processor. A concurrency above 1 scores rows on
// that many goroutines; output order is unaffected.
func NewProcessor(engine *scoring.Engine, concurrency int) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{engine: engine, concurrency: concurrency}
}

type indexedRow struct {
	position int
	row      Row
}

type outcome struct {
	result scoring.RespondentResult
	err    *RowError
}

// Process scores each row independently and summarizes the batch
func (p *Processor) Process(rows []Row) *Result {
	indexed := make([]indexedRow, len(rows))
	for i, r := range rows {
		indexed[i] = indexedRow{position: i + 1, row: r}
	}

	var outcomes []outcome
	if p.concurrency > 1 && len(rows) > 1 {
		mapper := iter.Mapper[indexedRow, outcome]{MaxGoroutines: p.concurrency}
		outcomes = mapper.Map(indexed, func(ir *indexedRow) outcome {
			return p.evaluate(ir.position, ir.row)
		})
	} else {
		outcomes = make([]outcome, len(indexed))
		for i := range indexed {
			outcomes[i] = p.evaluate(indexed[i].position, indexed[i].row)
		}
	}

	res := &Result{Results: make([]scoring.RespondentResult, 0, len(rows))}
	for _, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, o.err)
			continue
		}
		res.Results = append(res.Results, o.result)
	}
	res.Summary = Summarize(res.Results, len(res.Errors))
	return res
}

func (p *Processor) evaluate(position int, r Row) outcome {
	id := resolveIdentifier(position, r)
	v, item, err := parseRow(r)
	if err != nil {
		return outcome{err: &RowError{
			Position:   position,
			Source:     r.Source,
			Line:       r.Line,
			Identifier: id,
			Item:       item,
			Err:        err,
		}}
	}
	return outcome{result: p.engine.Evaluate(id, v)}
}

// resolveIdentifier prefers the explicit identifier, falling back to the row position
func resolveIdentifier(position int, r Row) string {
	if id := strings.TrimSpace(r.Identifier); id != "" {
		return id
	}
	return strconv.Itoa(position)
}
