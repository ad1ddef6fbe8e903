package batch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/scoring"
)

// ErrRowProcessing marks a batch row that could not be scored.
// It is never fatal for the batch.
var ErrRowProcessing = errors.New("row processing error")

var (
	errMissingValue = errors.New("missing value")
	errNotNumeric   = errors.New("value is not numeric")
	errNotInteger   = errors.New("value is not a whole number")
)

// Row is one respondent of a batch as read from its source.
// Cells holds the raw answers to items 1..22 in order.
type Row struct {
	Source     string   // file name or other origin, may be empty
	Line       int      // line or spreadsheet row in Source, 0 if unknown
	Identifier string   // explicit identifier, empty when the source has none
	Cells      []string // raw item values
}

// RowFromValues builds a row from already-numeric answers
func RowFromValues(id string, values []int) Row {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = strconv.Itoa(v)
	}
	return Row{Identifier: id, Cells: cells}
}

// RowError reports a row that was excluded from the batch
type RowError struct {
	Position   int // 1-based position of the row in the batch input
	Source     string
	Line       int
	Identifier string
	Item       int // 1-based item that failed, 0 when not item specific
	Err        error
}

func (e *RowError) Error() string {
	var where strings.Builder
	fmt.Fprintf(&where, "row %d", e.Position)
	if e.Source != "" {
		where.WriteString(" (" + e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&where, ":%d", e.Line)
		}
		where.WriteString(")")
	}
	if e.Item > 0 {
		return fmt.Sprintf("%s: item %d: %v", where.String(), e.Item, e.Err)
	}
	return fmt.Sprintf("%s: %v", where.String(), e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRowProcessing
func (e *RowError) Is(target error) bool {
	return target == ErrRowProcessing
}

// parseRow converts raw cells into a response vector
func parseRow(r Row) (scoring.ResponseVector, int, error) {
	if len(r.Cells) != instrument.ItemCount {
		return scoring.ResponseVector{}, 0, &scoring.ResponseError{
			Kind:  scoring.ErrInvalidResponseShape,
			Count: len(r.Cells),
		}
	}

	values := make([]int, len(r.Cells))
	for i, cell := range r.Cells {
		v, err := parseCell(cell)
		if err != nil {
			return scoring.ResponseVector{}, i + 1, err
		}
		values[i] = v
	}

	v, err := scoring.NewResponseVector(values)
	if err != nil {
		var respErr *scoring.ResponseError
		if errors.As(err, &respErr) {
			return scoring.ResponseVector{}, respErr.Item, err
		}
		return scoring.ResponseVector{}, 0, err
	}
	return v, 0, nil
}

// parseCell accepts whole numbers, including spreadsheet renderings like "3.0"
func parseCell(cell string) (int, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, errMissingValue
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q", errNotInteger, s)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", scoring.ErrInvalidResponseValue, s)
	}
	return int(f), nil
}
