// Package tabular reads batch input tables (CSV, XLSX) into batch rows and
// writes batch results back out as downloadable tables.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/xuri/excelize/v2"
)

// DefaultIDColumns are the header names recognised as the identifier column
var DefaultIDColumns = []string{"id", "identifier", "respondent", "instância"}

// Options controls how input tables are mapped onto rows
type Options struct {
	IDColumns []string // candidate identifier headers, first match wins, case-insensitive
	Sheet     string   // XLSX sheet name, first sheet when empty
}

func (o Options) idColumns() []string {
	if len(o.IDColumns) == 0 {
		return DefaultIDColumns
	}
	return o.IDColumns
}

// ReadFile opens and reads one discovered input file
func ReadFile(f discovery.File, opts Options) ([]batch.Row, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", f.RelPath, err)
	}
	defer fh.Close()

	return Read(f.RelPath, fh, opts)
}

// Read parses a table, choosing the format from the name's extension
func Read(name string, r io.Reader, opts Options) ([]batch.Row, error) {
	switch discovery.DetectFormat(name) {
	case discovery.FormatCSV:
		return ReadCSV(name, r, opts)
	case discovery.FormatXLSX:
		return ReadXLSX(name, r, opts)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", name)
	}
}

// ReadCSV parses a comma- or semicolon-separated table with a header row
func ReadCSV(source string, r io.Reader, opts Options) ([]batch.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", source, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, instrument.ConfigErrorf("%s has no header row", source)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", source, err)
	}
	layout, err := newLayout(source, header, opts)
	if err != nil {
		return nil, err
	}

	var rows []batch.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot parse %s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		if row, ok := layout.row(record, line); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ReadXLSX parses the first (or the named) sheet of a workbook
func ReadXLSX(source string, r io.Reader, opts Options) ([]batch.Row, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot open workbook %s: %w", source, err)
	}
	defer wb.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, instrument.ConfigErrorf("%s has no sheets", source)
		}
		sheet = sheets[0]
	}

	records, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q of %s: %w", sheet, source, err)
	}
	if len(records) == 0 {
		return nil, instrument.ConfigErrorf("%s sheet %q has no header row", source, sheet)
	}

	layout, err := newLayout(source, records[0], opts)
	if err != nil {
		return nil, err
	}

	var rows []batch.Row
	for i, record := range records[1:] {
		if row, ok := layout.row(record, i+2); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// layout maps header columns onto item positions
type layout struct {
	source   string
	itemCols [instrument.ItemCount]int
	idCol    int
}

// newLayout checks the header schema: every item column 1..22 must be present
// exactly once. Other columns are ignored.
func newLayout(source string, header []string, opts Options) (*layout, error) {
	l := &layout{source: source, idCol: -1}
	for i := range l.itemCols {
		l.itemCols[i] = -1
	}

	var duplicates []string
	for col, name := range header {
		item, ok := itemNumber(name)
		if !ok {
			continue
		}
		if l.itemCols[item-1] >= 0 {
			duplicates = append(duplicates, strconv.Itoa(item))
			continue
		}
		l.itemCols[item-1] = col
	}

	var missing []string
	for i, col := range l.itemCols {
		if col < 0 {
			missing = append(missing, strconv.Itoa(i+1))
		}
	}
	if len(missing) > 0 || len(duplicates) > 0 {
		var details []string
		if len(missing) > 0 {
			details = append(details, "missing item columns "+strings.Join(missing, ", "))
		}
		if len(duplicates) > 0 {
			details = append(details, "duplicate item columns "+strings.Join(duplicates, ", "))
		}
		return nil, &instrument.ConfigurationError{
			Reason:  fmt.Sprintf("%s does not match the survey layout", source),
			Details: details,
		}
	}

	l.idCol = findIDColumn(header, opts.idColumns())
	return l, nil
}

// row maps one record; blank records are skipped
func (l *layout) row(record []string, line int) (batch.Row, bool) {
	if isBlank(record) {
		return batch.Row{}, false
	}
	row := batch.Row{
		Source: l.source,
		Line:   line,
		Cells:  make([]string, instrument.ItemCount),
	}
	for i, col := range l.itemCols {
		if col < len(record) {
			row.Cells[i] = record[col]
		}
	}
	if l.idCol >= 0 && l.idCol < len(record) {
		row.Identifier = strings.TrimSpace(record[l.idCol])
	}
	return row, true
}

// itemNumber recognises item headers such as "7", " 7 " or "7.0"
func itemNumber(name string) (int, bool) {
	s := strings.TrimSpace(name)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		n = int(f)
	}
	if n < 1 || n > instrument.ItemCount {
		return 0, false
	}
	return n, true
}

func findIDColumn(header []string, candidates []string) int {
	for _, candidate := range candidates {
		for col, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(candidate)) {
				return col
			}
		}
	}
	return -1
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks ';' when the header line has more semicolons than commas
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return ','
	}
	first := sc.Text()
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}
