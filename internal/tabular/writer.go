package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetResults = "Results"
	SheetSummary = "Summary"
	SheetErrors  = "Errors"
)

// ResultHeader is the column header of exported respondent results
var ResultHeader = []string{
	"id",
	"ee_score", "ee_tier",
	"dp_score", "dp_tier",
	"pa_score", "pa_tier",
	"risk",
}

// ContentType returns the MIME type of an export format
func ContentType(f discovery.Format) string {
	switch f {
	case discovery.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ExportFile writes res to path, picking the format from its extension.
// A CSV export gets a companion summary file next to it, see SummaryPath.
// It returns every file written.
func ExportFile(path string, res *batch.Result) ([]string, error) {
	format := discovery.DetectFormat(path)
	if format == discovery.FormatUnknown {
		return nil, fmt.Errorf("unsupported export type: %s. Use .csv or .xlsx", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := Export(&buf, format, res); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("error writing to file %s: %w", path, err)
	}
	if format != discovery.FormatCSV {
		return []string{path}, nil
	}

	summaryPath := SummaryPath(path)
	buf.Reset()
	if err := WriteSummaryCSV(&buf, res.Summary); err != nil {
		return nil, err
	}
	if err := os.WriteFile(summaryPath, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("error writing to file %s: %w", summaryPath, err)
	}
	return []string{path, summaryPath}, nil
}

// SummaryPath names the summary companion of a CSV export:
// results.csv becomes results_summary.csv
func SummaryPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_summary" + ext
}

// Export writes res in the given format
func Export(w io.Writer, format discovery.Format, res *batch.Result) error {
	switch format {
	case discovery.FormatCSV:
		return WriteCSV(w, res)
	case discovery.FormatXLSX:
		return WriteXLSX(w, res)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteCSV writes one line per scored respondent
func WriteCSV(w io.Writer, res *batch.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader); err != nil {
		return err
	}
	for _, r := range res.Results {
		if err := cw.Write(resultRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the summary in the layout of the Summary sheet.
// Undefined percentages are left blank.
func WriteSummaryCSV(w io.Writer, s batch.Summary) error {
	cw := csv.NewWriter(w)
	for _, row := range summaryRows(s) {
		record := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case string:
				record[i] = v
			case int:
				record[i] = strconv.Itoa(v)
			case float64:
				record[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func resultRecord(r scoring.RespondentResult) []string {
	return []string{
		r.ID,
		strconv.Itoa(r.EE.Score), string(r.EE.Tier),
		strconv.Itoa(r.DP.Score), string(r.DP.Tier),
		strconv.Itoa(r.PA.Score), string(r.PA.Tier),
		string(r.Risk),
	}
}

// WriteXLSX writes a workbook with result, summary and error sheets
func WriteXLSX(w io.Writer, res *batch.Result) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", SheetResults); err != nil {
		return fmt.Errorf("error creating workbook: %w", err)
	}
	for _, name := range []string{SheetSummary, SheetErrors} {
		if _, err := wb.NewSheet(name); err != nil {
			return fmt.Errorf("error creating sheet %s: %w", name, err)
		}
	}

	results := [][]any{stringsToAny(ResultHeader)}
	for _, r := range res.Results {
		results = append(results, []any{
			r.ID,
			r.EE.Score, string(r.EE.Tier),
			r.DP.Score, string(r.DP.Tier),
			r.PA.Score, string(r.PA.Tier),
			string(r.Risk),
		})
	}
	if err := writeRows(wb, SheetResults, results); err != nil {
		return err
	}

	if err := writeRows(wb, SheetSummary, summaryRows(res.Summary)); err != nil {
		return err
	}

	errorRows := [][]any{{"row", "source", "line", "id", "item", "error"}}
	for _, e := range res.Errors {
		errorRows = append(errorRows, []any{e.Position, e.Source, e.Line, e.Identifier, e.Item, e.Err.Error()})
	}
	if err := writeRows(wb, SheetErrors, errorRows); err != nil {
		return err
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// summaryRows flattens the summary into a long table; undefined percentages stay blank
func summaryRows(s batch.Summary) [][]any {
	rows := [][]any{{"dimension", "category", "count", "percent"}}
	for _, d := range s.Subscales {
		for _, tc := range d.Tiers {
			rows = append(rows, []any{d.Name, string(tc.Tier), tc.Count, percentCell(tc.Percent)})
		}
	}
	for _, rc := range s.Risks {
		rows = append(rows, []any{"Overall", string(rc.Risk), rc.Count, percentCell(rc.Percent)})
	}
	rows = append(rows,
		[]any{"Batch", "Scored", s.Scored, ""},
		[]any{"Batch", "Failed", s.Failed, ""},
	)
	return rows
}

func percentCell(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

func writeRows(wb *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
