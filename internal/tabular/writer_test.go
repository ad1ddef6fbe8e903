package tabular

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResult(t *testing.T) *batch.Result {
	t.Helper()
	engine := scoring.NewEngine(instrument.MustDefault())

	data := csvLine(",", append([]string{"id"}, itemHeader()...)...) +
		csvLine(",", append([]string{"ana"}, answers("3")...)...) +
		csvLine(",", append([]string{"bia"}, answers("0")...)...) +
		csvLine(",", append([]string{"bad"}, answers("9")...)...)

	rows, err := ReadCSV("team.csv", strings.NewReader(data), Options{})
	require.NoError(t, err)
	return batch.NewProcessor(engine, 1).Process(rows)
}

func TestWriteCSV(t *testing.T) {
	res := sampleResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ResultHeader, records[0])
	assert.Equal(t, []string{"ana", "27", "High", "15", "High", "24", "Low", "High Risk"}, records[1])
	assert.Equal(t, []string{"bia", "0", "Low", "0", "Low", "0", "Low", "Low Risk"}, records[2])
}

func TestWriteXLSX(t *testing.T) {
	res := sampleResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, res))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetResults, SheetSummary, SheetErrors}, wb.GetSheetList())

	results, err := wb.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, ResultHeader, results[0])
	assert.Equal(t, []string{"ana", "27", "High", "15", "High", "24", "Low", "High Risk"}, results[1])

	summary, err := wb.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"dimension", "category", "count", "percent"}, summary[0])
	assert.Equal(t, []string{"Emotional Exhaustion", "Low", "1", "50"}, summary[1])
	assert.Equal(t, []string{"Batch", "Failed", "1"}, summary[len(summary)-1])

	errs, err := wb.GetRows(SheetErrors)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"3", "team.csv", "4", "bad", "1"}, errs[1][:5])
	assert.Contains(t, errs[1][5], "invalid response value")
}

func TestExport_ReadBack(t *testing.T) {
	res := sampleResult(t)

	// The results sheet is not a survey layout, so reading it back is a schema error
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, discovery.FormatCSV, res))
	_, err := ReadCSV("results.csv", &buf, Options{})
	assert.ErrorIs(t, err, instrument.ErrConfiguration)
}

func TestExport_Unsupported(t *testing.T) {
	err := Export(&bytes.Buffer{}, discovery.FormatUnknown, &batch.Result{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportFile(t *testing.T) {
	res := sampleResult(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out", "results.csv")
	written, err := ExportFile(csvPath, res)
	require.NoError(t, err)
	summaryPath := filepath.Join(dir, "out", "results_summary.csv")
	assert.Equal(t, []string{csvPath, summaryPath}, written)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,ee_score"))

	summary, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Emotional Exhaustion,Low,1,50")
	assert.Contains(t, string(summary), "Batch,Failed,1,")

	xlsxPath := filepath.Join(dir, "results.xlsx")
	written, err = ExportFile(xlsxPath, res)
	require.NoError(t, err)
	assert.Equal(t, []string{xlsxPath}, written)
	wb, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), SheetSummary)

	_, err = ExportFile(filepath.Join(dir, "results.json"), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export type")
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, sampleResult(t).Summary))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"dimension", "category", "count", "percent"}, records[0])
	assert.Equal(t, []string{"Emotional Exhaustion", "Low", "1", "50"}, records[1])
	assert.Equal(t, []string{"Batch", "Scored", "2", ""}, records[len(records)-2])

	// An empty batch has no percentages
	buf.Reset()
	require.NoError(t, WriteSummaryCSV(&buf, batch.Summarize(nil, 0)))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Emotional Exhaustion", "Low", "0", ""}, records[1])
}

func TestSummaryPath(t *testing.T) {
	assert.Equal(t, "out/results_summary.csv", SummaryPath("out/results.csv"))
	assert.Equal(t, "team_summary.CSV", SummaryPath("team.CSV"))
}

func TestSummaryRows_EmptyBatch(t *testing.T) {
	rows := summaryRows(batch.Summarize(nil, 2))
	// Undefined percentages are left blank
	for _, row := range rows[1:] {
		if row[0] == "Batch" {
			continue
		}
		assert.Equal(t, "", row[3])
	}
	assert.Equal(t, []any{"Batch", "Failed", 2, ""}, rows[len(rows)-1])
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(discovery.FormatCSV))
	assert.Contains(t, ContentType(discovery.FormatXLSX), "spreadsheetml")
}
