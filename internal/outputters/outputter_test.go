package outputters

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondent(t *testing.T) scoring.RespondentResult {
	t.Helper()
	values := make([]int, instrument.ItemCount)
	r, err := scoring.NewEngine(instrument.MustDefault()).EvaluateValues("r1", values)
	require.NoError(t, err)
	return r
}

func report(t *testing.T) *output.Report {
	t.Helper()
	engine := scoring.NewEngine(instrument.MustDefault())
	res := batch.NewProcessor(engine, 1).Process([]batch.Row{
		batch.RowFromValues("a", make([]int, instrument.ItemCount)),
	})
	return output.NewReport("MBI-HSS 1.0", nil, time.Now(), res)
}

func TestNewOutputter(t *testing.T) {
	cfg := &config.Config{Format: "console"}
	o := NewOutputter(cfg, nil)
	require.NotNil(t, o)
	assert.Equal(t, cfg, o.config)
	assert.Equal(t, os.Stdout, o.stdout)
}

func TestOutputter_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"console", "Low Risk"},
		{"json", `"risk": "Low Risk"`},
		{"markdown", "# Burnout Assessment (MBI-HSS)"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			o := NewOutputter(&config.Config{Format: tt.format}, &buf)
			require.NoError(t, o.FormatRespondent(respondent(t)))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestOutputter_Batch(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutputter(&config.Config{Format: "markdown"}, &buf)
	require.NoError(t, o.FormatBatch(report(t)))
	assert.Contains(t, buf.String(), "| Respondents scored | 1 |")
}

func TestOutputter_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutputter(&config.Config{Format: "xml"}, &buf)
	err := o.FormatRespondent(respondent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format: xml")
	assert.Empty(t, buf.String())
}

func TestOutputter_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "team.json")

	var stdout bytes.Buffer
	o := NewOutputter(&config.Config{Format: "json", Output: path}, &stdout)
	require.NoError(t, o.FormatBatch(report(t)))

	assert.Empty(t, stdout.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scored": 1`)
}

func TestOutputter_ConsoleFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	o := NewOutputter(&config.Config{Format: "console", Output: path}, nil)
	require.NoError(t, o.FormatRespondent(respondent(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\x1b[")
	assert.Contains(t, string(data), "Low Risk")
}
