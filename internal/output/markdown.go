package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dotcommander/mbiscore/internal/scoring"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct {
	w       io.Writer
	verbose bool
}

// NewMarkdownFormatter creates a new MarkdownFormatter
func NewMarkdownFormatter(w io.Writer, verbose bool) *MarkdownFormatter {
	return &MarkdownFormatter{w: w, verbose: verbose}
}

// FormatRespondent writes a single-respondent report
func (f *MarkdownFormatter) FormatRespondent(r scoring.RespondentResult) error {
	var builder strings.Builder

	builder.WriteString("# Burnout Assessment (MBI-HSS)\n\n")
	if r.ID != "" {
		builder.WriteString(fmt.Sprintf("**Respondent:** %s\n\n", r.ID))
	}
	builder.WriteString("| Dimension | Score | Level |\n")
	builder.WriteString("|-----------|-------|-------|\n")
	for _, sr := range r.Subscales() {
		builder.WriteString(fmt.Sprintf("| %s | %d | %s |\n", sr.Subscale.Name(), sr.Score, sr.Tier))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("**%s %s**\n\n", riskIcon(r.Risk), r.Risk))
	builder.WriteString(scoring.Advisory(r.Risk) + "\n")

	return f.write(builder.String())
}

// FormatBatch writes a batch report
func (f *MarkdownFormatter) FormatBatch(rep *Report) error {
	var builder strings.Builder
	res := rep.Result
	s := res.Summary

	builder.WriteString("# Burnout Assessment Report (MBI-HSS)\n\n")
	builder.WriteString(fmt.Sprintf("**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	if rep.RunID != "" {
		builder.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", rep.RunID))
	}
	if len(rep.Sources) > 0 {
		builder.WriteString(fmt.Sprintf("**Sources:** %s\n\n", strings.Join(rep.Sources, ", ")))
	}
	builder.WriteString(strings.Repeat("-", 50) + "\n\n")

	builder.WriteString("## Summary\n\n")
	builder.WriteString("| Metric | Count |\n")
	builder.WriteString("|--------|-------|\n")
	builder.WriteString(fmt.Sprintf("| Respondents scored | %d |\n", s.Scored))
	builder.WriteString(fmt.Sprintf("| Rows skipped | %d |\n", s.Failed))
	for _, rc := range s.Risks {
		builder.WriteString(fmt.Sprintf("| %s | %d (%s) |\n", rc.Risk, rc.Count, FormatPercent(rc.Percent)))
	}
	builder.WriteString("\n")

	builder.WriteString("## Distribution\n\n")
	builder.WriteString("| Dimension | Low | Moderate | High |\n")
	builder.WriteString("|-----------|-----|----------|------|\n")
	for _, d := range s.Subscales {
		cells := make([]string, 0, len(d.Tiers))
		for _, tc := range d.Tiers {
			cells = append(cells, fmt.Sprintf("%d (%s)", tc.Count, FormatPercent(tc.Percent)))
		}
		builder.WriteString(fmt.Sprintf("| %s | %s |\n", d.Name, strings.Join(cells, " | ")))
	}
	builder.WriteString("\n")

	builder.WriteString("## Respondents\n\n")
	if len(res.Results) == 0 {
		builder.WriteString("*No respondents could be scored.*\n\n")
	} else {
		builder.WriteString("| ID | EE | DP | PA | Risk |\n")
		builder.WriteString("|----|----|----|----|------|\n")
		for _, r := range res.Results {
			builder.WriteString(fmt.Sprintf("| %s | %d (%s) | %d (%s) | %d (%s) | %s |\n",
				escapeCell(r.ID),
				r.EE.Score, r.EE.Tier,
				r.DP.Score, r.DP.Tier,
				r.PA.Score, r.PA.Tier,
				r.Risk))
		}
		builder.WriteString("\n")

		if f.verbose {
			for _, r := range res.Results {
				builder.WriteString(fmt.Sprintf("- **%s** - %s\n", escapeCell(r.ID), scoring.Advisory(r.Risk)))
			}
			builder.WriteString("\n")
		}
	}

	if len(res.Errors) > 0 {
		builder.WriteString("## Skipped Rows\n\n")
		for _, e := range res.Errors {
			builder.WriteString(fmt.Sprintf("- %s\n", e.Error()))
		}
		builder.WriteString("\n")
	}

	return f.write(builder.String())
}

func (f *MarkdownFormatter) write(content string) error {
	if _, err := io.WriteString(f.w, content); err != nil {
		return fmt.Errorf("error writing markdown: %w", err)
	}
	return nil
}

// escapeCell keeps identifiers from breaking table rows
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
