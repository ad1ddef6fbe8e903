package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/scoring"
)

// ConsoleFormatter formats output for console display
type ConsoleFormatter struct {
	w        io.Writer
	quiet    bool
	verbose  bool
	colorize bool
}

// NewConsoleFormatter creates a new ConsoleFormatter
func NewConsoleFormatter(w io.Writer, quiet, verbose, colorize bool) *ConsoleFormatter {
	return &ConsoleFormatter{
		w:        w,
		quiet:    quiet,
		verbose:  verbose,
		colorize: colorize,
	}
}

func (f *ConsoleFormatter) style(color string) lipgloss.Style {
	if !f.colorize {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func (f *ConsoleFormatter) riskStyle(r scoring.Risk) lipgloss.Style {
	switch r {
	case scoring.RiskHigh:
		return f.style("9").Bold(f.colorize) // red
	case scoring.RiskModerate:
		return f.style("3").Bold(f.colorize) // yellow
	default:
		return f.style("10").Bold(f.colorize) // green
	}
}

func (f *ConsoleFormatter) tierStyle(s instrument.Subscale, t scoring.Tier) lipgloss.Style {
	// Low accomplishment is the adverse end of PA
	adverse := t == scoring.TierHigh
	if s == instrument.PersonalAccomplishment {
		adverse = t == scoring.TierLow
	}
	switch {
	case adverse:
		return f.style("9")
	case t == scoring.TierModerate:
		return f.style("3")
	default:
		return f.style("7")
	}
}

// FormatRespondent prints the subscale scores, tiers and advisory of one respondent
func (f *ConsoleFormatter) FormatRespondent(r scoring.RespondentResult) error {
	if f.quiet {
		return nil
	}

	bold := lipgloss.NewStyle().Bold(f.colorize)
	if r.ID != "" {
		fmt.Fprintf(f.w, "%s\n", bold.Render(r.ID))
	}

	for _, sr := range r.Subscales() {
		name := sr.Subscale.Name()
		fmt.Fprintf(f.w, "  %-25s %3d  %s\n", name, sr.Score, f.tierStyle(sr.Subscale, sr.Tier).Render(string(sr.Tier)))
	}

	style := f.riskStyle(r.Risk)
	fmt.Fprintf(f.w, "\n%s\n", style.Render(riskIcon(r.Risk)+" "+string(r.Risk)))
	fmt.Fprintf(f.w, "  %s\n", scoring.Advisory(r.Risk))
	return nil
}

// FormatBatch prints the per-respondent table, the distribution table and row errors
func (f *ConsoleFormatter) FormatBatch(rep *Report) error {
	if f.quiet {
		return nil
	}
	res := rep.Result

	if len(res.Results) > 0 {
		fmt.Fprintln(f.w, f.resultsTable(res.Results))
	}

	if f.verbose {
		for _, r := range res.Results {
			fmt.Fprintf(f.w, "%s %s: %s\n", f.riskStyle(r.Risk).Render(riskIcon(r.Risk)), r.ID, scoring.Advisory(r.Risk))
		}
		if len(res.Results) > 0 {
			fmt.Fprintln(f.w)
		}
	}

	fmt.Fprintln(f.w, f.distributionTable(res.Summary))

	f.printRowErrors(res.Errors)
	f.printSummaryLine(rep)
	return nil
}

func (f *ConsoleFormatter) resultsTable(results []scoring.RespondentResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{r.ID}
		for _, sr := range r.Subscales() {
			row = append(row, strconv.Itoa(sr.Score), f.tierStyle(sr.Subscale, sr.Tier).Render(string(sr.Tier)))
		}
		row = append(row, f.riskStyle(r.Risk).Render(string(r.Risk)))
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.style("8")).
		Headers("ID", "EE", "EE tier", "DP", "DP tier", "PA", "PA tier", "Risk").
		Rows(rows...).
		String()
}

func (f *ConsoleFormatter) distributionTable(s batch.Summary) string {
	rows := make([][]string, 0, len(s.Subscales)+1)
	for _, d := range s.Subscales {
		row := []string{d.Name}
		for _, tc := range d.Tiers {
			row = append(row, fmt.Sprintf("%d (%s)", tc.Count, FormatPercent(tc.Percent)))
		}
		rows = append(rows, row)
	}

	risk := make([]string, 0, len(s.Risks))
	for _, rc := range s.Risks {
		risk = append(risk, fmt.Sprintf("%s: %d (%s)", rc.Risk, rc.Count, FormatPercent(rc.Percent)))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.style("8")).
		Headers("Dimension", "Low", "Moderate", "High").
		Rows(rows...).
		String()
	return t + "\n" + strings.Join(risk, ", ")
}

func (f *ConsoleFormatter) printRowErrors(errs []*batch.RowError) {
	if len(errs) == 0 {
		return
	}
	red := f.style("9")
	fmt.Fprintf(f.w, "\n%s\n", red.Render(fmt.Sprintf("%d rows skipped:", len(errs))))
	for _, e := range errs {
		fmt.Fprintf(f.w, "    ✘ %s\n", e.Error())
	}
}

func (f *ConsoleFormatter) printSummaryLine(rep *Report) {
	s := rep.Result.Summary
	line := fmt.Sprintf("%d scored, %d failed", s.Scored, s.Failed)
	if !rep.StartTime.IsZero() {
		line += fmt.Sprintf(" (%v)", time.Since(rep.StartTime).Round(time.Millisecond))
	}
	style := f.style("10")
	if s.Failed > 0 {
		style = f.style("9")
	}
	fmt.Fprintf(f.w, "\n%s\n", style.Render(line))
}
