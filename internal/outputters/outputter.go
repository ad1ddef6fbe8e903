package outputters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/scoring"
)

// Outputter handles output formatting
type Outputter struct {
	config *config.Config
	stdout io.Writer
}

// NewOutputter creates a new Outputter writing to stdout unless the config names an output file
func NewOutputter(config *config.Config, stdout io.Writer) *Outputter {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Outputter{
		config: config,
		stdout: stdout,
	}
}

// FormatRespondent renders one respondent in the configured format
func (o *Outputter) FormatRespondent(r scoring.RespondentResult) error {
	return o.with(func(f output.Formatter) error {
		return f.FormatRespondent(r)
	})
}

// FormatBatch renders a batch report in the configured format
func (o *Outputter) FormatBatch(rep *output.Report) error {
	return o.with(func(f output.Formatter) error {
		return f.FormatBatch(rep)
	})
}

func (o *Outputter) with(render func(output.Formatter) error) error {
	w := o.stdout
	if o.config.Output != "" {
		if dir := filepath.Dir(o.config.Output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("error creating directory: %w", err)
			}
		}
		fh, err := os.Create(o.config.Output)
		if err != nil {
			return fmt.Errorf("error writing to file %s: %w", o.config.Output, err)
		}
		defer fh.Close()
		w = fh
	}

	formatter, err := o.formatter(w)
	if err != nil {
		return err
	}
	return render(formatter)
}

// formatter creates the appropriate formatter based on format
func (o *Outputter) formatter(w io.Writer) (output.Formatter, error) {
	switch o.config.Format {
	case "console":
		// Never write ANSI styling into files
		colorize := !o.config.NoColor && o.config.Output == ""
		return output.NewConsoleFormatter(w, o.config.Quiet, o.config.Verbose, colorize), nil
	case "json":
		return output.NewJSONFormatter(w, true), nil
	case "markdown":
		return output.NewMarkdownFormatter(w, o.config.Verbose), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", o.config.Format)
	}
}
