package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/outputters"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/spf13/cobra"
)

// defaultAnswer is used when an interactive prompt is left blank
const defaultAnswer = 3

var (
	responsesFlag string
	interactive   bool
	respondentID  string
)

var scoreCmd = &cobra.Command{
	Use:   "score [v1 ... v22]",
	Short: "Score a single respondent",
	Long: `Score one respondent from 22 answers on the 0-6 frequency scale.

Answers are given as arguments, with --responses as a comma separated list,
or typed one by one with --interactive (a blank answer counts as 3).
Invalid input is refused and nothing is scored.`,
	Example: `  mbiscore score 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3 3
  mbiscore score --responses 0,1,2,3,4,5,6,0,1,2,3,4,5,6,0,1,2,3,4,5,6,0
  mbiscore score --interactive --id nurse-07`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&responsesFlag, "responses", "", "Comma separated answers for items 1-22")
	scoreCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for each item")
	scoreCmd.Flags().StringVar(&respondentID, "id", "", "Identifier printed with the result")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rootPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	engine, err := loadEngine()
	if err != nil {
		return err
	}

	var values []int
	switch {
	case interactive:
		if len(args) > 0 || responsesFlag != "" {
			return errors.New("--interactive cannot be combined with answers")
		}
		values, err = promptResponses(cmd.InOrStdin(), cmd.ErrOrStderr(), engine.Instrument())
	case responsesFlag != "":
		if len(args) > 0 {
			return errors.New("give answers either as arguments or with --responses, not both")
		}
		values, err = parseResponses(strings.Split(responsesFlag, ","))
	default:
		values, err = parseResponses(args)
	}
	if err != nil {
		return err
	}

	result, err := engine.EvaluateValues(respondentID, values)
	if err != nil {
		return err
	}

	outputter := outputters.NewOutputter(cfg, cmd.OutOrStdout())
	if err := outputter.FormatRespondent(result); err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}

	if exceedsFailLevel(cfg.FailOn, []scoring.RespondentResult{result}, 0) {
		exitFunc(1)
	}
	return nil
}

// parseResponses converts answer tokens to integers; range checks are left to the engine
func parseResponses(tokens []string) ([]int, error) {
	values := make([]int, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %q is not an integer", i+1, tok)
		}
		values = append(values, v)
	}
	return values, nil
}

// promptResponses asks for every item in order. Out of range or non-numeric
// answers are asked again; end of input before item 22 is an error.
func promptResponses(in io.Reader, out io.Writer, inst *instrument.Instrument) ([]int, error) {
	scale := inst.Scale()
	scanner := bufio.NewScanner(in)
	values := make([]int, 0, instrument.ItemCount)

	fmt.Fprintf(out, "%s: answer each item from %d (never) to %d (every day)\n\n", inst.Name(), scale.Min, scale.Max)
	for item := 1; item <= instrument.ItemCount; item++ {
		for {
			fmt.Fprintf(out, "%2d. %s [%d-%d, blank=%d]: ", item, inst.Prompt(item), scale.Min, scale.Max, defaultAnswer)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, fmt.Errorf("error reading answers: %w", err)
				}
				return nil, fmt.Errorf("input ended at item %d of %d", item, instrument.ItemCount)
			}

			answer := strings.TrimSpace(scanner.Text())
			if answer == "" {
				values = append(values, defaultAnswer)
				break
			}
			v, err := strconv.Atoi(answer)
			if err != nil || v < scale.Min || v > scale.Max {
				fmt.Fprintf(out, "    enter a whole number from %d to %d\n", scale.Min, scale.Max)
				continue
			}
			values = append(values, v)
			break
		}
	}
	fmt.Fprintln(out)
	return values, nil
}
