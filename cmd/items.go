package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/spf13/cobra"
)

var showPrompts bool

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Show the item map and tier bounds",
	Long: `Show which items belong to each subscale and the bounds that separate
the Low, Moderate and High tiers. Use --prompts to list the item wording.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(rootPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		engine, err := loadEngine()
		if err != nil {
			return err
		}
		in := engine.Instrument()
		if cfg.Format == "json" {
			return writeItemsJSON(cmd.OutOrStdout(), in)
		}
		writeItems(cmd.OutOrStdout(), in, showPrompts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.Flags().BoolVar(&showPrompts, "prompts", false, "Also list every item prompt")
}

func writeItems(w io.Writer, in *instrument.Instrument, prompts bool) {
	rows := make([][]string, 0, len(instrument.Subscales))
	for _, d := range in.Definitions() {
		items := make([]string, 0, len(d.Items))
		for _, it := range in.Items(d.Key) {
			items = append(items, strconv.Itoa(it))
		}
		rows = append(rows, []string{
			string(d.Key),
			d.Name,
			strings.Join(items, ", "),
			fmt.Sprintf("<= %d", d.Bounds.Low),
			fmt.Sprintf("%d-%d", d.Bounds.Low+1, d.Bounds.High),
			fmt.Sprintf("> %d", d.Bounds.High),
		})
	}

	fmt.Fprintf(w, "%s %s\n", in.Name(), in.Version())
	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Key", "Subscale", "Items", "Low", "Moderate", "High").
		Rows(rows...).
		String())

	if !prompts {
		return
	}
	fmt.Fprintln(w)
	for item := 1; item <= instrument.ItemCount; item++ {
		fmt.Fprintf(w, "%2d. %s\n", item, in.Prompt(item))
	}
}

func writeItemsJSON(w io.Writer, in *instrument.Instrument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Name      string                  `json:"name"`
		Version   string                  `json:"version"`
		Subscales []instrument.Definition `json:"subscales"`
	}{in.Name(), in.Version(), in.Definitions()})
}
