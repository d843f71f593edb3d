package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"termdeck/internal/app"
	"termdeck/internal/deck"

	"github.com/spf13/cobra"
)

var validateJSON bool

// DeckReport is one line of validate output.
type DeckReport struct {
	Path     string `json:"path"`
	DeckID   string `json:"deck_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Slides   int    `json:"slides"`
	Selected int    `json:"selected"`
	Interval string `json:"interval,omitempty"`
	Error    string `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Check deck files without presenting them",
	Long: `Load and validate decks. A path may be a deck file, a directory holding
deck.yaml, or a directory of decks. Reports how many slides the panel
selector picks out of each deck.

Examples:
  termdeck validate decks/welcome/deck.yaml
  termdeck validate decks/ --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var reports []DeckReport
	for _, path := range args {
		reports = append(reports, validatePath(ctx, path)...)
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Error != "" {
				fmt.Fprintf(out, "FAIL %s: %s\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(out, "ok   %s  %s  %d/%d slides  every %s\n", r.DeckID, r.Title, r.Selected, r.Slides, r.Interval)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d decks failed validation", failed, len(reports))
	}
	return nil
}

func validatePath(ctx context.Context, path string) []DeckReport {
	loader := deck.NewLoader()
	info, err := os.Stat(path)
	if err != nil {
		return []DeckReport{{Path: path, Error: err.Error()}}
	}
	if info.IsDir() {
		file := filepath.Join(path, "deck.yaml")
		if _, err := os.Stat(file); err != nil {
			decks, err := loader.LoadDecks(ctx, path)
			if err != nil {
				return []DeckReport{{Path: path, Error: err.Error()}}
			}
			out := make([]DeckReport, 0, len(decks))
			for _, d := range decks {
				out = append(out, report(d))
			}
			return out
		}
		path = file
	}
	d, err := loader.LoadDeck(ctx, path)
	if err != nil {
		return []DeckReport{{Path: path, Error: err.Error()}}
	}
	return []DeckReport{report(d)}
}

func report(d deck.Deck) DeckReport {
	r := DeckReport{Path: d.Path, DeckID: d.DeckID, Title: d.Title, Slides: len(d.Slides)}
	cfg, err := app.SlideshowConfig(d, app.ShowConfig{})
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Selected = len(d.QueryAll(cfg.ContainerSelector, cfg.PanelSelector))
	r.Interval = cfg.DisplayLength.String()
	if r.Selected == 0 {
		r.Error = fmt.Sprintf("panel selector %q matches no slides", cfg.PanelSelector)
	}
	return r
}
