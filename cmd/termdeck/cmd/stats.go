package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"termdeck/internal/state"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show viewing history",
	Long: `Summarize presentation sessions recorded in the state directory: how
often each deck was shown, for how long, and where it was left off.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := state.NewSQLite(cfg.StatePath())
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	sum, err := store.GetSummary(ctx)
	if err != nil {
		return err
	}
	decks, err := store.GetDeckStats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"summary": sum, "decks": decks})
	}
	writeStats(out, sum, decks, time.Now())
	return nil
}

func writeStats(w io.Writer, sum state.Summary, decks []state.DeckStats, now time.Time) {
	fmt.Fprintf(w, "%s sessions, %s slide changes, %s autoplay runs, %s presented\n",
		humanize.Comma(int64(sum.Sessions)),
		humanize.Comma(int64(sum.Transitions)),
		humanize.Comma(int64(sum.Autoplays)),
		formatViewing(sum.Viewing),
	)
	if len(decks) == 0 {
		fmt.Fprintln(w, "No decks presented yet.")
		return
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("DECK", "SESSIONS", "CHANGES", "PRESENTED", "LAST SLIDE", "LAST VIEWED")
	for _, d := range decks {
		last := "-"
		if !d.LastViewedTS.IsZero() {
			last = humanize.RelTime(d.LastViewedTS, now, "ago", "from now")
		}
		slide := "-"
		if d.LastPosition > 0 {
			slide = strconv.Itoa(d.LastPosition)
		}
		t.Row(
			d.DeckID,
			humanize.Comma(int64(d.Sessions)),
			humanize.Comma(int64(d.Transitions)),
			formatViewing(d.Viewing),
			slide,
			last,
		)
	}
	fmt.Fprintln(w, t.String())
}

func formatViewing(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}
