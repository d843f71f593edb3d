package cmd

import (
	"fmt"
	"strconv"

	"termdeck/internal/deck"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var decksCmd = &cobra.Command{
	Use:   "decks [dir]",
	Short: "List decks in a directory",
	Long: `List the decks found under a directory (default "decks"), either as
<dir>/<name>/deck.yaml or <dir>/*.deck.yaml. Any listed id can be passed
to present.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "decks"
		if len(args) > 0 {
			root = args[0]
		}
		decks, err := deck.NewLoader().LoadDecks(cmd.Context(), root)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(decks) == 0 {
			fmt.Fprintf(out, "No decks under %s\n", root)
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(int, int) lipgloss.Style { return lipgloss.NewStyle().Padding(0, 1) }).
			Headers("ID", "TITLE", "AUTHOR", "SLIDES", "PATH")
		for _, d := range decks {
			t.Row(d.DeckID, d.Title, d.Author, strconv.Itoa(len(d.Slides)), d.Path)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decksCmd)
}
