package cmd

import (
	"fmt"
	"os"

	"termdeck/internal/app"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dataDir string
	logPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "termdeck",
	Short: "Terminal slideshows from YAML decks",
	Long: `termdeck presents YAML slide decks in the terminal. Slides are scaled
to fit the window and can advance on a timer or by hand.

Every flag can also be set through a TERMDECK_* environment variable;
flags win over the environment.

Examples:
  termdeck present decks/welcome              # Present a deck directory
  termdeck present welcome --resume           # Present by deck id, resume at last slide
  termdeck validate decks/                    # Check every deck under decks/
  termdeck stats                              # Viewing history
  termdeck record demo.ttyrec -- make demo    # Capture a cast for a slide`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "state directory (default ~/.local/share/termdeck)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "append JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "show layout diagnostics")
}

// loadConfig layers defaults, TERMDECK_* variables and the flags the user
// actually set, then validates the result.
func loadConfig(cmd *cobra.Command, overlay func(*app.Config)) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := app.LoadEnv(&cfg, nil); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log") {
		cfg.LogPath = logPath
	}
	if flags.Changed("debug") {
		cfg.DebugLayout = debug
	}
	if overlay != nil {
		overlay(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
