package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"termdeck/internal/app"
	"termdeck/internal/deck"
	"termdeck/internal/state"

	"github.com/spf13/cobra"
)

var (
	resume          bool
	devMode         bool
	devHTTP         string
	asciiOnly       bool
	style           string
	motion          string
	interval        time.Duration
	boundary        string
	marginMode      string
	noAutoplay      bool
	pauseOnPrevious bool
	allowExec       bool
	decksDir        string
)

var presentCmd = &cobra.Command{
	Use:   "present [deck]",
	Short: "Present a deck in the terminal",
	Long: `Present a deck. The argument may be a deck file, a directory holding
deck.yaml, or a deck id found under --decks. Without an argument the last
presented deck is opened again.

Examples:
  termdeck present decks/welcome/deck.yaml
  termdeck present welcome --interval 8s --boundary wrap
  termdeck present --resume
  termdeck present decks/terminal --allow-exec`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPresent,
}

func init() {
	f := presentCmd.Flags()
	f.BoolVar(&resume, "resume", false, "start at the slide shown when the deck was last closed")
	f.BoolVar(&devMode, "dev", false, "serve the /__dev remote over HTTP")
	f.StringVar(&devHTTP, "dev-http", "", "address for the dev remote")
	f.BoolVar(&asciiOnly, "ascii", false, "draw frames with ASCII only")
	f.StringVar(&style, "style", "", "style variant: modern_arcade, cozy_clean, retro_terminal")
	f.StringVar(&motion, "motion", "", "motion level: full, reduced, off")
	f.DurationVar(&interval, "interval", 0, "auto-advance interval, overriding the deck")
	f.StringVar(&boundary, "boundary", "", "boundary policy: clamp or wrap")
	f.StringVar(&marginMode, "margin-mode", "", "margin mode: symmetric or legacy")
	f.BoolVar(&noAutoplay, "no-autoplay", false, "disable auto-advance")
	f.BoolVar(&pauseOnPrevious, "pause-on-previous", false, "stop auto-advance when stepping back")
	f.BoolVar(&allowExec, "allow-exec", false, "run the commands of exec slides")
	f.StringVar(&decksDir, "decks", "decks", "directory searched when the deck is given by id")
	rootCmd.AddCommand(presentCmd)
}

func runPresent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, presentOverlay(cmd))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	cfg.DeckPath, err = resolveDeckPath(ctx, cfg, arg, decksDir)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func presentOverlay(cmd *cobra.Command) func(*app.Config) {
	flags := cmd.Flags()
	return func(cfg *app.Config) {
		if flags.Changed("resume") {
			cfg.Resume = resume
		}
		if flags.Changed("dev") {
			cfg.Dev = devMode
		}
		if flags.Changed("dev-http") {
			cfg.DevHTTP = devHTTP
		}
		if flags.Changed("ascii") {
			cfg.ASCIIOnly = asciiOnly
		}
		if flags.Changed("style") {
			cfg.UI.StyleVariant = style
		}
		if flags.Changed("motion") {
			cfg.UI.MotionLevel = motion
		}
		if flags.Changed("interval") {
			cfg.Show.DisplayLengthMS = int(interval / time.Millisecond)
		}
		if flags.Changed("boundary") {
			cfg.Show.Boundary = boundary
		}
		if flags.Changed("margin-mode") {
			cfg.Show.MarginMode = marginMode
		}
		if flags.Changed("no-autoplay") {
			on := !noAutoplay
			cfg.Show.AutoStart = &on
		}
		if flags.Changed("pause-on-previous") {
			v := pauseOnPrevious
			cfg.Show.PauseOnPrevious = &v
		}
		if flags.Changed("allow-exec") {
			cfg.AllowExec = allowExec
		}
	}
}

// resolveDeckPath turns the present argument into a deck file path.
func resolveDeckPath(ctx context.Context, cfg app.Config, arg, root string) (string, error) {
	if arg == "" {
		last, err := lastDeck(ctx, cfg)
		if err != nil {
			return "", err
		}
		if last == "" {
			return "", errors.New("no deck given and none presented before")
		}
		return last, nil
	}
	if info, err := os.Stat(arg); err == nil {
		if info.IsDir() {
			return filepath.Join(arg, "deck.yaml"), nil
		}
		return arg, nil
	}

	loader := deck.NewLoader()
	decks, err := loader.LoadDecks(ctx, root)
	if err != nil {
		return "", fmt.Errorf("%s is not a file and decks under %s could not be read: %w", arg, root, err)
	}
	d, err := loader.FindDeck(decks, arg)
	if err != nil {
		return "", err
	}
	return d.Path, nil
}

func lastDeck(ctx context.Context, cfg app.Config) (string, error) {
	if _, err := os.Stat(cfg.StatePath()); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	store, err := state.NewSQLite(cfg.StatePath())
	if err != nil {
		return "", err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return "", err
	}
	settings, err := store.LoadSettings(ctx)
	if err != nil {
		return "", err
	}
	return settings[app.SettingLastDeck], nil
}
