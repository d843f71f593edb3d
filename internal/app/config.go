package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"termdeck/internal/slideshow"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "TERMDECK_"

// Config controls runtime behavior for the presenter.
type Config struct {
	DeckPath    string
	Dev         bool       `env:"DEV"`
	DevHTTP     string     `env:"DEV_HTTP"`
	LogPath     string     `env:"LOG_PATH"`
	DebugLayout bool       `env:"DEBUG_LAYOUT"`
	ASCIIOnly   bool       `env:"ASCII"`
	DataDir     string     `env:"DATA_DIR"`
	Resume      bool       `env:"RESUME"`
	AllowExec   bool       `env:"ALLOW_EXEC"`
	Show        ShowConfig `envPrefix:"SHOW_"`
	UI          UIConfig   `envPrefix:"UI_"`
}

// ShowConfig overrides the deck's own settings block. Zero values leave the
// deck setting in place.
type ShowConfig struct {
	DisplayLengthMS int    `env:"DISPLAY_LENGTH_MS"`
	AutoStart       *bool  `env:"AUTO_START"`
	Boundary        string `env:"BOUNDARY"`
	MarginMode      string `env:"MARGIN_MODE"`
	PauseOnPrevious *bool  `env:"PAUSE_ON_PREVIOUS"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
}

func DefaultConfig() Config {
	return Config{
		DevHTTP: "127.0.0.1:17345",
		UI: UIConfig{
			StyleVariant: "modern_arcade",
			MotionLevel:  "full",
		},
	}
}

// LoadEnv overlays TERMDECK_* variables onto c. A nil environ reads the
// process environment.
func LoadEnv(c *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Show.DisplayLengthMS < 0 {
		return fmt.Errorf("invalid display length %dms", c.Show.DisplayLengthMS)
	}
	switch slideshow.BoundaryPolicy(c.Show.Boundary) {
	case "", slideshow.BoundaryClamp, slideshow.BoundaryWrap:
	default:
		return fmt.Errorf("invalid boundary policy %q", c.Show.Boundary)
	}
	switch slideshow.MarginMode(c.Show.MarginMode) {
	case "", slideshow.MarginSymmetric, slideshow.MarginLegacy:
	default:
		return fmt.Errorf("invalid margin mode %q", c.Show.MarginMode)
	}
	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	if c.Dev && c.DevHTTP == "" {
		c.DevHTTP = DefaultConfig().DevHTTP
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "termdeck")
	}
	return nil
}

// StatePath is the SQLite file holding viewing history.
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// apply overlays the show overrides onto a deck-derived configuration.
func (s ShowConfig) apply(cfg slideshow.Config) slideshow.Config {
	if s.DisplayLengthMS > 0 {
		cfg.DisplayLength = msDuration(s.DisplayLengthMS)
	}
	if s.AutoStart != nil {
		cfg.AutoStart = *s.AutoStart
	}
	if s.Boundary != "" {
		cfg.Boundary = slideshow.BoundaryPolicy(s.Boundary)
	}
	if s.MarginMode != "" {
		cfg.MarginMode = slideshow.MarginMode(s.MarginMode)
	}
	if s.PauseOnPrevious != nil {
		cfg.PauseOnPrevious = *s.PauseOnPrevious
	}
	return cfg
}
