package deck

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"termdeck/internal/slideshow"
	"termdeck/internal/term"

	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"
)

const (
	DeckKind               = "deck"
	SupportedSchemaVersion = 1
	DefaultSlideClass      = "slide"
)

var (
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,63}$`)
	classPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	ErrNoSlides = errors.New("deck has no slides")
)

type Deck struct {
	Kind          string   `yaml:"kind"`
	SchemaVersion int      `yaml:"schema_version"`
	DeckID        string   `yaml:"deck_id"`
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	Settings      Settings `yaml:"settings"`
	Slides        []*Slide `yaml:"slides"`

	Path string `yaml:"-"`
}

// Settings are presentation defaults carried by the deck file. Unset fields
// leave the controller configuration untouched.
type Settings struct {
	DisplayLengthMS   int      `yaml:"display_length_ms"`
	AutoStart         *bool    `yaml:"auto_start"`
	ContainerSelector string   `yaml:"container_selector"`
	PanelSelector     string   `yaml:"panel_selector"`
	PanelWidth        Length   `yaml:"panel_width"`
	PanelHeight       Length   `yaml:"panel_height"`
	Margin            *float64 `yaml:"margin"`
	MinScale          float64  `yaml:"min_scale"`
	MaxScale          float64  `yaml:"max_scale"`
	Boundary          string   `yaml:"boundary"`
	MarginMode        string   `yaml:"margin_mode"`
	PauseOnPrevious   *bool    `yaml:"pause_on_previous"`
}

// Length accepts bare numbers and percentages ("960", "80%").
type Length string

func (l *Length) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: length must be a scalar", value.Line)
	}
	*l = Length(strings.TrimSpace(value.Value))
	return nil
}

func (l Length) Dimension() (slideshow.Dimension, error) {
	return slideshow.ParseDimension(string(l))
}

type Slide struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Class           []string `yaml:"class"`
	BodyMD          string   `yaml:"body_md"`
	BodyFile        string   `yaml:"body_file"`
	Notes           string   `yaml:"notes"`
	DisplayLengthMS int      `yaml:"display_length_ms"`
	Media           *Media   `yaml:"media"`

	Position int `yaml:"-"`
}

// Media is the slide's non-text content: a fixed art block, a recorded
// terminal session (cast) or a live command (exec).
type Media struct {
	Art     string   `yaml:"art"`
	ArtFile string   `yaml:"art_file"`
	Cast    string   `yaml:"cast"`
	Exec    []string `yaml:"exec"`
	Loop    bool     `yaml:"loop"`
	Width   int      `yaml:"width"`
	Height  int      `yaml:"height"`
	Caption string   `yaml:"caption"`

	Frames []term.PlaybackFrame `yaml:"-"`
}

// Terminal reports whether the media is rendered by a terminal pane.
func (m *Media) Terminal() bool {
	return m != nil && (m.Cast != "" || len(m.Exec) > 0)
}

func (s *Slide) DisplayLength() (time.Duration, bool) {
	if s == nil || s.DisplayLengthMS <= 0 {
		return 0, false
	}
	return time.Duration(s.DisplayLengthMS) * time.Millisecond, true
}

// MediaSize reports the intrinsic size of the slide's art block in cells.
// Explicit width/height win over the measured art.
func (s *Slide) MediaSize() (slideshow.Size, bool) {
	if s == nil || s.Media == nil {
		return slideshow.Size{}, false
	}
	w, h := s.Media.Width, s.Media.Height
	if w <= 0 || h <= 0 {
		aw, ah := measureArt(s.Media.Art)
		if w <= 0 {
			w = aw
		}
		if h <= 0 {
			h = ah
		}
	}
	if w <= 0 || h <= 0 {
		return slideshow.Size{}, false
	}
	return slideshow.Size{W: float64(w), H: float64(h)}, true
}

func (s *Slide) HasClass(class string) bool {
	for _, c := range s.Class {
		if c == class {
			return true
		}
	}
	return false
}

func measureArt(art string) (int, int) {
	art = strings.TrimRight(art, "\n")
	if art == "" {
		return 0, 0
	}
	lines := strings.Split(art, "\n")
	w := 0
	for _, line := range lines {
		w = max(w, ansi.StringWidth(line))
	}
	return w, len(lines)
}

var _ slideshow.MediaPanel = (*Slide)(nil)

func (d Deck) Validate() error {
	if d.Kind != DeckKind {
		return fmt.Errorf("kind must be %q", DeckKind)
	}
	if d.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if d.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported deck schema_version %d (max supported %d)", d.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(d.DeckID) {
		return fmt.Errorf("invalid deck_id %q", d.DeckID)
	}
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(d.Slides) == 0 {
		return ErrNoSlides
	}
	if err := d.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	seen := map[string]struct{}{}
	for i, s := range d.Slides {
		if s == nil {
			return fmt.Errorf("slides[%d] is empty", i)
		}
		if s.ID != "" {
			if !idPattern.MatchString(s.ID) {
				return fmt.Errorf("slides[%d]: invalid id %q", i, s.ID)
			}
			if _, ok := seen[s.ID]; ok {
				return fmt.Errorf("duplicate slide id %q", s.ID)
			}
			seen[s.ID] = struct{}{}
		}
		for _, c := range s.Class {
			if !classPattern.MatchString(c) {
				return fmt.Errorf("slides[%d]: invalid class %q", i, c)
			}
		}
		if s.BodyMD != "" && s.BodyFile != "" {
			return fmt.Errorf("slides[%d]: body_md and body_file are mutually exclusive", i)
		}
		if s.DisplayLengthMS < 0 {
			return fmt.Errorf("slides[%d]: display_length_ms must be >= 0", i)
		}
		if m := s.Media; m != nil {
			kinds := 0
			for _, set := range []bool{m.Art != "" || m.ArtFile != "", m.Cast != "", len(m.Exec) > 0} {
				if set {
					kinds++
				}
			}
			if m.Art != "" && m.ArtFile != "" {
				return fmt.Errorf("slides[%d]: media.art and media.art_file are mutually exclusive", i)
			}
			if kinds > 1 {
				return fmt.Errorf("slides[%d]: media takes one of art, cast or exec", i)
			}
			if len(m.Exec) > 0 && strings.TrimSpace(m.Exec[0]) == "" {
				return fmt.Errorf("slides[%d]: media.exec needs a program name", i)
			}
			if m.Width < 0 || m.Height < 0 {
				return fmt.Errorf("slides[%d]: media size must be >= 0", i)
			}
		}
	}
	return nil
}

func (s Settings) Validate() error {
	if s.DisplayLengthMS < 0 {
		return fmt.Errorf("display_length_ms must be >= 0")
	}
	if _, err := s.PanelWidth.Dimension(); err != nil {
		return fmt.Errorf("panel_width: %w", err)
	}
	if _, err := s.PanelHeight.Dimension(); err != nil {
		return fmt.Errorf("panel_height: %w", err)
	}
	if s.Margin != nil && (*s.Margin < 0 || *s.Margin >= 1) {
		return fmt.Errorf("margin must be in [0,1)")
	}
	if s.MinScale < 0 || s.MaxScale < 0 {
		return fmt.Errorf("scale bounds must be >= 0")
	}
	if s.MinScale > 0 && s.MaxScale > 0 && s.MinScale > s.MaxScale {
		return fmt.Errorf("min_scale exceeds max_scale")
	}
	switch s.Boundary {
	case "", string(slideshow.BoundaryClamp), string(slideshow.BoundaryWrap):
	default:
		return fmt.Errorf("invalid boundary %q", s.Boundary)
	}
	switch s.MarginMode {
	case "", string(slideshow.MarginSymmetric), string(slideshow.MarginLegacy):
	default:
		return fmt.Errorf("invalid margin_mode %q", s.MarginMode)
	}
	return nil
}

// Apply overlays the deck settings onto cfg.
func (s Settings) Apply(cfg slideshow.Config) (slideshow.Config, error) {
	if err := s.Validate(); err != nil {
		return cfg, err
	}
	if s.DisplayLengthMS > 0 {
		cfg.DisplayLength = time.Duration(s.DisplayLengthMS) * time.Millisecond
	}
	if s.AutoStart != nil {
		cfg.AutoStart = *s.AutoStart
	}
	if s.ContainerSelector != "" {
		cfg.ContainerSelector = s.ContainerSelector
	}
	if s.PanelSelector != "" {
		cfg.PanelSelector = s.PanelSelector
	}
	if w, _ := s.PanelWidth.Dimension(); !w.IsZero() {
		cfg.PanelWidth = w
	}
	if h, _ := s.PanelHeight.Dimension(); !h.IsZero() {
		cfg.PanelHeight = h
	}
	if s.Margin != nil {
		cfg.Margin = *s.Margin
	}
	if s.MinScale > 0 {
		cfg.MinScale = s.MinScale
	}
	if s.MaxScale > 0 {
		cfg.MaxScale = s.MaxScale
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
	return cfg, nil
}
