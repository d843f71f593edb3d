package slideshow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoPosition is the cursor value for "none": the previous position before
// any transition, and the current position of an empty deck.
const NoPosition = 0

var (
	// ErrSchedule is returned when the auto-advance timer cannot be armed.
	ErrSchedule = errors.New("slideshow: cannot schedule auto-advance")

	// ErrMeasure is returned when the container has no usable size.
	ErrMeasure = errors.New("slideshow: cannot measure container")
)

// BoundaryPolicy decides where out-of-range navigation lands.
type BoundaryPolicy string

const (
	// BoundaryClamp keeps Previous at the first panel and wraps Next to it.
	BoundaryClamp BoundaryPolicy = "clamp"
	// BoundaryWrap sends both out-of-range directions to the first panel.
	BoundaryWrap BoundaryPolicy = "wrap"
)

// MarginMode selects how Config.Margin shrinks the usable container.
type MarginMode string

const (
	MarginSymmetric MarginMode = "symmetric"
	// MarginLegacy reduces the usable width by height*margin, matching decks
	// laid out by older controllers.
	MarginLegacy MarginMode = "legacy"
)

// Size is a width and height in host units.
type Size struct {
	W float64
	H float64
}

func (s Size) Valid() bool { return s.W > 0 && s.H > 0 }

// Transform places a scaled panel inside its container.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
	// Zoom asks the host to magnify natively instead of transforming.
	Zoom bool
}

// Dimension is a nominal panel length, either absolute or a percentage of
// the container.
type Dimension struct {
	Value   float64
	Percent bool
}

func Absolute(v float64) Dimension { return Dimension{Value: v} }

func Percent(v float64) Dimension { return Dimension{Value: v, Percent: true} }

func ParseDimension(raw string) (Dimension, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Dimension{}, nil
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Dimension{}, fmt.Errorf("invalid dimension %q", raw)
	}
	if v < 0 {
		return Dimension{}, fmt.Errorf("negative dimension %q", raw)
	}
	return Dimension{Value: v, Percent: pct}, nil
}

func (d Dimension) IsZero() bool { return d.Value == 0 }

func (d Dimension) Resolve(container float64) float64 {
	if d.Percent {
		return container * d.Value / 100
	}
	return d.Value
}

func (d Dimension) String() string {
	v := strconv.FormatFloat(d.Value, 'f', -1, 64)
	if d.Percent {
		return v + "%"
	}
	return v
}

// Config is fixed by Initialize; a later Initialize replaces it wholesale.
type Config struct {
	DisplayLength     time.Duration
	AutoStart         bool
	ContainerSelector string
	PanelSelector     string
	PanelWidth        Dimension
	PanelHeight       Dimension
	Margin            float64
	MinScale          float64
	MaxScale          float64
	Boundary          BoundaryPolicy
	MarginMode        MarginMode
	PauseOnPrevious   bool
}

func DefaultConfig() Config {
	return Config{
		DisplayLength:     3000 * time.Millisecond,
		AutoStart:         true,
		ContainerSelector: "#slideDeck",
		PanelSelector:     ".slide",
		PanelWidth:        Absolute(960),
		PanelHeight:       Absolute(700),
		Margin:            0.1,
		MinScale:          0.2,
		MaxScale:          1.5,
		Boundary:          BoundaryClamp,
		MarginMode:        MarginSymmetric,
	}
}

// normalize fills unset fields from DefaultConfig and validates the rest.
func (c Config) normalize() (Config, error) {
	def := DefaultConfig()
	if c.DisplayLength <= 0 {
		c.DisplayLength = def.DisplayLength
	}
	if strings.TrimSpace(c.ContainerSelector) == "" {
		c.ContainerSelector = def.ContainerSelector
	}
	if strings.TrimSpace(c.PanelSelector) == "" {
		c.PanelSelector = def.PanelSelector
	}
	if c.PanelWidth.IsZero() {
		c.PanelWidth = def.PanelWidth
	}
	if c.PanelHeight.IsZero() {
		c.PanelHeight = def.PanelHeight
	}
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = def.MaxScale
	}
	switch c.Boundary {
	case "":
		c.Boundary = BoundaryClamp
	case BoundaryClamp, BoundaryWrap:
	default:
		return c, fmt.Errorf("invalid boundary policy %q", c.Boundary)
	}
	switch c.MarginMode {
	case "":
		c.MarginMode = MarginSymmetric
	case MarginSymmetric, MarginLegacy:
	default:
		return c, fmt.Errorf("invalid margin mode %q", c.MarginMode)
	}
	if c.MinScale > c.MaxScale {
		return c, fmt.Errorf("min scale %.3f exceeds max scale %.3f", c.MinScale, c.MaxScale)
	}
	if c.Margin < 0 || c.Margin >= 1 {
		return c, fmt.Errorf("margin %.3f out of range [0,1)", c.Margin)
	}
	return c, nil
}

// Cursor holds 1-based positions; NoPosition means none.
type Cursor struct {
	Current  int
	Previous int
}
