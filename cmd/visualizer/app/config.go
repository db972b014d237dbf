package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/spectralyze/internal/ffmpeg"
	"github.com/roman-kulish/spectralyze/internal/spectrum"
)

const (
	DarkTheme  Theme = "dark"
	LightTheme Theme = "light"

	defaultFPS      = 20
	defaultLineDPI  = 80
	defaultPolarDPI = 100
)

// Theme is the background scheme of the line chart
type Theme string

var validThemes = map[Theme]struct{}{
	DarkTheme:  {},
	LightTheme: {},
}

type Config struct {
	DatasetPath string
	DBPath      string
	SessionID   int64
	AudioPath   string
	FFmpegPath  string

	Mode      spectrum.Mode
	FPS       int
	DPI       float64
	FreqRange *spectrum.Range
	MagRange  *spectrum.Range
	Wide      bool
	NoTitle   bool
	NoLabels  bool
	NoBorders bool
	LogScale  bool
	LineColor string
	Theme     Theme
	BarTheme  ColorTheme
	Estimator spectrum.EstimatorConfig

	LogLevel slog.Level
	Progress bool
	Keep     bool

	runnerOptions []func(*ffmpeg.Runner)
}

// Profile holds render settings loaded from a YAML file. Unset fields keep
// the defaults, flags given on the command line win over the profile.
type Profile struct {
	Mode      string                   `yaml:"mode"`
	FPS       int                      `yaml:"fps"`
	DPI       float64                  `yaml:"dpi"`
	Freq      *spectrum.Range          `yaml:"freq"`
	Magnitude *spectrum.Range          `yaml:"magnitude"`
	Wide      *bool                    `yaml:"wide"`
	NoTitle   *bool                    `yaml:"noTitle"`
	NoLabels  *bool                    `yaml:"noLabels"`
	NoBorders *bool                    `yaml:"noBorders"`
	Log       *bool                    `yaml:"log"`
	Color     string                   `yaml:"color"`
	Theme     string                   `yaml:"theme"`
	BarTheme  string                   `yaml:"barTheme"`
	FFmpeg    string                   `yaml:"ffmpeg"`
	LogLevel  string                   `yaml:"logLevel"`
	Estimator spectrum.EstimatorConfig `yaml:"estimator"`
}

func NewConfig() *Config {
	return &Config{
		FFmpegPath: ffmpeg.DefaultRuntime,
		Mode:       spectrum.ModeLine,
		FPS:        defaultFPS,
		Theme:      DarkTheme,
		BarTheme:   DefaultBarTheme,
		LogLevel:   slog.LevelInfo,
	}
}

// LoadProfile reads a YAML render profile.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile: %w", err)
	}
	defer f.Close()

	var p Profile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding profile '%s': %w", path, err)
	}
	return &p, nil
}

func (p *Profile) apply(c *Config) error {
	if p.Mode != "" {
		c.Mode = spectrum.Mode(p.Mode)
	}
	if p.FPS != 0 {
		c.FPS = p.FPS
	}
	if p.DPI != 0 {
		c.DPI = p.DPI
	}
	if p.Freq != nil {
		c.FreqRange = p.Freq
	}
	if p.Magnitude != nil {
		c.MagRange = p.Magnitude
	}
	if p.Wide != nil {
		c.Wide = *p.Wide
	}
	if p.NoTitle != nil {
		c.NoTitle = *p.NoTitle
	}
	if p.NoLabels != nil {
		c.NoLabels = *p.NoLabels
	}
	if p.NoBorders != nil {
		c.NoBorders = *p.NoBorders
	}
	if p.Log != nil {
		c.LogScale = *p.Log
	}
	if p.Color != "" {
		c.LineColor = p.Color
	}
	if p.Theme != "" {
		c.Theme = Theme(p.Theme)
	}
	if p.BarTheme != "" {
		c.BarTheme = ColorTheme(p.BarTheme)
	}
	if p.FFmpeg != "" {
		c.FFmpegPath = p.FFmpeg
	}
	if p.LogLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(p.LogLevel)); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	c.Estimator = p.Estimator
	return nil
}

// rangeValue parses "min,max" into a range
type rangeValue struct {
	r **spectrum.Range
}

func (v rangeValue) String() string {
	if v.r == nil || *v.r == nil {
		return ""
	}
	return (*v.r).String()
}

func (v rangeValue) Set(s string) error {
	r, err := parseRange(s)
	if err != nil {
		return err
	}
	*v.r = r
	return nil
}

func parseRange(s string) (*spectrum.Range, error) {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("range '%s' must be given as min,max", s)
	}

	minValue, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing range minimum: %w", err)
	}
	maxValue, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing range maximum: %w", err)
	}
	return &spectrum.Range{Min: minValue, Max: maxValue}, nil
}

func NewConfigFromCLI() (*Config, error) {
	return NewConfigFromArgs(os.Args[1:], os.Stderr)
}

// NewConfigFromArgs parses command line arguments. Usage is printed to output
// when the arguments are invalid.
func NewConfigFromArgs(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("visualizer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: visualizer [flags] <spectrum.json> <audio>")
		fmt.Fprintln(fs.Output(), "       visualizer [flags] -db <file> -s <session> <audio>")
		fs.PrintDefaults()
	}

	var (
		profilePath, mode, theme, barTheme, lineColor, ffmpegPath string
		fps                                                       int
		dpi                                                       float64
		freqRange, magRange                                       *spectrum.Range
		wide, noTitle, noLabels, noBorders, logScale, verbose     bool
		c                                                         = NewConfig()
	)

	fs.StringVar(&profilePath, "profile", "", "Path to a YAML render profile")
	fs.StringVar(&c.DBPath, "db", "", "Read the dataset from a session database instead of a JSON file")
	fs.Int64Var(&c.SessionID, "s", 0, "Session ID, used with -db")
	fs.StringVar(&mode, "mode", string(spectrum.ModeLine), "Visualization mode. [line, polar]")
	fs.IntVar(&fps, "fps", defaultFPS, "Video frame rate")
	fs.Float64Var(&dpi, "dpi", 0, "Figure resolution (default 80 for line, 100 for polar)")
	fs.Var(rangeValue{&freqRange}, "x", "Frequency axis range as min,max")
	fs.Var(rangeValue{&magRange}, "y", "Magnitude axis range as min,max")
	fs.BoolVar(&wide, "wide", false, "Use a 16:9 figure instead of 4:3")
	fs.BoolVar(&noTitle, "no-title", false, "Hide the frame title")
	fs.BoolVar(&noLabels, "no-labels", false, "Hide the axis names")
	fs.BoolVar(&noBorders, "no-borders", false, "Hide the chart borders")
	fs.BoolVar(&logScale, "log", false, "Use a log2 frequency axis (line mode)")
	fs.StringVar(&lineColor, "color", "", "Line colour, a name or #rrggbb")
	fs.StringVar(&theme, "theme", string(DarkTheme), "Chart theme. [dark, light]")
	fs.StringVar(&barTheme, "bar-theme", string(DefaultBarTheme), "Polar bar colour theme. [classic, grayscale, jungle, thermal, marine, enhanced]")
	fs.StringVar(&ffmpegPath, "ffmpeg", ffmpeg.DefaultRuntime, "ffmpeg executable name or path")
	fs.BoolVar(&verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.Progress, "progress", false, "Show a progress bar while rendering")
	fs.BoolVar(&c.Keep, "keep", false, "Keep the intermediate spectrum video")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if profilePath != "" {
		p, err := LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		if err = p.apply(c); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			c.Mode = spectrum.Mode(strings.ToLower(mode))
		case "fps":
			c.FPS = fps
		case "dpi":
			c.DPI = dpi
		case "x":
			c.FreqRange = freqRange
		case "y":
			c.MagRange = magRange
		case "wide":
			c.Wide = wide
		case "no-title":
			c.NoTitle = noTitle
		case "no-labels":
			c.NoLabels = noLabels
		case "no-borders":
			c.NoBorders = noBorders
		case "log":
			c.LogScale = logScale
		case "color":
			c.LineColor = lineColor
		case "theme":
			c.Theme = Theme(strings.ToLower(theme))
		case "bar-theme":
			c.BarTheme = ColorTheme(strings.ToLower(barTheme))
		case "ffmpeg":
			c.FFmpegPath = ffmpegPath
		case "verbose":
			if verbose {
				c.LogLevel = slog.LevelDebug
			}
		}
	})

	if c.DPI == 0 {
		c.DPI = defaultLineDPI
		if c.Mode == spectrum.ModePolar {
			c.DPI = defaultPolarDPI
		}
	}

	if err := c.setInputs(fs.Args()); err != nil {
		fs.Usage()
		return nil, err
	}
	if err := c.validate(); err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}

func (c *Config) setInputs(args []string) error {
	if c.DBPath != "" {
		if c.SessionID <= 0 {
			return errors.New("session id is required with -db")
		}
		if len(args) != 1 {
			return errors.New("expected exactly one positional argument: audio file")
		}
		c.AudioPath = args[0]
		return nil
	}

	if len(args) != 2 {
		return errors.New("expected two positional arguments: dataset file and audio file")
	}
	c.DatasetPath, c.AudioPath = args[0], args[1]
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.Mode != spectrum.ModeLine && c.Mode != spectrum.ModePolar:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	case c.FPS <= 0:
		return fmt.Errorf("invalid frame rate: %d", c.FPS)
	case c.DPI <= 0:
		return fmt.Errorf("invalid dpi: %g", c.DPI)
	}

	if _, ok := validThemes[c.Theme]; !ok {
		return fmt.Errorf("invalid theme: %s", c.Theme)
	}
	if _, ok := validBarThemes[c.BarTheme]; !ok {
		return fmt.Errorf("invalid bar theme: %s", c.BarTheme)
	}
	if c.LineColor != "" {
		if _, err := parseColor(c.LineColor); err != nil {
			return err
		}
	}
	return nil
}
