// Package config loads the demo settings from defaults, a .env file, the
// environment and the command line, each overriding the one before.
package config

import (
	"flag"
	"io/fs"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvPrefix prefixes every environment variable, as in VKPBR_WIDTH.
const EnvPrefix = "VKPBR_"

type Settings struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool

	Validation bool
	// Verbose forwards info and verbose validation messages too.
	Verbose bool
	Vsync   bool
	// GPU is the adapter index to use; negative picks automatically.
	GPU     int
	Compute bool

	LogLevel      string
	// Mesh is an OBJ file pushed through the staging upload at startup. It
	// is held in device-local buffers but not drawn.
	Mesh          string
	StatsInterval time.Duration
}

func Defaults() Settings {
	return Settings{
		Title:         "vkpbr",
		Width:         1280,
		Height:        720,
		Vsync:         true,
		GPU:           -1,
		Compute:       true,
		LogLevel:      "info",
		StatsInterval: time.Second,
	}
}

// Load builds the settings. A missing envFile is not an error.
func Load(envFile string, args []string) (Settings, error) {
	s := Defaults()

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, errors.Wrapf(err, "read %s", envFile)
		}
	}
	envy.Reload()

	err := s.applyEnv(envy.Get)
	if err != nil {
		return s, err
	}

	err = s.parseFlags(args)
	if err != nil {
		return s, err
	}

	return s, s.Validate()
}

func (s *Settings) applyEnv(get func(key, value string) string) error {
	var err error
	str := func(name string, dst *string) {
		*dst = get(EnvPrefix+name, *dst)
	}
	num := func(name string, dst *int) {
		if v := get(EnvPrefix+name, ""); v != "" && err == nil {
			*dst, err = strconv.Atoi(v)
			err = errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
	}
	boolean := func(name string, dst *bool) {
		if v := get(EnvPrefix+name, ""); v != "" && err == nil {
			*dst, err = strconv.ParseBool(v)
			err = errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
	}

	str("TITLE", &s.Title)
	num("WIDTH", &s.Width)
	num("HEIGHT", &s.Height)
	boolean("FULLSCREEN", &s.Fullscreen)
	boolean("VALIDATION", &s.Validation)
	boolean("VERBOSE", &s.Verbose)
	boolean("VSYNC", &s.Vsync)
	num("GPU", &s.GPU)
	boolean("COMPUTE", &s.Compute)
	str("LOG_LEVEL", &s.LogLevel)
	str("MESH", &s.Mesh)

	if v := get(EnvPrefix+"STATS_INTERVAL", ""); v != "" && err == nil {
		s.StatsInterval, err = time.ParseDuration(v)
		err = errors.Wrapf(err, "%sSTATS_INTERVAL", EnvPrefix)
	}
	return err
}

func (s *Settings) parseFlags(args []string) error {
	return errors.Wrap(s.flagSet().Parse(args), "parse flags")
}

func (s *Settings) flagSet() *flag.FlagSet {
	flags := flag.NewFlagSet("vkpbr", flag.ContinueOnError)
	flags.StringVar(&s.Title, "title", s.Title, "Window title")
	flags.IntVar(&s.Width, "width", s.Width, "Initial window width")
	flags.IntVar(&s.Height, "height", s.Height, "Initial window height")
	flags.BoolVar(&s.Fullscreen, "fullscreen", s.Fullscreen, "Open a fullscreen window")
	flags.BoolVar(&s.Validation, "vkdbg", s.Validation, "Load Vulkan validation layers")
	flags.BoolVar(&s.Verbose, "verbose", s.Verbose, "Log info and verbose validation messages")
	flags.BoolVar(&s.Vsync, "vsync", s.Vsync, "Wait for vertical blank when presenting")
	flags.IntVar(&s.GPU, "gpu", s.GPU, "Adapter index, negative to pick automatically")
	flags.BoolVar(&s.Compute, "compute", s.Compute, "Run the async compute stage when a compute queue exists")
	flags.StringVar(&s.LogLevel, "log", s.LogLevel, "Log level")
	flags.StringVar(&s.Mesh, "mesh", s.Mesh, "OBJ mesh to load and upload to device memory at startup (exercises the staging upload, not drawn)")
	flags.DurationVar(&s.StatsInterval, "stats", s.StatsInterval, "Frame stats interval, 0 disables")
	return flags
}

// Validate rejects settings the demo cannot start with.
func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("window size %dx%d must be positive", s.Width, s.Height)
	}
	if s.StatsInterval < 0 {
		return errors.Errorf("stats interval %s is negative", s.StatsInterval)
	}
	_, err := s.Level()
	return err
}

func (s Settings) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(s.LogLevel)
	return level, errors.Wrapf(err, "log level %q", s.LogLevel)
}
