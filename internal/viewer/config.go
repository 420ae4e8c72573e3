package viewer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/yandex/perforator-flame/internal/tracing"
	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
)

type InputFormat string

const (
	InputAuto      InputFormat = "auto"
	InputCollapsed InputFormat = "collapsed"
	InputPProf     InputFormat = "pprof"
)

const (
	defaultMaxInputSize   = "1GiB"
	defaultViewportWidth  = 1200
	defaultViewportHeight = 800
	defaultDrawListPath   = "flamegraph.json"
	defaultMinimapPath    = "minimap.png"
	defaultHTTPPort       = 8080
	defaultMetricsPort    = 8081
)

type InputConfig struct {
	Format InputFormat `yaml:"format"`
	// MaxSize bounds the decompressed input, like "256MiB".
	MaxSize string `yaml:"max_size"`
	// TimeOrdered builds a flame chart tree from `ts=` prefixed stacks.
	TimeOrdered bool    `yaml:"time_ordered"`
	DepthLimit  int     `yaml:"depth_limit"`
	MinWeight   float64 `yaml:"min_weight"`
	RootName    string  `yaml:"root_name"`

	maxSize uint64
}

type ViewportConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	ScrollTop  float64 `yaml:"scroll_top"`
	ScrollLeft float64 `yaml:"scroll_left"`
}

type OutputConfig struct {
	DrawList string `yaml:"draw_list"`
	Minimap  string `yaml:"minimap"`
	Metrics  string `yaml:"metrics"`
}

type ServerConfig struct {
	HTTPPort    uint `yaml:"http_port"`
	MetricsPort uint `yaml:"metrics_port"`
}

type Config struct {
	Input    InputConfig     `yaml:"input"`
	Engine   engine.Config   `yaml:"engine"`
	Viewport ViewportConfig  `yaml:"viewport"`
	Output   OutputConfig    `yaml:"output"`
	Server   ServerConfig    `yaml:"server"`
	Tracing  *tracing.Config `yaml:"tracing"`
	// Selection lists function names from the root to the selected row.
	Selection []string `yaml:"selection"`
}

func (c *Config) fillDefault() {
	if c.Input.Format == "" {
		c.Input.Format = InputAuto
	}
	if c.Input.MaxSize == "" {
		c.Input.MaxSize = defaultMaxInputSize
	}
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = defaultViewportWidth
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = defaultViewportHeight
	}
	if c.Output.DrawList == "" {
		c.Output.DrawList = defaultDrawListPath
	}
	if c.Output.Minimap == "" {
		c.Output.Minimap = defaultMinimapPath
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = defaultHTTPPort
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = defaultMetricsPort
	}
	c.Engine.FillDefault()
}

func (c *Config) validate() error {
	switch c.Input.Format {
	case InputAuto, InputCollapsed, InputPProf:
	default:
		return fmt.Errorf("unknown input format %q", c.Input.Format)
	}

	maxSize, err := humanize.ParseBytes(c.Input.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid input max size %q: %w", c.Input.MaxSize, err)
	}
	c.Input.maxSize = maxSize

	if c.Input.DepthLimit < 0 {
		return fmt.Errorf("input depth limit must be non-negative, got %d", c.Input.DepthLimit)
	}
	if c.Input.MinWeight < 0 || c.Input.MinWeight >= 1 {
		return fmt.Errorf("input min weight must be in [0, 1), got %v", c.Input.MinWeight)
	}
	return nil
}

// Normalize fills defaults and validates c. Call it again after changing
// fields of a parsed config.
func (c *Config) Normalize() error {
	c.fillDefault()
	return c.validate()
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	conf := &Config{}
	conf.fillDefault()
	if err := conf.validate(); err != nil {
		panic(err)
	}
	return conf
}

func ParseConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("can't open config file: %w", err)
	}
	defer file.Close()

	var conf Config

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	err = dec.Decode(&conf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse config: %s, with error: %w", configPath, err)
	}

	conf.fillDefault()

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &conf, nil
}
