package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"islands/internal/noise"
	"islands/internal/palette"
	"islands/internal/terrain"
)

// Duration is a time.Duration that reads "250ms" style strings or bare
// nanosecond counts from JSON and YAML and always writes the string form.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	return d.set(v)
}

// set accepts the generic values both decoders produce. Null and "" are zero.
func (d *Duration) set(v any) error {
	var ns int64
	switch v := v.(type) {
	case nil:
	case string:
		if v == "" {
			break
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		ns = int64(parsed)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return fmt.Errorf("duration: invalid number %s", v)
			}
			n = int64(f)
		}
		ns = n
	case int:
		ns = int64(v)
	case int64:
		ns = v
	case uint64:
		ns = int64(v)
	case float64:
		ns = int64(v)
	default:
		return fmt.Errorf("duration: unsupported value %v (%T)", v, v)
	}
	*d = Duration(ns)
	return nil
}

// Config captures the tunable parameters of terrain generation and its hosts.
type Config struct {
	Map        MapConfig        `json:"map" yaml:"map"`
	Noise      NoiseConfig      `json:"noise" yaml:"noise"`
	Falloff    FalloffConfig    `json:"falloff" yaml:"falloff"`
	Palette    PaletteConfig    `json:"palette" yaml:"palette"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Preview    PreviewConfig    `json:"preview" yaml:"preview"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

type MapConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

const (
	BackendGradient = "gradient"
	BackendPerlin   = "perlin"
	BackendSimplex  = "simplex"
)

type NoiseConfig struct {
	Seed          int64         `json:"seed" yaml:"seed"`       // 0 picks a time-based seed
	Backend       string        `json:"backend" yaml:"backend"` // gradient, perlin or simplex
	GradientScale float64       `json:"gradientScale" yaml:"gradientScale"`
	Layers        []LayerConfig `json:"layers" yaml:"layers"`
	Perlin        PerlinConfig  `json:"perlin" yaml:"perlin"`
	Simplex       SimplexConfig `json:"simplex" yaml:"simplex"`
}

type LayerConfig struct {
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
	Weight float64 `json:"weight" yaml:"weight"`
}

type PerlinConfig struct {
	Alpha     float64 `json:"alpha" yaml:"alpha"`
	Beta      float64 `json:"beta" yaml:"beta"`
	Octaves   int32   `json:"octaves" yaml:"octaves"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

type SimplexConfig struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

type FalloffConfig struct {
	Mode        string  `json:"mode" yaml:"mode"` // none, gaussian or circular
	RadiusRatio float64 `json:"radiusRatio" yaml:"radiusRatio"`
}

type PaletteConfig struct {
	Bands    []BandConfig `json:"bands" yaml:"bands"`
	Fallback string       `json:"fallback" yaml:"fallback"`
}

type BandConfig struct {
	Name  string  `json:"name" yaml:"name"`
	Upper float64 `json:"upper" yaml:"upper"`
	Color string  `json:"color" yaml:"color"`
}

type GenerationConfig struct {
	Workers int `json:"workers" yaml:"workers"` // 0 uses GOMAXPROCS*2
}

type PreviewConfig struct {
	ListenAddress   string   `json:"listenAddress" yaml:"listenAddress"`
	ShutdownTimeout Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

type StoreConfig struct {
	Path   string `json:"path" yaml:"path"`     // empty keeps snapshots in memory
	Retain int    `json:"retain" yaml:"retain"` // 0 keeps every snapshot
}

// Load reads configuration from a JSON or YAML file, chosen by extension. An
// empty path returns defaults. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path in the format implied
// by its extension.
func WriteDefault(path string) error {
	cfg := Default()
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func Default() *Config {
	layers := noise.DefaultLayers()
	layerCfg := make([]LayerConfig, 0, len(layers))
	for _, l := range layers {
		layerCfg = append(layerCfg, LayerConfig{Width: l.Width, Height: l.Height, Weight: l.Weight})
	}

	bands := palette.DefaultBands()
	bandCfg := make([]BandConfig, 0, len(bands))
	for _, b := range bands {
		bandCfg = append(bandCfg, BandConfig{Name: b.Name, Upper: b.Upper, Color: b.Color.Hex()})
	}

	perlin := noise.DefaultPerlinParams()

	return &Config{
		Map: MapConfig{
			Width:  256,
			Height: 256,
		},
		Noise: NoiseConfig{
			Seed:          1337,
			Backend:       BackendGradient,
			GradientScale: noise.DefaultGradientScale,
			Layers:        layerCfg,
			Perlin: PerlinConfig{
				Alpha:     perlin.Alpha,
				Beta:      perlin.Beta,
				Octaves:   perlin.Octaves,
				Frequency: perlin.Frequency,
			},
			Simplex: SimplexConfig{
				Frequency: 4,
			},
		},
		Falloff: FalloffConfig{
			Mode:        string(terrain.FalloffGaussian),
			RadiusRatio: terrain.DefaultFalloffRadiusRatio,
		},
		Palette: PaletteConfig{
			Bands:    bandCfg,
			Fallback: palette.Magenta.Hex(),
		},
		Generation: GenerationConfig{
			Workers: 0,
		},
		Preview: PreviewConfig{
			ListenAddress:   "127.0.0.1:28090",
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Store: StoreConfig{
			Path:   "",
			Retain: 32,
		},
	}
}

func (c *Config) Validate() error {
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return errors.New("map dimensions must be positive")
	}
	switch c.Noise.Backend {
	case BackendGradient:
		if len(c.Noise.Layers) == 0 {
			return errors.New("noise.layers cannot be empty for the gradient backend")
		}
		for i, l := range c.Noise.Layers {
			if l.Width <= 0 || l.Height <= 0 {
				return fmt.Errorf("noise.layers[%d] dimensions must be positive", i)
			}
		}
		if c.Noise.GradientScale < 0 {
			return errors.New("noise.gradientScale cannot be negative")
		}
	case BackendPerlin:
		if c.Noise.Perlin.Octaves <= 0 || c.Noise.Perlin.Frequency <= 0 {
			return errors.New("noise.perlin octaves and frequency must be positive")
		}
	case BackendSimplex:
		if c.Noise.Simplex.Frequency <= 0 {
			return errors.New("noise.simplex.frequency must be positive")
		}
	default:
		return fmt.Errorf("noise.backend %q must be gradient, perlin or simplex", c.Noise.Backend)
	}
	if _, err := c.FalloffSpec(); err != nil {
		return err
	}
	if _, err := c.BuildPalette(); err != nil {
		return err
	}
	if c.Generation.Workers < 0 {
		return errors.New("generation.workers cannot be negative")
	}
	if c.Store.Retain < 0 {
		return errors.New("store.retain cannot be negative")
	}
	return nil
}

// LayerSpecs converts the configured gradient layers.
func (c *Config) LayerSpecs() []noise.LayerSpec {
	specs := make([]noise.LayerSpec, 0, len(c.Noise.Layers))
	for _, l := range c.Noise.Layers {
		specs = append(specs, noise.LayerSpec{Width: l.Width, Height: l.Height, Weight: l.Weight})
	}
	return specs
}

// FalloffSpec converts the falloff section.
func (c *Config) FalloffSpec() (terrain.Falloff, error) {
	mode, err := terrain.ParseFalloffMode(c.Falloff.Mode)
	if err != nil {
		return terrain.Falloff{}, fmt.Errorf("falloff.mode: %w", err)
	}
	f := terrain.Falloff{Mode: mode, RadiusRatio: c.Falloff.RadiusRatio}
	if err := f.Validate(); err != nil {
		return terrain.Falloff{}, fmt.Errorf("falloff: %w", err)
	}
	return f, nil
}

// BuildPalette converts the palette section.
func (c *Config) BuildPalette() (*palette.Palette, error) {
	bands := make([]palette.HexBand, 0, len(c.Palette.Bands))
	for _, b := range c.Palette.Bands {
		bands = append(bands, palette.HexBand{Name: b.Name, Upper: b.Upper, Color: b.Color})
	}
	p, err := palette.FromHex(bands, c.Palette.Fallback)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	return p, nil
}
