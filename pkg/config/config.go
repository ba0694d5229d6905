// Package config loads spargviz settings from TOML or YAML files.
//
// Every section has working defaults ([Default]), so a config file only
// needs the values it changes:
//
//	[server]
//	addr = ":9000"
//	cors_origins = ["http://localhost:3000"]
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[inference]
//	command = "infer-locations"
//	timeout = "5m"
//
// The decoder is chosen by file extension: .toml, .yaml or .yml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/infer"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete application configuration.
type Config struct {
	Server     Server     `toml:"server" yaml:"server"`
	Cache      Cache      `toml:"cache" yaml:"cache"`
	Layout     Layout     `toml:"layout" yaml:"layout"`
	Simulation Simulation `toml:"simulation" yaml:"simulation"`
	Inference  Inference  `toml:"inference" yaml:"inference"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr" yaml:"addr"`
	// RateLimit is the sustained request rate per client in requests per
	// second. Zero disables limiting.
	RateLimit   float64  `toml:"rate_limit" yaml:"rate_limit"`
	Burst       int      `toml:"burst" yaml:"burst"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	// MaxUploadBytes caps uploaded graph documents.
	MaxUploadBytes int64 `toml:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Cache selects and configures the result cache.
type Cache struct {
	Backend       string `toml:"backend" yaml:"backend"`
	Dir           string `toml:"dir" yaml:"dir"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
	// Prefix namespaces every key, so several deployments can share one
	// redis database.
	Prefix string `toml:"prefix" yaml:"prefix"`
}

// Layout holds the canvas defaults applied to every layout request.
type Layout = layout.Options

// Simulation holds the default simulation parameters.
type Simulation struct {
	Params sim.Params `toml:"params" yaml:"params"`
	// Seed fixes the seed of requests that carry none. Zero means random.
	Seed uint64 `toml:"seed" yaml:"seed"`
	// NoiseFactor scales the spatial propagation noise. Zero keeps the
	// built-in factor.
	NoiseFactor float64 `toml:"noise_factor" yaml:"noise_factor"`
}

// Inference configures the external location-inference program. An empty
// Command selects the built-in midpoint estimator.
type Inference struct {
	Command string   `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// Inferrer returns the inferrer described by the section.
func (i Inference) Inferrer() infer.Inferrer {
	if i.Command == "" {
		return infer.Midpoint{}
	}
	return infer.Command{Path: i.Command, Args: i.Args, Timeout: time.Duration(i.Timeout)}
}

// Duration is a time.Duration written as a string such as "90s" in config
// files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8000",
			RateLimit:      20,
			Burst:          40,
			CORSOrigins:    []string{"http://localhost:3000"},
			MaxUploadBytes: 64 << 20,
		},
		Cache: Cache{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
		},
		Layout: Layout{
			MaxSamples: layout.DefaultMaxSamples,
			Width:      layout.DefaultWidth,
			Height:     layout.DefaultHeight,
			Margin:     layout.DefaultMargin,
			MinSpacing: layout.DefaultMinSpacing,
			Nudge:      layout.DefaultNudge,
		},
		Simulation: Simulation{Params: sim.DefaultParams()},
		Inference:  Inference{Timeout: Duration(infer.DefaultTimeout)},
	}
}

// Load reads the file at path on top of [Default] and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, errs.New(errs.ErrCodeUnsupported, "config %s: unknown extension %q (want .toml, .yaml or .yml)", path, ext)
	}
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return errs.New(errs.ErrCodeInvalidParameter, "server rate limit and burst must be non-negative")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst == 0 {
		return errs.New(errs.ErrCodeInvalidParameter, "server burst must be positive when rate limiting")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errs.New(errs.ErrCodeInvalidParameter, "cache redis_addr is required for the redis backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidParameter, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}

	l := c.Layout
	l.SetDefaults()
	if err := l.Validate(); err != nil {
		return err
	}

	p := c.Simulation.Params
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	if c.Simulation.NoiseFactor < 0 {
		return errs.New(errs.ErrCodeInvalidParameter, "simulation noise_factor must be non-negative")
	}
	if c.Inference.Timeout < 0 {
		return errs.New(errs.ErrCodeInvalidParameter, "inference timeout must be non-negative")
	}
	return nil
}
