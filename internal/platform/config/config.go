// Package config loads the ingestor's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTarget is returned by LookupTarget for a name not in the file.
var ErrUnknownTarget = errors.New("unknown target")

var validate = validator.New()

// Config is the root of the YAML file. Secrets stay in the environment.
type Config struct {
	Logging   Logging           `yaml:"logging"`
	Providers Providers         `yaml:"providers"`
	Retry     Retry             `yaml:"retry"`
	Ingest    Ingest            `yaml:"ingest"`
	Cache     Cache             `yaml:"cache"`
	Server    Server            `yaml:"server"`
	Targets   map[string]Target `yaml:"targets" validate:"required,min=1,dive"`
}

type Logging struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// Providers selects the ordered primary and secondary data sources.
type Providers struct {
	Primary   string `yaml:"primary" default:"twelvedata" validate:"oneof=twelvedata yahoo polygon"`
	Secondary string `yaml:"secondary" default:"yahoo" validate:"oneof=twelvedata yahoo polygon,nefield=Primary"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `yaml:"base_delay" default:"1s" validate:"gte=0"`
}

type Ingest struct {
	Workers   int    `yaml:"workers" default:"1" validate:"gte=1,lte=32"`
	ReportDir string `yaml:"report_dir" default:"out/backfill"`
}

type Cache struct {
	TTL       time.Duration `yaml:"ttl" default:"10m"`
	Namespace string        `yaml:"namespace" default:"ohlcv"`
}

type Server struct {
	Port         int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10m"`
}

// Target は取り込み対象の指数です。キー名が Name になります。
type Target struct {
	Name             string `yaml:"-"`
	Code             string `yaml:"code" validate:"required"`
	Country          string `yaml:"country" validate:"required"`
	IndexCode        string `yaml:"index_code" validate:"required"`
	WindowDays       int    `yaml:"window_days" default:"400" validate:"gte=1"`
	DefaultExchange  string `yaml:"default_exchange" default:"NASDAQ"`
	DefaultChunkDays int    `yaml:"default_chunk_days" validate:"gte=0"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes b, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	// map の値はアドレスを取れないので 1 件ずつ詰め直す
	for name, t := range c.Targets {
		if err := defaults.Set(&t); err != nil {
			return nil, fmt.Errorf("apply defaults to target %s: %w", name, err)
		}
		t.Name = name
		c.Targets[name] = t
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LookupTarget returns the named target.
func (c *Config) LookupTarget(name string) (Target, error) {
	t, ok := c.Targets[name]
	if !ok {
		return Target{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownTarget, name, strings.Join(c.TargetNames(), ", "))
	}
	return t, nil
}

// TargetNames returns the configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for n := range c.Targets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
