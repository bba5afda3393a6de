// Package config loads the project file hits.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the name of the project config file
	FileName = "hits.yaml"

	DefaultSrc          = "."
	DefaultOut          = "dist"
	DefaultTokenPrefix  = "hits_"
	DefaultAddr         = "127.0.0.1:5173"
	DefaultPollInterval = 500 * time.Millisecond
)

var tokenPrefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Config represents a hits project
type Config struct {
	// Src is the directory searched for components
	Src string `yaml:"src" validate:"required"`

	// Out is the directory compiled modules are written to
	Out string `yaml:"out" validate:"required"`

	// TokenPrefix starts every selector class the compiler adds
	TokenPrefix string `yaml:"token_prefix" validate:"required,tokenprefix"`

	// Minify compacts emitted modules
	Minify bool `yaml:"minify"`

	Serve ServeConfig `yaml:"serve"`
}

// ServeConfig configures the development server
type ServeConfig struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=10ms"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Src:         DefaultSrc,
		Out:         DefaultOut,
		TokenPrefix: DefaultTokenPrefix,
		Minify:      true,
		Serve: ServeConfig{
			Addr:         DefaultAddr,
			PollInterval: DefaultPollInterval,
		},
	}
}

// Path returns the config file path inside dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads hits.yaml from dir. Fields missing from the file keep their
// defaults; a missing file yields DefaultConfig. The result is validated.
func Load(dir string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes config to hits.yaml in dir
func Save(dir string, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Resolve makes Src and Out relative to dir unless they are absolute
func (c *Config) Resolve(dir string) {
	if !filepath.IsAbs(c.Src) {
		c.Src = filepath.Join(dir, c.Src)
	}
	if !filepath.IsAbs(c.Out) {
		c.Out = filepath.Join(dir, c.Out)
	}
}

// Validate checks the config against its field rules
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var msgs []string
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "tokenprefix":
			msgs = append(msgs, fmt.Sprintf("%s %q must start with a letter and contain only letters, digits, '-' and '_'", field, e.Value()))
		case "hostname_port":
			msgs = append(msgs, fmt.Sprintf("%s %q must be host:port", field, e.Value()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("invalid %s: %s", FileName, strings.Join(msgs, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// registering a fresh tag cannot fail
	_ = v.RegisterValidation("tokenprefix", func(fl validator.FieldLevel) bool {
		return tokenPrefixPattern.MatchString(fl.Field().String())
	})
	return v
}
