package hits

import (
	"github.com/livefir/hits/internal/logging"
	"github.com/livefir/hits/internal/transform"
	"go.uber.org/zap"
)

// Config holds compiler settings.
type Config struct {
	// Name of the exported component factory. Empty means "Component".
	Name string
	// TokenPrefix starts every selector class the compiler adds.
	TokenPrefix string
	// Minify compacts the emitted module.
	Minify bool
	Logger *zap.Logger
}

// Option configures a compilation.
type Option func(*Config)

// DefaultConfig returns the settings used when no options are given.
func DefaultConfig() Config {
	return Config{
		TokenPrefix: transform.DefaultPrefix,
		Minify:      true,
		Logger:      logging.Logger(),
	}
}

// WithName sets the name of the exported component factory.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithTokenPrefix sets the prefix of generated selector classes.
func WithTokenPrefix(prefix string) Option {
	return func(c *Config) {
		c.TokenPrefix = prefix
	}
}

// WithMinify turns whitespace compaction of the emitted module on or off.
func WithMinify(enabled bool) Option {
	return func(c *Config) {
		c.Minify = enabled
	}
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
