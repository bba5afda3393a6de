package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/livefir/hits"
	"github.com/livefir/hits/internal/config"
	"github.com/livefir/hits/internal/logging"
	"go.uber.org/zap"
)

// Build compiles components into <out>/<stem>.js.
//
//	hits build [-o dir] [-no-minify] [-prefix p] [paths...]
//
// Without paths every component below the configured src is built. Every
// file is attempted; failures are joined into the returned error.
func Build(args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return build(cwd, args, os.Stdout)
}

func build(cwd string, args []string, stdout io.Writer) error {
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", cfg.Out, "output directory")
	noMinify := fs.Bool("no-minify", !cfg.Minify, "emit unminified modules")
	prefix := fs.String("prefix", cfg.TokenPrefix, "selector token prefix")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	cfg.Out = *out
	cfg.Minify = !*noMinify
	cfg.TokenPrefix = *prefix
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Resolve(cwd)

	patterns := fs.Args()
	if len(patterns) == 0 {
		patterns = []string{filepath.Join(cfg.Src, "...")}
	}
	paths, err := collectPaths(cwd, patterns)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(stdout, "No components found")
		return nil
	}

	if err := os.MkdirAll(cfg.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	log := logging.Logger()
	written := map[string]string{}
	var allErr error
	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), hits.Extension)
		dest := filepath.Join(cfg.Out, stem+".js")
		if prev, ok := written[dest]; ok {
			allErr = errors.Join(allErr, fmt.Errorf("%s: output %s already written for %s", path, dest, prev))
			continue
		}

		res, err := hits.CompileFile(path,
			hits.WithTokenPrefix(cfg.TokenPrefix),
			hits.WithMinify(cfg.Minify),
			hits.WithLogger(log),
		)
		if err != nil {
			allErr = errors.Join(allErr, err)
			continue
		}
		if err := os.WriteFile(dest, []byte(res.Code), 0644); err != nil {
			allErr = errors.Join(allErr, fmt.Errorf("failed to write %s: %w", dest, err))
			continue
		}
		written[dest] = path
		log.Debug("built component", zap.String("file", path), zap.String("out", dest))
	}

	fmt.Fprintf(stdout, "Built %d of %d components into %s\n", len(written), len(paths), cfg.Out)
	return allErr
}
