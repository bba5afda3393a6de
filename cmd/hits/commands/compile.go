package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/livefir/hits"
	"github.com/livefir/hits/internal/config"
	"github.com/livefir/hits/internal/logging"
)

// Compile prints the module compiled from one component to stdout.
//
//	hits compile [-name N] [-no-minify] <file>
func Compile(args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return compile(cwd, args, os.Stdout)
}

func compile(cwd string, args []string, stdout io.Writer) error {
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "name of the exported factory")
	noMinify := fs.Bool("no-minify", !cfg.Minify, "emit an unminified module")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("component file required: hits compile <file>")
	}

	opts := []hits.Option{
		hits.WithTokenPrefix(cfg.TokenPrefix),
		hits.WithMinify(!*noMinify),
		hits.WithLogger(logging.Logger()),
	}
	if *name != "" {
		opts = append(opts, hits.WithName(*name))
	}

	res, err := hits.CompileFile(fs.Arg(0), opts...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, res.Code)
	return err
}
