package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/livefir/hits/internal/config"
	"github.com/livefir/hits/internal/devserver"
	"github.com/livefir/hits/internal/logging"
)

// Serve runs the development server for the project in dir (default ".")
// until ctx is cancelled.
//
//	hits serve [-addr host:port] [dir]
func Serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", "", "listen address (default from hits.yaml)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.Resolve(dir)

	return devserver.New(cfg, logging.Logger()).Run(ctx)
}
