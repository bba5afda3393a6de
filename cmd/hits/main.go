package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/livefir/hits/cmd/hits/commands"
	"github.com/livefir/hits/cmd/hits/internal/ui"
	"github.com/livefir/hits/internal/logging"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	args, verbose := stripVerbose(os.Args[1:])
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	logger, err := logging.New(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	logging.SetLogger(logger)

	command := args[0]
	args = args[1:]

	switch command {
	case "build":
		err = commands.Build(args)
	case "compile":
		err = commands.Compile(args)
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = commands.Serve(ctx, args)
		stop()
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		ui.PrintError(os.Stderr, err)
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
}

// stripVerbose removes --verbose from args wherever it appears.
func stripVerbose(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	verbose := false
	for _, a := range args {
		if a == "--verbose" || a == "-verbose" {
			verbose = true
			continue
		}
		out = append(out, a)
	}
	return out, verbose
}

func printVersion() {
	fmt.Printf("hits version %s\n", version)

	if info, ok := debug.ReadBuildInfo(); ok {
		var vcsRevision, vcsModified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				vcsRevision = setting.Value
			case "vcs.modified":
				vcsModified = setting.Value
			}
		}

		if commit != "unknown" {
			fmt.Printf("commit: %s\n", commit)
		} else if vcsRevision != "" {
			if len(vcsRevision) > 12 {
				vcsRevision = vcsRevision[:12]
			}
			fmt.Printf("commit: %s\n", vcsRevision)
		}
		if vcsModified == "true" {
			fmt.Printf("modified: true (uncommitted changes)\n")
		}
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("hits component compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hits build [-o dir] [-no-minify] [paths...]   Compile components into <dir>/<name>.js")
	fmt.Println("  hits compile [-name N] <file>                 Print the compiled module")
	fmt.Println("  hits serve [-addr host:port] [dir]            Serve components with live reload")
	fmt.Println("  hits version                                  Show version information")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --verbose   Log debug output")
	fmt.Println()
	fmt.Println("Paths accept files, directories and <dir>/... patterns.")
	fmt.Println("Defaults are read from hits.yaml in the working directory.")
}
