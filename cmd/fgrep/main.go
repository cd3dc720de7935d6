package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fgrep/internal/config"
	"github.com/standardbeagle/fgrep/internal/debug"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
	"github.com/standardbeagle/fgrep/internal/server"
	"github.com/standardbeagle/fgrep/internal/version"
)

// Exit codes.
const (
	exitIO          = 1
	exitBadRequest  = 2
	exitInterrupted = 130
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "fgrep:", msg)
		}
		os.Exit(exitCode(err))
	}
}

// newApp builds the CLI. Output goes to stdout, diagnostics and progress to stderr.
func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                   "fgrep",
		Usage:                  "Cancellable multi-file content search",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		// errors are reported by main so tests can inspect them
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Write debug logging to stderr",
				EnvVars: []string{"FGREP_DEBUG"},
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug logging to a file under the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.Bool("debug-log"):
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				debug.Enable(true)
				errorf(c, "debug log: %s\n", path)
			case c.Bool("debug"):
				debug.Enable(true)
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			searchCommand(),
			serveCommand(),
			abortCommand(),
			statusCommand(),
			shutdownCommand(),
			mcpCommand(),
			configCommand(),
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					fmt.Fprintf(c.App.Writer, "build: %s\n", version.BuildID())
					return nil
				},
			},
		},
	}
}

// exitCode maps an error to the process exit status: 2 for a malformed
// pattern or name filter, 1 for everything else.
func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if fgerrors.IsRequestError(err) {
		return exitBadRequest
	}
	return exitIO
}

// rootArg resolves the optional directory argument at index i.
func rootArg(c *cli.Context, i int) (string, error) {
	dir := c.Args().Get(i)
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	return abs, nil
}

// loadConfig loads the configuration for root and applies the common
// scan flags when the command defines them.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if c.IsSet("exclude") {
		cfg.Exclude = config.DeduplicatePatterns(append(cfg.Exclude, c.StringSlice("exclude")...))
	}
	if c.IsSet("gitignore") {
		cfg.RespectGitignore = c.Bool("gitignore")
	}
	if c.IsSet("mmap") {
		cfg.Scan.Mmap = c.String("mmap")
	}
	if c.IsSet("max-file-size") {
		cfg.Scan.MaxFileSize = c.Int64("max-file-size")
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitBadRequest)
	}
	return cfg, nil
}

// scanFlags are shared by every command that builds an engine.
func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Skip paths matching a glob (e.g., --exclude '**/node_modules/**')",
		},
		&cli.BoolFlag{
			Name:  "gitignore",
			Usage: "Skip paths ignored by the root's .gitignore",
		},
		&cli.StringFlag{
			Name:  "mmap",
			Usage: "Memory-map files: auto, always or never",
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "Skip files larger than this many bytes (0 = no limit)",
		},
	}
}

// socketFor picks the configured socket or the per-root default.
func socketFor(c *cli.Context, cfg *config.Config, root string) string {
	if s := c.String("socket"); s != "" {
		return s
	}
	if cfg != nil && cfg.Server.Socket != "" {
		return cfg.Server.Socket
	}
	return server.SocketPathForRoot(root)
}

func socketFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "socket",
		Usage: "Server socket path (default: derived from the root directory)",
	}
}

func errorf(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, format, args...)
}
