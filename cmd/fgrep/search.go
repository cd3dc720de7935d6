package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fgrep/internal/config"
	"github.com/standardbeagle/fgrep/internal/display"
	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/server"
	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/internal/watch"
)

func searchCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "match-by-word",
			Aliases: []string{"m"},
			Usage:   "Match whole words only",
		},
		&cli.BoolFlag{
			Name:    "case-sensitive",
			Aliases: []string{"c"},
			Usage:   "Match case exactly",
		},
		&cli.BoolFlag{
			Name:    "regexp",
			Aliases: []string{"r"},
			Usage:   "Treat PATTERN as a regular expression",
		},
		&cli.BoolFlag{
			Name:    "recursive",
			Aliases: []string{"s"},
			Usage:   "Descend into subdirectories (use --recursive=false to stay in DIR)",
			Value:   true,
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Print results as one JSON document",
		},
		&cli.BoolFlag{
			Name:  "ndjson",
			Usage: "Print one JSON message per matching line",
		},
		&cli.StringFlag{
			Name:  "color",
			Usage: "Highlight output: auto, always or never",
			Value: "auto",
		},
		&cli.BoolFlag{
			Name:    "progress",
			Aliases: []string{"p"},
			Usage:   "Show the file being searched on stderr",
		},
		&cli.BoolFlag{
			Name:  "relative",
			Usage: "Print paths relative to DIR",
		},
		&cli.BoolFlag{
			Name:  "sort",
			Usage: "Order results by path and line",
		},
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Search again whenever files under DIR change",
		},
		&cli.BoolFlag{
			Name:  "server",
			Usage: "Run the search on a running 'fgrep serve' for DIR",
		},
		socketFlag(),
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Cancel the search after this long and print partial results",
		},
	}
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s", "grep"},
		Usage:     "Search file contents under DIR",
		ArgsUsage: "PATTERN [DIR] [FILE_TYPE]",
		Description: `Searches every file under DIR (default: the current directory) whose name
matches FILE_TYPE (default "*.*", every file) and prints each matching line
as path:line:column:text.

Ctrl-C stops the search at the next file and prints what was found so far.`,
		Flags:  append(flags, scanFlags()...),
		Action: runSearch,
	}
}

// searchRequest builds the request from config defaults, positional
// arguments and explicitly set flags, in increasing precedence.
func searchRequest(c *cli.Context, cfg *config.Config, root string) types.SearchRequest {
	req := cfg.Request(c.Args().Get(0), root)
	if ft := c.Args().Get(2); ft != "" {
		req.NameFilter = ft
	}
	if c.IsSet("match-by-word") {
		req.WholeWord = c.Bool("match-by-word")
	}
	if c.IsSet("case-sensitive") {
		req.CaseSensitive = c.Bool("case-sensitive")
	}
	if c.IsSet("regexp") {
		req.IsRegex = c.Bool("regexp")
	}
	if c.IsSet("recursive") {
		req.Recursive = c.Bool("recursive")
	}
	return req
}

func outputOptions(c *cli.Context, root string) (display.Options, error) {
	format := display.FormatText
	switch {
	case c.Bool("json") && c.Bool("ndjson"):
		return display.Options{}, cli.Exit("--json and --ndjson are mutually exclusive", exitBadRequest)
	case c.Bool("json"):
		format = display.FormatJSON
	case c.Bool("ndjson"):
		format = display.FormatNDJSON
	}

	mode, err := display.ParseColorMode(c.String("color"))
	if err != nil {
		return display.Options{}, cli.Exit(err.Error(), exitBadRequest)
	}
	out, _ := c.App.Writer.(*os.File)

	opts := display.Options{
		Format: format,
		Color:  format == display.FormatText && display.ColorEnabled(mode, out, display.EnvMap(os.Environ())),
		Sort:   c.Bool("sort"),
	}
	if c.Bool("relative") {
		opts.Root = root
	}
	return opts, nil
}

func runSearch(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return cli.Exit("missing PATTERN (usage: fgrep search PATTERN [DIR] [FILE_TYPE])", exitBadRequest)
	}
	if c.Args().Len() > 3 {
		return cli.Exit("too many arguments (usage: fgrep search PATTERN [DIR] [FILE_TYPE])", exitBadRequest)
	}
	if c.Bool("watch") && c.Bool("server") {
		return cli.Exit("--watch and --server are mutually exclusive", exitBadRequest)
	}

	root, err := rootArg(c, 1)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	req := searchRequest(c, cfg, root)
	opts, err := outputOptions(c, root)
	if err != nil {
		return err
	}
	formatter := display.NewFormatter(opts)

	sigCtx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress *display.ProgressPrinter
	sink := search.Discard
	if c.Bool("progress") {
		errFile, _ := c.App.ErrWriter.(*os.File)
		progress = display.NewProgressPrinter(c.App.ErrWriter, display.IsTerminal(errFile), opts.Root)
		sink = progress
	}

	if c.Bool("watch") {
		return watchSearch(c, sigCtx, cfg, req, formatter, sink, progress)
	}

	ctx := context.Background()
	if d := c.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var outcome *search.Outcome
	if c.Bool("server") {
		outcome, err = remoteSearch(sigCtx, ctx, server.NewClient(socketFor(c, cfg, root)), req, sink)
	} else {
		outcome, err = localSearch(sigCtx, ctx, cfg, req, sink)
	}
	if progress != nil {
		progress.Done()
	}
	if err != nil {
		return err
	}

	if err := printOutcome(c, formatter, opts, outcome); err != nil {
		return err
	}
	if outcome.Cancelled() && sigCtx.Err() != nil {
		return cli.Exit("", exitInterrupted)
	}
	return nil
}

// localSearch runs req in-process. An interrupt cancels the search token,
// so the engine stops at the next file and returns partial results.
func localSearch(sigCtx, ctx context.Context, cfg *config.Config, req types.SearchRequest, sink search.ProgressSink) (*search.Outcome, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	engine := search.NewEngine(engineCfg)
	token := search.NewCancelToken()
	stopCancel := context.AfterFunc(sigCtx, token.Cancel)
	defer stopCancel()
	return engine.Search(ctx, req, token, sink)
}

// remoteSearch runs req on a server. An interrupt aborts the remote search
// instead of dropping the connection, so partial results still arrive.
func remoteSearch(sigCtx, ctx context.Context, client *server.Client, req types.SearchRequest, sink search.ProgressSink) (*search.Outcome, error) {
	defer client.Close()
	if !client.IsServerRunning() {
		return nil, fmt.Errorf("no fgrep server is listening on %s (start one with 'fgrep serve')", client.SocketPath())
	}
	stopAbort := context.AfterFunc(sigCtx, func() { client.Abort() })
	defer stopAbort()
	stopTimeout := context.AfterFunc(ctx, func() { client.Abort() })
	defer stopTimeout()
	return client.Grep(context.Background(), req, sink)
}

// watchSearch prints the results of every run until interrupted.
func watchSearch(c *cli.Context, ctx context.Context, cfg *config.Config, req types.SearchRequest,
	formatter *display.Formatter, sink search.ProgressSink, progress *display.ProgressPrinter) error {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	session := search.NewSession(search.NewEngine(engineCfg))

	onResult := func(run int, outcome *search.Outcome, err error) {
		if progress != nil {
			progress.Done()
		}
		if err != nil {
			errorf(c, "fgrep: run %d: %v\n", run, err)
			return
		}
		if outcome.Cancelled() {
			return
		}
		if run > 1 {
			fmt.Fprintf(c.App.Writer, "\n")
		}
		if err := formatter.Write(c.App.Writer, outcome); err != nil {
			errorf(c, "fgrep: %v\n", err)
		}
		errorf(c, "%s\n", display.SummaryLine(outcome))
	}

	w, err := watch.New(session, req, watch.Options{Exclude: cfg.Exclude}, sink, onResult)
	if err != nil {
		return err
	}
	errorf(c, "watching %s, press Ctrl-C to stop\n", req.RootDirectory)
	return w.Run(ctx)
}

func printOutcome(c *cli.Context, formatter *display.Formatter, opts display.Options, outcome *search.Outcome) error {
	if err := formatter.Write(c.App.Writer, outcome); err != nil {
		return err
	}
	if opts.Format == display.FormatText {
		fmt.Fprintln(c.App.ErrWriter, display.SummaryLine(outcome))
	}
	return nil
}
