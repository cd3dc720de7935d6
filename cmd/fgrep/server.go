package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fgrep/internal/search"
	"github.com/standardbeagle/fgrep/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Aliases:   []string{"server", "srv"},
		Usage:     "Serve searches for DIR over a unix socket",
		ArgsUsage: "[DIR]",
		Description: `Starts a long-running search server rooted at DIR. 'fgrep search --server'
runs searches on it, 'fgrep abort' cancels the active one and
'fgrep shutdown' stops the server. One search runs at a time.`,
		Flags:  append([]cli.Flag{socketFlag()}, scanFlags()...),
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	root, err := rootArg(c, 0)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	srv := server.New(search.NewSession(search.NewEngine(engineCfg)), root)
	srv.SetSocketPath(socketFor(c, cfg, root))

	client := server.NewClient(srv.SocketPath())
	defer client.Close()
	if client.IsServerRunning() {
		return fmt.Errorf("a server is already running on %s", srv.SocketPath())
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	errorf(c, "fgrep server listening on %s (root: %s)\n", srv.SocketPath(), root)
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	errorf(c, "fgrep server stopped\n")
	return nil
}

// clientFor connects to the server for the DIR argument.
func clientFor(c *cli.Context) (*server.Client, error) {
	root, err := rootArg(c, 0)
	if err != nil {
		return nil, err
	}
	client := server.NewClient(socketFor(c, nil, root))
	if !client.IsServerRunning() {
		client.Close()
		return nil, fmt.Errorf("no fgrep server is running for %s", root)
	}
	return client, nil
}

func abortCommand() *cli.Command {
	return &cli.Command{
		Name:      "abort",
		Usage:     "Cancel the server's active search",
		ArgsUsage: "[DIR]",
		Flags:     []cli.Flag{socketFlag()},
		Action: func(c *cli.Context) error {
			client, err := clientFor(c)
			if err != nil {
				return err
			}
			defer client.Close()
			aborted, err := client.Abort()
			if err != nil {
				return err
			}
			if aborted {
				fmt.Fprintln(c.App.Writer, "search aborted")
			} else {
				fmt.Fprintln(c.App.Writer, "no search running")
			}
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Aliases:   []string{"st"},
		Usage:     "Show the server's search progress",
		ArgsUsage: "[DIR]",
		Flags: []cli.Flag{
			socketFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			client, err := clientFor(c)
			if err != nil {
				return err
			}
			defer client.Close()
			ping, err := client.Ping()
			if err != nil {
				return err
			}
			status, err := client.Status()
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Server *server.PingResponse   `json:"server"`
					Search *server.StatusResponse `json:"search"`
				}{ping, status})
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Server:  pid %d, version %s, up %s\n", ping.PID, ping.Version,
				(time.Duration(ping.Uptime * float64(time.Second))).Round(time.Second))
			fmt.Fprintf(w, "Root:    %s\n", ping.Root)
			p := status.Progress
			fmt.Fprintf(w, "Search:  %s, %d/%d files", p.State, p.Processed, p.Total)
			if p.Elapsed > 0 {
				fmt.Fprintf(w, ", %s", p.Elapsed.Round(time.Millisecond))
			}
			fmt.Fprintln(w)
			if status.Active && p.CurrentFile != "" {
				fmt.Fprintf(w, "Current: %s\n", p.CurrentFile)
			}
			return nil
		},
	}
}

func shutdownCommand() *cli.Command {
	return &cli.Command{
		Name:      "shutdown",
		Usage:     "Stop the server for DIR",
		ArgsUsage: "[DIR]",
		Flags:     []cli.Flag{socketFlag()},
		Action: func(c *cli.Context) error {
			client, err := clientFor(c)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Shutdown(false); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
			defer cancel()
			for client.IsServerRunning() {
				select {
				case <-ctx.Done():
					return fmt.Errorf("server did not shut down")
				case <-time.After(50 * time.Millisecond):
				}
			}
			fmt.Fprintln(c.App.Writer, "server shut down")
			return nil
		},
	}
}
