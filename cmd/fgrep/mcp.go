package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fgrep/internal/debug"
	"github.com/standardbeagle/fgrep/internal/mcp"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Start MCP (Model Context Protocol) server with stdio transport",
		ArgsUsage: "[DIR]",
		Flags:     scanFlags(),
		Action: func(c *cli.Context) error {
			// stdout carries the protocol
			debug.SetMCPMode(true)

			root, err := rootArg(c, 0)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(c, root)
			if err != nil {
				return err
			}
			srv, err := mcp.NewServer(cfg, root)
			if err != nil {
				return err
			}
			defer srv.Shutdown()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
