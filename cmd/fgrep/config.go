package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fgrep/internal/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Aliases:   []string{"i"},
				Usage:     "Write a commented " + config.FileName + " into DIR",
				ArgsUsage: "[DIR]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "global",
						Usage: "Write to the home directory instead of DIR",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite existing configuration file",
					},
				},
				Action: configInit,
			},
			{
				Name:      "show",
				Aliases:   []string{"s"},
				Usage:     "Print the effective configuration for DIR",
				ArgsUsage: "[DIR]",
				Action:    configShow,
			},
			{
				Name:      "validate",
				Aliases:   []string{"v"},
				Usage:     "Check the configuration files that apply to DIR",
				ArgsUsage: "[DIR]",
				Action:    configValidate,
			},
		},
	}
}

func configInit(c *cli.Context) error {
	dir, err := rootArg(c, 0)
	if err != nil {
		return err
	}
	if c.Bool("global") {
		if dir, err = os.UserHomeDir(); err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
	}

	path := filepath.Join(dir, config.FileName)
	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(config.Template), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}

func configShow(c *cli.Context) error {
	root, err := rootArg(c, 0)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	w := c.App.Writer
	if len(cfg.Sources) == 0 {
		fmt.Fprintf(w, "// no %s found, showing defaults\n", config.FileName)
	}
	for _, src := range cfg.Sources {
		fmt.Fprintf(w, "// from %s\n", src)
	}
	fmt.Fprint(w, cfg.String())
	return nil
}

func configValidate(c *cli.Context) error {
	root, err := rootArg(c, 0)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return cli.Exit(fmt.Sprintf("configuration failed to load: %v", err), exitIO)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("configuration is invalid: %v", err), exitBadRequest)
	}

	w := c.App.Writer
	if len(cfg.Sources) == 0 {
		fmt.Fprintf(w, "no %s found; defaults apply\n", config.FileName)
	}
	for _, src := range cfg.Sources {
		fmt.Fprintf(w, "ok: %s\n", src)
	}
	for _, warning := range cfg.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
