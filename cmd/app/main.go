package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/hexokit/internal"
	"github.com/starford/hexokit/internal/models"
	pkgconfig "github.com/starford/hexokit/pkg/config"
)

// loadConfig reads --config and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func convertNote(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("convert: note path is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if out := cmd.String("out"); out != "" {
		cfg.Export.Dir = out
	}
	if cmd.Bool("no-clipboard") {
		cfg.Clipboard.Enabled = false
	}

	run, err := internal.Convert(ctx, path, internal.ConvertOptions{Print: cmd.Bool("print")}, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if cmd.Bool("strict") && run.Status != models.RunSuccess {
		return fmt.Errorf("convert: %s finished with status %q", run.Path, run.Status)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func last(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Last(ctx, cmd.Bool("print"), internal.WithConfig(cfg))
}

func history(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.History(ctx, int(cmd.Int("limit")), cmd.String("path"), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "hexokit",
		Usage: "Convert Obsidian notes into Hexo-ready markdown",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory, overrides vault.path",
				Sources: cli.EnvVars("HEXOKIT_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "Convert one note, copy it to the clipboard and print a report",
				ArgsUsage: "<note path relative to the vault>",
				Action:    convertNote,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Also write <basename>.md into this directory"},
					&cli.BoolFlag{Name: "no-clipboard", Usage: "Do not copy the result"},
					&cli.BoolFlag{Name: "print", Aliases: []string{"p"}, Usage: "Print the converted content instead of the report"},
					&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero unless every reference converted"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and optional export watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve conversion tools over MCP stdio",
				Action: mcp,
			},
			{
				Name:   "last",
				Usage:  "Show the most recent conversion result",
				Action: last,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "print", Aliases: []string{"p"}, Usage: "Print the converted content instead of the report"},
				},
			},
			{
				Name:   "history",
				Usage:  "List stored conversions",
				Action: history,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of runs"},
					&cli.StringFlag{Name: "path", Usage: "Only runs of this note"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
