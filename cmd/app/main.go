package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/spacetime/internal"
	pkgconfig "github.com/starford/spacetime/pkg/config"
)

type runFunc func(ctx context.Context, opts ...internal.Option) error

// action loads the config named by --config and hands it to run.
func action(run runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if dir := cmd.String("import-dir"); dir != "" {
			cfg.Import.Dir = dir
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "spacetime",
		Usage:  "Semantic spacetime knowledge graph with typed, self-inverting links",
		Action: action(internal.Run),
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
				Name:    "import-dir",
				Usage:   "Override the YAML import directory",
				Sources: cli.EnvVars("APP_IMPORT_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and import watcher",
				Action: action(internal.Run),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the graph as MCP tools on stdin/stdout",
				Action: action(internal.RunMCP),
			},
			{
				Name:   "import",
				Usage:  "Apply the import directory once and exit",
				Action: action(internal.RunImport),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
