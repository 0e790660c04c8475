// Command hybridsearch builds the keyword and semantic indexes over a
// document collection, queries them from the command line and serves them
// over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command shares once flags and config are resolved.
type env struct {
	cfg      *config.Config
	embedder string
	out      io.Writer
}

const envKey = "env"

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "hybridsearch",
		Usage:  "Keyword, semantic and hybrid search over a document collection",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (missing file uses defaults)",
				Value:   "configs/development.yaml",
				EnvVars: []string{"HS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "embedder",
				Usage: "Embedding backend: openai (any OpenAI-compatible server) or mock",
				Value: "openai",
			},
		},
		Before:   setup,
		Commands: commands(),
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.String("embedder") {
	case "openai", "mock":
	default:
		return fmt.Errorf("unknown embedder %q", c.String("embedder"))
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[envKey] = &env{
		cfg:      cfg,
		embedder: c.String("embedder"),
		out:      c.App.Writer,
	}
	return nil
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// commandContext is the command's context with span logging set from config.
func commandContext(c *cli.Context) context.Context {
	return tracing.WithLogging(c.Context, envFrom(c).cfg.Tracing.Enabled)
}
