// Package main is the entry point for the recall CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/logging"
	"github.com/flemzord/recall/internal/memory"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recall",
		Short:         "A conversational assistant with semantic long-term memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), configCmd(), extractCmd(), chatCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recall %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  generation: %s\n", cfg.Assistant.Provider)
			fmt.Fprintf(out, "  embedding:  %s (%d dimensions)\n", cfg.Embedding.Provider, cfg.Embedding.Dimension)
			fmt.Fprintf(out, "  history:    %s\n", cfg.History.Backend)
			return nil
		},
	})
	return cmd
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <text>",
		Short: "Show the facts the extractor would learn from a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			extractor, err := memory.NewPatternExtractor(extractorConfig(cfg, nil))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			candidates := extractor.Extract([]memory.Turn{memory.UserTurn(args[0])})
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No facts found.")
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "%.2f\t%s\n", c.Confidence, c.Text)
			}
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user")
			sessionID, _ := cmd.Flags().GetString("session")

			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Secrets()...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(ctx); err != nil {
					logger.Warn("shutdown error", "error", err)
				}
			}()

			return runChat(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout(), userID, sessionID)
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id that owns long-term memories")
	cmd.Flags().StringP("session", "s", "", "Resume an existing session")
	return cmd
}

// loadConfig reads --config, or the first file found in the standard
// locations, and falls back to the offline defaults when none exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		resolved, err := resolveConfigPath()
		if errors.Is(err, errNoConfig) {
			return config.Default(), nil
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var errNoConfig = errors.New("no configuration file found")

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/recall/recall.yaml, then ./recall.yaml.
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "recall", "recall.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "recall", "recall.yaml"))
	}

	candidates = append(candidates, "recall.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", errNoConfig, candidates)
}
