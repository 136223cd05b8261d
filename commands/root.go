// Package commands provides the convoscope CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const appName = "convoscope"

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

// NewRoot builds the root command with all subcommands attached.
func NewRoot(version, buildTime string) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Retrieval-augmented analysis over customer conversations",
		Long: `Convoscope answers analytical questions about a corpus of customer
support conversations. Each question is turned into a retrieval plan by
an LLM, matched against the loaded corpus, sanitized for PII, and
synthesized into an answer with a step-by-step process trace.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newAskCommand(flags))
	cmd.AddCommand(newSearchCommand(flags))
	cmd.AddCommand(newSummaryCommand(flags))
	cmd.AddCommand(newSurveysCommand(flags))
	cmd.AddCommand(newTopicsCommand(flags))
	cmd.AddCommand(newServeCommand(flags))
	cmd.AddCommand(newVersionCommand(version, buildTime))

	return cmd
}

// setupLogging configures the default slog logger from the log-level flag
// and returns it.
func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newVersionCommand(version, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, version, buildTime)
		},
	}
}
