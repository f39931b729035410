// Command redline reconciles transcript correction suggestions into
// speaker-segmented transcripts. It runs as a one-shot CLI (apply), an HTTP
// server (serve) or an MCP tool server on stdio (mcp).
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/redline/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "redline",
		Short: "Apply correction suggestions to speaker-segmented transcripts",
		Long: `redline reconciles a batch of text correction suggestions against a
transcript. Each suggestion is located by its original text; suggestions that
cannot be located unambiguously are skipped and reported, never guessed.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newApplyCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the redline version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redline %s\n", version)
		},
	}
}

// newLogger returns a text logger on w whose level follows lv.
func newLogger(w io.Writer, lv *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
}

func levelVar(level config.LogLevel) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level.SlogLevel())
	return lv
}
