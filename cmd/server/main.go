package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnemet/slidegen/internal/config"
)

// Version is set during build
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "slidegen",
		Short: "Turn text into PowerPoint presentations with an LLM",
		Long: `slidegen asks a language model provider (OpenAI, Anthropic, Gemini or
AIPipe) to outline a text as slides and renders the outline as a .pptx file,
optionally styled after a template. Without a subcommand it starts the
HTTP server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newRenderCmd(), newThemeCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
