package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnemet/slidegen/internal/config"
	"github.com/gnemet/slidegen/internal/outline"
	"github.com/gnemet/slidegen/internal/pipeline"
	"github.com/gnemet/slidegen/internal/pptx"
	"github.com/gnemet/slidegen/internal/slides"
)

type renderOptions struct {
	input    string
	template string
	format   string
	output   string
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a slide outline JSON file offline",
		Long: `render reads a slide outline (the JSON returned by /api/analyze, or any
text containing it) and writes a .pptx file, a Markdown outline or an HTML
preview. No provider is called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "outline file, - for stdin")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "template .pptx to take styling from")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "pptx", "output format: pptx, md or html")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: derived from the title for pptx, stdout otherwise)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	raw, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}
	doc, err := slides.Parse(string(raw))
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.format) {
	case "md", "markdown":
		return writeOutput(cmd.OutOrStdout(), opts.output, []byte(outline.Markdown(doc)))
	case "html":
		return writeOutput(cmd.OutOrStdout(), opts.output, []byte(outline.HTML(doc)))
	case "pptx":
	default:
		return fmt.Errorf("unknown format %q (want pptx, md or html)", opts.format)
	}

	var template []byte
	if opts.template != "" {
		if template, err = os.ReadFile(opts.template); err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
	}

	svc := pipeline.NewService(nil, nil, pptx.NewRenderer(logger), logger)
	res, err := svc.Render(cmd.Context(), doc, template)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d slides, %d bytes)\n", filepath.Clean(out), len(doc.Slides), len(res.Data))
	return nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func writeOutput(stdout io.Writer, name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
