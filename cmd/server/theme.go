package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnemet/slidegen/internal/config"
	"github.com/gnemet/slidegen/internal/pptx"
)

func newThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme <template.pptx>",
		Short: "Print the styling extracted from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.ErrOrStderr())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			theme, err := pptx.ExtractTheme(data, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(theme)
		},
	}
}
