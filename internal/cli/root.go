/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yakumioto/otelrewrite"
)

// NewRootCommand returns the rulecheck command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "rulecheck",
		Short: "Validate span rewrite rules and preview their effect",
		Long: "Parses rewrite rule documents the way the rewriting tracer provider does,\n" +
			"and runs a span through them against an in-memory recorder.",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every matched rule")

	root.AddCommand(newValidateCommand(&verbose), newTryCommand(&verbose))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadRules parses a rule document. Files ending in .json are JSON, anything else YAML.
func loadRules(path string) (otelrewrite.Components, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return otelrewrite.ParseJSON(data)
	}
	return otelrewrite.ParseYAML(data)
}
