/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package cli

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

func newValidateCommand(verbose *bool) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check rule documents for configuration errors",
		Long: "Parses each rule document and prints the number of rules per component.\n" +
			"With --watch, documents are validated again whenever they change.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := validateFiles(out, args)
			if !watch {
				if failed > 0 {
					return fmt.Errorf("%d of %d rule documents are invalid", failed, len(args))
				}
				return nil
			}

			logger := newLogger(cmd.ErrOrStderr(), *verbose)
			reloader, err := NewReloader(args, func() { validateFiles(out, args) }, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return reloader.Run(ctx)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Validate again on every change until interrupted")
	return cmd
}

// validateFiles reports on each document and returns how many failed to parse.
func validateFiles(w io.Writer, paths []string) int {
	failed := 0
	for _, path := range paths {
		components, err := loadRules(path)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", path, err)
			failed++
			continue
		}

		labels := make([]string, 0, len(components))
		for label := range components {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		fmt.Fprintf(w, "%s: ok\n", path)
		for _, label := range labels {
			fmt.Fprintf(w, "  %s: %d rules\n", label, components[label].Len())
		}
	}
	return failed
}
