/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/yakumioto/otelrewrite"
)

type tryOptions struct {
	component string
	name      string
	tags      []string
	logs      []string
}

func newTryCommand(verbose *bool) *cobra.Command {
	var opts tryOptions

	cmd := &cobra.Command{
		Use:   "try FILE",
		Short: "Run one span through the rules of a component",
		Long: "Starts a span with the given name and tags through the rewriting tracer,\n" +
			"adds one event made of the --log fields and prints what was recorded.\n\n" +
			"Values are typed: integers, floats and booleans are recognized, anything\n" +
			"else is a string. An \"event\" log field names the event.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := loadRules(args[0])
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), *verbose)

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			defer func() {
				if err := tp.Shutdown(cmd.Context()); err != nil {
					logger.Error("failed to shut down tracer provider", slog.Any("error", err))
				}
			}()

			provider := otelrewrite.NewTracerProvider(tp,
				otelrewrite.WithComponents(components),
				otelrewrite.WithLogger(logger),
			)
			return runTry(cmd, provider, recorder, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.component, "component", "c", "", "Component whose rules apply (required)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "span", "Span name")
	cmd.Flags().StringArrayVarP(&opts.tags, "tag", "t", nil, "Span attribute as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.logs, "log", "l", nil, "Event field as key=value (repeatable)")
	cmd.MarkFlagRequired("component")
	return cmd
}

func runTry(cmd *cobra.Command, provider *otelrewrite.TracerProvider, recorder *tracetest.SpanRecorder, opts tryOptions) error {
	tags, err := parseFields(opts.tags)
	if err != nil {
		return fmt.Errorf("invalid --tag: %w", err)
	}
	fields, err := parseFields(opts.logs)
	if err != nil {
		return fmt.Errorf("invalid --log: %w", err)
	}

	tracer := provider.Tracer(opts.component).(*otelrewrite.Tracer)
	_, span := tracer.BuildSpan(opts.name).WithAttributes(tags...).Start(cmd.Context())
	if len(fields) > 0 {
		name, attrs := otelrewrite.DefaultEventName, make([]attribute.KeyValue, 0, len(fields))
		for _, f := range fields {
			if f.Key == otelrewrite.LogEventKey {
				name = f.Value.Emit()
				continue
			}
			attrs = append(attrs, f)
		}
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
	span.End()

	for _, s := range recorder.Ended() {
		printSpan(cmd.OutOrStdout(), s)
	}
	return nil
}

func printSpan(w io.Writer, s sdktrace.ReadOnlySpan) {
	fmt.Fprintf(w, "name: %s\n", s.Name())
	if attrs := s.Attributes(); len(attrs) > 0 {
		fmt.Fprintln(w, "attributes:")
		for _, kv := range attrs {
			fmt.Fprintf(w, "  %s=%s (%s)\n", kv.Key, kv.Value.Emit(), kv.Value.Type())
		}
	}
	if events := s.Events(); len(events) > 0 {
		fmt.Fprintln(w, "events:")
		for _, e := range events {
			fmt.Fprintf(w, "  %s\n", e.Name)
			for _, kv := range e.Attributes {
				fmt.Fprintf(w, "    %s=%s (%s)\n", kv.Key, kv.Value.Emit(), kv.Value.Type())
			}
		}
	}
}

// parseFields parses key=value pairs into typed attributes.
func parseFields(pairs []string) ([]attribute.KeyValue, error) {
	kvs := make([]attribute.KeyValue, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", pair)
		}
		kvs = append(kvs, attribute.KeyValue{Key: attribute.Key(key), Value: typedValue(value)})
	}
	return kvs, nil
}

func typedValue(s string) attribute.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return attribute.Int64Value(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return attribute.Float64Value(f)
	}
	switch s {
	case "true":
		return attribute.BoolValue(true)
	case "false":
		return attribute.BoolValue(false)
	}
	return attribute.StringValue(s)
}
