/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// Options is a functional option for the TracerProvider.
type Options func(*TracerProvider)

// WithRuleSet sets the rules applied to spans of every tracer.
// With WithComponents, they apply to components without rules of their own.
func WithRuleSet(rules *RuleSet) Options {
	return func(p *TracerProvider) {
		p.rules = rules
	}
}

// WithComponents selects the rules of each tracer by its instrumentation name.
func WithComponents(components Components) Options {
	return func(p *TracerProvider) {
		p.components = components
	}
}

// WithLogger logs matched rules at debug level and components without rules at warn level.
func WithLogger(logger *slog.Logger) Options {
	return func(p *TracerProvider) {
		p.logger = logger
	}
}

// WithMetrics counts rewritten and untouched mutations.
func WithMetrics(metrics *Metrics) Options {
	return func(p *TracerProvider) {
		p.metrics = metrics
	}
}

// TracerProvider hands out tracers whose spans are rewritten by rules.
// Propagation and shutdown remain the business of the wrapped provider.
type TracerProvider struct {
	embedded.TracerProvider

	next       trace.TracerProvider
	rules      *RuleSet
	components Components
	logger     *slog.Logger
	metrics    *Metrics
}

// NewTracerProvider wraps next with the given options.
func NewTracerProvider(next trace.TracerProvider, opts ...Options) *TracerProvider {
	p := &TracerProvider{next: next}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tracer returns a rewriting tracer. The tracer name is the component rules are looked up by.
func (p *TracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	rules := p.rules
	if p.components != nil {
		if rs := p.components.Lookup(name); rs != nil {
			rules = rs
		} else if p.logger != nil {
			p.logger.Warn("no rewrite rules for component", slog.String("component", name))
		}
	}

	return &Tracer{
		next:     p.next.Tracer(name, options...),
		rewriter: &Rewriter{
			rules:   rules,
			logger:  p.logger,
			metrics: p.metrics,
		},
		provider: p,
	}
}

// Tracer starts spans whose mutations are rewritten.
type Tracer struct {
	embedded.Tracer

	next     trace.Tracer
	rewriter *Rewriter
	provider *TracerProvider
}

// Start starts a span, rewriting its name and the attributes in opts.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.BuildSpan(spanName).WithOptions(opts...).Start(ctx)
}

// ActiveSpan returns the span held by ctx with the rules of t applied.
func (t *Tracer) ActiveSpan(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if s, ok := span.(*Span); ok {
		return s
	}
	return t.newSpan(span)
}

func (t *Tracer) newSpan(span trace.Span) *Span {
	return &Span{
		Span:     span,
		rewriter: t.rewriter.with(spanSink{span}),
		provider: t.provider,
	}
}
