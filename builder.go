/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpanBuilder collects the rewritten name, attributes and events of a span
// before it starts. A SpanBuilder starts at most one span and must not be
// shared between goroutines.
type SpanBuilder struct {
	tracer   *Tracer
	rewriter *Rewriter
	opts     []trace.SpanStartOption
	pending  *pendingSpan
}

// pendingSpan is the sink of a SpanBuilder.
type pendingSpan struct {
	name  string
	attrs []attribute.KeyValue
	logs  []pendingLog
}

type pendingLog struct {
	ts     time.Time
	fields []attribute.KeyValue
}

func (p *pendingSpan) EmitTag(key string, value attribute.Value) {
	p.attrs = append(p.attrs, attribute.KeyValue{Key: attribute.Key(key), Value: value})
}

func (p *pendingSpan) EmitLog(ts time.Time, fields ...attribute.KeyValue) {
	p.logs = append(p.logs, pendingLog{ts: ts, fields: append([]attribute.KeyValue(nil), fields...)})
}

func (p *pendingSpan) EmitOperationName(name string) {
	p.name = name
}

// BuildSpan returns a builder for a span named name. The name is rewritten immediately.
func (t *Tracer) BuildSpan(name string) *SpanBuilder {
	p := &pendingSpan{}
	b := &SpanBuilder{
		tracer:   t,
		rewriter: t.rewriter.with(p),
		pending:  p,
	}
	b.rewriter.OnOperationName(name)
	return b
}

// WithAttributes rewrites start attributes.
func (b *SpanBuilder) WithAttributes(kv ...attribute.KeyValue) *SpanBuilder {
	for _, a := range kv {
		b.rewriter.OnTag(string(a.Key), a.Value)
	}
	return b
}

// WithOptions adds start options. Attributes carried by the options are
// rewritten when the span starts.
func (b *SpanBuilder) WithOptions(opts ...trace.SpanStartOption) *SpanBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// Start starts the span with the rewritten name and attributes, records the
// events produced by rewriting and returns a context holding the rewriting span.
func (b *SpanBuilder) Start(ctx context.Context) (context.Context, *Span) {
	cfg := trace.NewSpanStartConfig(b.opts...)
	for _, a := range cfg.Attributes() {
		b.rewriter.OnTag(string(a.Key), a.Value)
	}
	b.rewriter.OnStart(b.pending.name)

	opts := make([]trace.SpanStartOption, 0, 5)
	if kind := cfg.SpanKind(); kind != trace.SpanKindUnspecified {
		opts = append(opts, trace.WithSpanKind(kind))
	}
	if ts := cfg.Timestamp(); !ts.IsZero() {
		opts = append(opts, trace.WithTimestamp(ts))
	}
	if links := cfg.Links(); len(links) > 0 {
		opts = append(opts, trace.WithLinks(links...))
	}
	if cfg.NewRoot() {
		opts = append(opts, trace.WithNewRoot())
	}
	if len(b.pending.attrs) > 0 {
		opts = append(opts, trace.WithAttributes(b.pending.attrs...))
	}

	ctx, started := b.tracer.next.Start(ctx, b.pending.name, opts...)
	sink := spanSink{started}
	for _, l := range b.pending.logs {
		sink.EmitLog(l.ts, l.fields...)
	}

	span := b.tracer.newSpan(started)
	return trace.ContextWithSpan(ctx, span), span
}
