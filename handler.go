/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandlerOption is a functional option for the Handler.
type HandlerOption func(*Handler)

// WithTraceIDKey sets the key used to record the trace ID in slog records.
func WithTraceIDKey(key string) HandlerOption {
	return func(h *Handler) {
		h.traceIDKey = key
	}
}

// WithSpanIDKey sets the key used to record the span ID in slog records.
func WithSpanIDKey(key string) HandlerOption {
	return func(h *Handler) {
		h.spanIDKey = key
	}
}

// WithEventRules sets the rules applied to records logged under a span that
// does not rewrite its events already.
func WithEventRules(rules *RuleSet) HandlerOption {
	return func(h *Handler) {
		h.rules = rules
	}
}

// WithNoSpanEvents disables recording slog records as span events.
func WithNoSpanEvents() HandlerOption {
	return func(h *Handler) {
		h.spanEvent = false
	}
}

// NewHandler creates a new slog.Handler with the given options.
func NewHandler(handler slog.Handler, opts ...HandlerOption) *Handler {
	h := &Handler{
		traceIDKey: "trace_id",
		spanIDKey:  "span_id",
		spanEvent:  true,
		Next:       handler,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handler records slog records as events of the span in their context, rewritten
// like any other span event, and adds the trace and span IDs to the records it
// passes on.
//
// The record message is the event name and the record attributes, flattened with
// their group keys, are the event attributes.
type Handler struct {
	// OpenTelemetry trace context keys
	traceIDKey string
	spanIDKey  string

	attrs     []attribute.KeyValue
	groupKeys []string

	rules *RuleSet

	// Controls whether slog records should be recorded as span events
	spanEvent bool

	// Next slog.Handler in the chain
	Next slog.Handler
}

// Enabled reports whether the next handler handles level. Without a next handler
// every record is recorded on the span.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.Next == nil {
		return true
	}
	return h.spanEvent || h.Next.Enabled(ctx, level)
}

func (h *Handler) nextHandle(ctx context.Context, record slog.Record) error {
	if h.Next != nil && h.Next.Enabled(ctx, record.Level) {
		return h.Next.Handle(ctx, record)
	}

	return nil
}

// Handle records the slog.Record on the active span and passes it on.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return h.nextHandle(ctx, record)
	}

	if h.spanEvent {
		eventAttrs := make([]attribute.KeyValue, 0, len(h.attrs)+record.NumAttrs()+1)
		eventAttrs = append(eventAttrs, h.attrs...)
		record.Attrs(func(attr slog.Attr) bool {
			convertAttrs(attr, func(kv attribute.KeyValue) {
				eventAttrs = append(eventAttrs, kv)
			}, h.groupKeys...)
			return true
		})
		eventAttrs = append(eventAttrs, attribute.String(slog.LevelKey, record.Level.String()))

		opts := []trace.EventOption{trace.WithAttributes(eventAttrs...)}
		if !record.Time.IsZero() {
			opts = append(opts, trace.WithTimestamp(record.Time))
		}
		Wrap(span, h.rules).AddEvent(record.Message, opts...)
	}

	if record.Level >= slog.LevelError {
		span.SetStatus(codes.Error, record.Message)
	}

	record = record.Clone()
	spanCtx := span.SpanContext()
	if spanCtx.HasTraceID() {
		record.AddAttrs(slog.String(h.traceIDKey, spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		record.AddAttrs(slog.String(h.spanIDKey, spanCtx.SpanID().String()))
	}

	return h.nextHandle(ctx, record)
}

// WithAttrs returns a new slog.Handler that includes the given slog.Attrs.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, attr := range attrs {
		convertAttrs(attr, func(kv attribute.KeyValue) {
			c.attrs = append(c.attrs, kv)
		}, h.groupKeys...)
	}
	if h.Next != nil {
		c.Next = h.Next.WithAttrs(attrs)
	}
	return c
}

// WithGroup returns a new slog.Handler that qualifies later attributes with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groupKeys = append(c.groupKeys, name)
	if h.Next != nil {
		c.Next = h.Next.WithGroup(name)
	}
	return c
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = append([]attribute.KeyValue(nil), h.attrs...)
	c.groupKeys = append([]string(nil), h.groupKeys...)
	return &c
}

// convertAttrs converts slog.Attrs to OpenTelemetry attributes.
func convertAttrs(attr slog.Attr, handler func(attribute.KeyValue), groupKeys ...string) {
	val := attr.Value.Resolve()
	if attr.Key == "" && val.Kind() != slog.KindGroup {
		return
	}

	key := attr.Key
	if len(groupKeys) > 0 && key != "" {
		key = strings.Join(groupKeys, ".") + "." + attr.Key
	} else if key == "" {
		key = strings.Join(groupKeys, ".")
	}

	switch val.Kind() {
	case slog.KindBool:
		handler(attribute.Bool(key, val.Bool()))
	case slog.KindDuration:
		handler(attribute.Int64(key, int64(val.Duration())))
	case slog.KindFloat64:
		handler(attribute.Float64(key, val.Float64()))
	case slog.KindInt64:
		handler(attribute.Int64(key, val.Int64()))
	case slog.KindString:
		handler(attribute.String(key, val.String()))
	case slog.KindTime:
		handler(attribute.String(key, val.Time().Format(time.RFC3339)))
	case slog.KindGroup:
		var prefix []string
		if key != "" {
			prefix = []string{key}
		}
		for _, groupAttr := range val.Group() {
			convertAttrs(groupAttr, handler, prefix...)
		}
	default:
		handler(attribute.KeyValue{Key: attribute.Key(key), Value: valueOf(val.Any())})
	}
}
