/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"reflect"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEventName names span events whose rewritten fields carry no "event" field.
const DefaultEventName = "log"

// Span rewrites attributes, events and the name of the span it wraps.
// All other methods are those of the wrapped span.
type Span struct {
	trace.Span
	rewriter *Rewriter
	provider trace.TracerProvider
}

// Wrap returns span with rules applied to its mutations. rules may be nil.
func Wrap(span trace.Span, rules *RuleSet) *Span {
	if s, ok := span.(*Span); ok {
		return s
	}
	return &Span{
		Span:     span,
		rewriter: NewRewriter(rules, spanSink{span}),
	}
}

// SetAttributes rewrites each attribute on its own.
func (s *Span) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.rewriter.OnTag(string(a.Key), a.Value)
	}
}

// SetName rewrites the span name.
func (s *Span) SetName(name string) {
	s.rewriter.OnOperationName(name)
}

// AddEvent rewrites the event as one field list: the name under LogEventKey
// followed by the event attributes. Events no rule matches reach the wrapped
// span with their original options.
func (s *Span) AddEvent(name string, options ...trace.EventOption) {
	rules := s.rewriter.rules
	_, _, named := rules.firstMatch(KindLog, LogEventKey, attribute.StringValue(name))
	if !named && !rules.hasFieldRules() {
		s.forwardEvent(name, options)
		return
	}

	cfg := trace.NewEventConfig(options...)
	attrs := cfg.Attributes()
	if !named && !rules.matchesField(attrs) {
		s.forwardEvent(name, options)
		return
	}

	fields := make([]attribute.KeyValue, 0, len(attrs)+1)
	fields = append(fields, attribute.String(LogEventKey, name))
	fields = append(fields, attrs...)
	s.rewriter.OnLogFields(cfg.Timestamp(), fields)
}

func (s *Span) forwardEvent(name string, options []trace.EventOption) {
	s.rewriter.metrics.passthrough(KindLog)
	s.Span.AddEvent(name, options...)
}

// RecordError records err as an exception event rewritten like any other event.
func (s *Span) RecordError(err error, options ...trace.EventOption) {
	if err == nil || !s.Span.IsRecording() {
		return
	}

	cfg := trace.NewEventConfig(options...)
	attrs := cfg.Attributes()
	fields := make([]attribute.KeyValue, 0, len(attrs)+4)
	fields = append(fields,
		attribute.String(LogEventKey, semconv.ExceptionEventName),
		semconv.ExceptionType(errorType(err)),
		semconv.ExceptionMessage(err.Error()),
	)
	if cfg.StackTrace() {
		fields = append(fields, semconv.ExceptionStacktrace(stackTrace()))
	}
	fields = append(fields, attrs...)
	s.rewriter.OnLogFields(cfg.Timestamp(), fields)
}

// TracerProvider returns the rewriting provider the span was started from, if any.
func (s *Span) TracerProvider() trace.TracerProvider {
	if s.provider != nil {
		return s.provider
	}
	return s.Span.TracerProvider()
}

// Unwrap returns the wrapped span.
func (s *Span) Unwrap() trace.Span {
	return s.Span
}

// spanSink writes mutations to a span without rewriting them.
type spanSink struct {
	span trace.Span
}

func (s spanSink) EmitTag(key string, value attribute.Value) {
	s.span.SetAttributes(attribute.KeyValue{Key: attribute.Key(key), Value: value})
}

func (s spanSink) EmitOperationName(name string) {
	s.span.SetName(name)
}

func (s spanSink) EmitLog(ts time.Time, fields ...attribute.KeyValue) {
	name, attrs := eventOf(fields)

	opts := make([]trace.EventOption, 0, 2)
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	if !ts.IsZero() {
		opts = append(opts, trace.WithTimestamp(ts))
	}
	s.span.AddEvent(name, opts...)
}

// eventOf splits event fields into the event name and its attributes.
func eventOf(fields []attribute.KeyValue) (string, []attribute.KeyValue) {
	for i, f := range fields {
		if f.Key != LogEventKey || f.Value.Type() != attribute.STRING {
			continue
		}
		attrs := make([]attribute.KeyValue, 0, len(fields)-1)
		attrs = append(attrs, fields[:i]...)
		attrs = append(attrs, fields[i+1:]...)
		return f.Value.AsString(), attrs
	}
	return DefaultEventName, fields
}

// errorType names the dynamic type of err the way the SDK does for exception events.
func errorType(err error) string {
	t := reflect.TypeOf(err)
	if t.PkgPath() == "" && t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func stackTrace() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
