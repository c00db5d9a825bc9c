/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// OnLogFields rewrites the fields of one span event.
//
// The first field with a matching Log rule triggers the rewrite: its rule outputs
// and every other field, each rewritten on its own, are collected and flushed to
// the sink as a single event. When no field matches, fields are forwarded as given.
func (r *Rewriter) OnLogFields(ts time.Time, fields []attribute.KeyValue) {
	trigger := -1
	var (
		rule *Rule
		tok  token
	)
	for i, f := range fields {
		var ok bool
		if rule, tok, ok = r.rules.firstMatch(KindLog, string(f.Key), f.Value); ok {
			trigger = i
			break
		}
	}
	if trigger < 0 {
		r.metrics.passthrough(KindLog)
		r.sink.EmitLog(ts, fields...)
		return
	}

	agg := &logFields{next: r.sink, fields: make([]attribute.KeyValue, 0, len(fields))}
	fieldRewriter := r.with(agg)
	for i, f := range fields {
		if i == trigger {
			fieldRewriter.apply(rule, tok, f.Value, ts)
			continue
		}
		fieldRewriter.OnLog(ts, string(f.Key), f.Value)
	}
	if len(agg.fields) > 0 {
		r.sink.EmitLog(ts, agg.fields...)
	}
}

// logFields buffers the rewritten fields of one span event.
// Tags and operation names are not part of the event and go straight through.
type logFields struct {
	next   Sink
	fields []attribute.KeyValue
}

func (l *logFields) EmitTag(key string, value attribute.Value) {
	l.next.EmitTag(key, value)
}

func (l *logFields) EmitOperationName(name string) {
	l.next.EmitOperationName(name)
}

// EmitLog adds fields to the buffer, replacing earlier fields with the same key.
func (l *logFields) EmitLog(_ time.Time, fields ...attribute.KeyValue) {
next:
	for _, f := range fields {
		for i := range l.fields {
			if l.fields[i].Key == f.Key {
				l.fields[i].Value = f.Value
				continue next
			}
		}
		l.fields = append(l.fields, f)
	}
}
