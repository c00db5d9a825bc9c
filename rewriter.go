/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Sink receives span mutations once rules have been applied.
// A zero ts passed to EmitLog means "now".
type Sink interface {
	EmitTag(key string, value attribute.Value)
	EmitLog(ts time.Time, fields ...attribute.KeyValue)
	EmitOperationName(name string)
}

// Rewriter applies a RuleSet to span mutations and forwards the result to a Sink.
// Unmatched mutations reach the sink unchanged. Rule outputs are emitted to the
// sink directly and are never matched again.
type Rewriter struct {
	rules   *RuleSet
	sink    Sink
	logger  *slog.Logger
	metrics *Metrics
}

// NewRewriter returns a Rewriter applying rules in front of sink. rules may be nil.
func NewRewriter(rules *RuleSet, sink Sink) *Rewriter {
	return &Rewriter{rules: rules, sink: sink}
}

// with returns a copy of r emitting to sink.
func (r *Rewriter) with(sink Sink) *Rewriter {
	c := *r
	c.sink = sink
	return &c
}

// OnOperationName rewrites a span name.
func (r *Rewriter) OnOperationName(name string) {
	rule, tok, ok := r.rules.firstMatch(KindOperationName, "", attribute.StringValue(name))
	if !ok {
		r.metrics.passthrough(KindOperationName)
		r.sink.EmitOperationName(name)
		return
	}
	r.apply(rule, tok, attribute.StringValue(name), time.Time{})
}

// OnTag rewrites a span attribute.
func (r *Rewriter) OnTag(key string, value attribute.Value) {
	rule, tok, ok := r.rules.firstMatch(KindTag, key, value)
	if !ok {
		r.metrics.passthrough(KindTag)
		r.sink.EmitTag(key, value)
		return
	}
	r.apply(rule, tok, value, time.Time{})
}

// OnLog rewrites a single field of a span event.
func (r *Rewriter) OnLog(ts time.Time, key string, value attribute.Value) {
	rule, tok, ok := r.rules.firstMatch(KindLog, key, value)
	if !ok {
		r.metrics.passthrough(KindLog)
		r.sink.EmitLog(ts, attribute.KeyValue{Key: attribute.Key(key), Value: value})
		return
	}
	r.apply(rule, tok, value, ts)
}

// OnStart fires the first Start rule for a span about to start with the given name.
// Outputs without a value receive the name.
func (r *Rewriter) OnStart(name string) {
	rule, tok, ok := r.rules.firstMatch(KindStart, "", attribute.StringValue(name))
	if !ok {
		return
	}
	r.apply(rule, tok, attribute.StringValue(name), time.Time{})
}

// apply emits the outputs of a matched rule, each through the primitive of its own kind.
func (r *Rewriter) apply(rule *Rule, tok token, observed attribute.Value, ts time.Time) {
	r.metrics.rewritten(rule.Input.Kind)
	if r.logger != nil {
		r.logger.Debug("rewrite rule matched",
			slog.String("component", r.rules.Label()),
			slog.String("type", rule.Input.Kind.String()),
			slog.String("key", rule.Input.Key),
			slog.Int("outputs", len(rule.Outputs)),
		)
	}

	for _, out := range rule.Outputs {
		value := rewriteValue(tok, observed, out)
		switch out.Kind {
		case KindTag:
			r.sink.EmitTag(rule.outputKey(out), value)
		case KindLog:
			r.sink.EmitLog(ts, attribute.KeyValue{Key: attribute.Key(rule.outputKey(out)), Value: value})
		case KindOperationName:
			r.sink.EmitOperationName(valueString(value))
		}
	}
}
