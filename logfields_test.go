/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

type discardSink struct{}

func (discardSink) EmitTag(string, attribute.Value) {}
func (discardSink) EmitLog(time.Time, ...attribute.KeyValue) {}
func (discardSink) EmitOperationName(string) {}

func TestOnLogFields(t *testing.T) {
	const selectRules = `{"test": [
		{"input": {"type": "log", "key": "db.statement", "value": "select a"}, "output": [{"key": "db.statement", "value": "select b"}]}
	]}`
	ts := time.Unix(1700000000, 0)

	t.Run("unmatched fields are forwarded as given", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", selectRules), sink)

		fields := []attribute.KeyValue{attribute.String("db.statement", "unmatched"), attribute.Int("rows", 3)}
		r.OnLogFields(ts, fields)
		assert.Equal(t, [][]attribute.KeyValue{fields}, sink.logs)
	})

	t.Run("unmatched fields do not allocate", func(t *testing.T) {
		r := NewRewriter(mustParseJSON(t, "test", selectRules), discardSink{})
		fields := []attribute.KeyValue{attribute.String("db.statement", "unmatched")}

		allocs := testing.AllocsPerRun(100, func() {
			r.OnLogFields(ts, fields)
		})
		assert.Zero(t, allocs)
	})

	t.Run("trigger field is rewritten and the rest kept in one event", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", selectRules), sink)

		r.OnLogFields(ts, []attribute.KeyValue{
			attribute.String(LogEventKey, "query"),
			attribute.String("db.statement", "select a"),
			attribute.Int("rows", 3),
		})
		assert.Equal(t, [][]attribute.KeyValue{{
			attribute.String(LogEventKey, "query"),
			attribute.String("db.statement", "select b"),
			attribute.Int("rows", 3),
		}}, sink.logs)
	})

	t.Run("other fields are rewritten by their own rules", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", `{"test": [
			{"input": {"type": "log", "key": "a"}, "output": {"key": "renamed.a"}},
			{"input": {"type": "log", "key": "b", "value": "drop"}}
		]}`), sink)

		r.OnLogFields(ts, []attribute.KeyValue{
			attribute.String("b", "drop"),
			attribute.String("a", "1"),
			attribute.String("c", "2"),
		})
		assert.Equal(t, [][]attribute.KeyValue{{
			attribute.String("renamed.a", "1"),
			attribute.String("c", "2"),
		}}, sink.logs)
	})

	t.Run("first matching field is the trigger", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", `{"test": [
			{"input": {"type": "log", "key": "b"}, "output": {"type": "tag", "key": "from.b"}},
			{"input": {"type": "log", "key": "a"}, "output": {"type": "tag", "key": "from.a"}}
		]}`), sink)

		r.OnLogFields(ts, []attribute.KeyValue{attribute.String("a", "1"), attribute.String("b", "2")})
		assert.Equal(t, []attribute.KeyValue{attribute.String("from.a", "1"), attribute.String("from.b", "2")}, sink.tags)
		assert.Empty(t, sink.logs, "an empty event is not flushed")
	})

	t.Run("tag outputs bypass the event", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", `{"test": [
			{"input": {"type": "log", "key": "error.object", "value": "(.*): (.*)"},
			 "output": [{"type": "tag", "key": "error.kind", "value": "$1"}, {"type": "log", "key": "message", "value": "$2"}]}
		]}`), sink)

		r.OnLogFields(ts, []attribute.KeyValue{attribute.String("error.object", "Timeout: after 5s")})
		assert.Equal(t, []attribute.KeyValue{attribute.String("error.kind", "Timeout")}, sink.tags)
		assert.Equal(t, [][]attribute.KeyValue{{attribute.String("message", "after 5s")}}, sink.logs)
	})

	t.Run("later fields with the same key replace earlier ones", func(t *testing.T) {
		sink := &recordingSink{}
		r := NewRewriter(mustParseJSON(t, "test", `{"test": [
			{"input": {"type": "log", "key": "a"}, "output": {"key": "x", "value": "from a"}}
		]}`), sink)

		r.OnLogFields(ts, []attribute.KeyValue{attribute.String("a", "1"), attribute.String("x", "direct")})
		assert.Equal(t, [][]attribute.KeyValue{{attribute.String("x", "direct")}}, sink.logs)
	})
}
