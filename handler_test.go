/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TestHandler tests the Handler implementation.
func TestHandler(t *testing.T) {
	setupLogger := func(opts ...HandlerOption) (*slog.Logger, *bytes.Buffer) {
		buf := bytes.NewBuffer(nil)
		return slog.New(NewHandler(slog.NewJSONHandler(buf, nil), opts...)), buf
	}

	t.Run("with options", func(t *testing.T) {
		rules := NewRuleSet("x")
		h := NewHandler(slog.NewJSONHandler(bytes.NewBuffer(nil), nil),
			WithTraceIDKey("test_trace_id"),
			WithSpanIDKey("test_span_id"),
			WithEventRules(rules),
			WithNoSpanEvents())

		assert.Equal(t, "test_trace_id", h.traceIDKey)
		assert.Equal(t, "test_span_id", h.spanIDKey)
		assert.Same(t, rules, h.rules)
		assert.False(t, h.spanEvent)
	})

	t.Run("without span", func(t *testing.T) {
		logger, buf := setupLogger()
		logger.Warn("without span test", "key1", "value1")
		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"msg":"without span test"`)
		assert.Contains(t, buf.String(), `"key1":"value1"`)
		assert.NotContains(t, buf.String(), `"trace_id"`)
	})

	t.Run("records are rewritten span events", func(t *testing.T) {
		spanRecorder, provider := setupTracer(WithRuleSet(mustParseJSON(t, "x", `{"x": [
			{"input": {"type": "log", "key": "password"}, "output": {"value": "***"}}
		]}`)))
		logger, buf := setupLogger()

		ctx, span := provider.Tracer("x").Start(context.Background(), "span")
		logger.InfoContext(ctx, "login", "user", "alice", "password", "hunter2")
		span.End()

		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		require.Len(t, spans[0].Events(), 1)
		event := spans[0].Events()[0]
		assert.Equal(t, "login", event.Name)
		assert.Equal(t, []attribute.KeyValue{
			attribute.String("user", "alice"),
			attribute.String("password", "***"),
			attribute.String(slog.LevelKey, "INFO"),
		}, event.Attributes)

		assert.Contains(t, buf.String(), `"password":"hunter2"`, "the log record itself is not rewritten")
		assert.Contains(t, buf.String(), `"trace_id":"`+spans[0].SpanContext().TraceID().String()+`"`)
		assert.Contains(t, buf.String(), `"span_id":"`+spans[0].SpanContext().SpanID().String()+`"`)
	})

	t.Run("event rules apply to plain spans", func(t *testing.T) {
		spanRecorder, provider := setupTracer()
		logger, _ := setupLogger(WithEventRules(mustParseJSON(t, "x", `{"x": [
			{"input": {"type": "log", "value": "query .*"}, "output": {"value": "query"}}
		]}`)))

		ctx, span := provider.next.Tracer("plain").Start(context.Background(), "span")
		logger.InfoContext(ctx, "query select a")
		span.End()

		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		require.Len(t, spans[0].Events(), 1)
		assert.Equal(t, "query", spans[0].Events()[0].Name)
	})

	t.Run("without span events", func(t *testing.T) {
		spanRecorder, provider := setupTracer()
		logger, buf := setupLogger(WithNoSpanEvents())

		ctx, span := provider.Tracer("x").Start(context.Background(), "span")
		logger.InfoContext(ctx, "without span events test")
		span.End()

		assert.Contains(t, buf.String(), `"msg":"without span events test"`)
		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		assert.Empty(t, spans[0].Events())
	})

	t.Run("with attrs and groups", func(t *testing.T) {
		spanRecorder, provider := setupTracer()
		logger, buf := setupLogger()

		ctx, span := provider.Tracer("x").Start(context.Background(), "span")
		logger.With("service", "api").WithGroup("request").InfoContext(ctx, "handled",
			"id", 7,
			slog.Group("user", slog.String("role", "admin")),
			slog.Duration("took", time.Millisecond),
		)
		span.End()

		assert.Contains(t, buf.String(), `"request":{"id":7,"user":{"role":"admin"}`)
		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		attrs := spans[0].Events()[0].Attributes
		assert.Contains(t, attrs, attribute.String("service", "api"))
		assert.Contains(t, attrs, attribute.Int64("request.id", 7))
		assert.Contains(t, attrs, attribute.String("request.user.role", "admin"))
		assert.Contains(t, attrs, attribute.Int64("request.took", int64(time.Millisecond)))
	})

	t.Run("errors set the span status", func(t *testing.T) {
		spanRecorder, provider := setupTracer()
		logger, _ := setupLogger()

		ctx, span := provider.Tracer("x").Start(context.Background(), "span")
		logger.ErrorContext(ctx, "failed")
		span.End()

		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "failed", spans[0].Status().Description)
	})

	t.Run("without next handler", func(t *testing.T) {
		spanRecorder, provider := setupTracer()
		logger := slog.New(NewHandler(nil))

		ctx, span := provider.Tracer("x").Start(context.Background(), "span")
		logger.DebugContext(ctx, "debug")
		span.End()

		spans := spanRecorder.Ended()
		require.Equal(t, 1, len(spans))
		assert.Len(t, spans[0].Events(), 1)
	})
}
