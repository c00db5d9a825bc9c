/*
Package otelrewrite rewrites OpenTelemetry span data on its way to the SDK. Declarative
rules, grouped by instrumented component, match span names, attributes and event fields
and replace them with new values, new keys or mutations of a different kind, so that
sensitive or high-cardinality data never reaches an exporter.

# Core Concepts

A rule document maps a component label to an array of rules. Each rule has one or more
inputs and zero or more outputs:

	{
	  "jedis": [
	    {
	      "input":  {"type": "tag", "key": "db.statement", "value": "AUTH .*"},
	      "output": {"value": "AUTH ?"}
	    }
	  ],
	  "*": [
	    {"input": {"type": "tag", "key": "password"}}
	  ]
	}

An event has a type, an optional key and an optional value:

  - start fires once when a span starts. It takes neither key nor value.
  - operationName matches the span name. It takes no key.
  - tag matches a span attribute. Its key is required.
  - log matches a field of a span event. Without a key it matches the event name.

A string value is a regular expression that must match the whole observed value. Numbers
and booleans match by equality, and a missing value matches anything. Outputs inherit the
type and key of the input when they omit them, and a string output value is a replacement
template: $1 and ${1} refer to numbered groups of the input pattern, ${name} to named
groups, and \$ is a literal dollar. A rule without outputs suppresses what it matched.

Rules are tried in declaration order and the first match wins. Outputs are applied
directly and are never matched again.

# Basic Usage

1. Loading rules and wrapping a TracerProvider:

	components, err := otelrewrite.ParseYAML(data)
	if err != nil {
	    return err
	}
	otel.SetTracerProvider(otelrewrite.NewTracerProvider(tp,
	    otelrewrite.WithComponents(components),
	))

The instrumentation name passed to Tracer selects the component. Rules under the exact
label come first, followed by rules under glob labels such as "jdbc:*" and "*".

2. Wrapping a span that was started elsewhere:

	span := otelrewrite.Wrap(trace.SpanFromContext(ctx), components.Lookup("okhttp"))
	span.SetAttributes(attribute.String("http.url", url))

3. Building a span before it starts:

	ctx, span := tracer.(*otelrewrite.Tracer).BuildSpan("GET /users/42").
	    WithAttributes(attribute.String("db.statement", stmt)).
	    Start(ctx)
	defer span.End()

Attributes and events produced before the span starts are passed to the SDK with the
rewritten name, so samplers see rewritten data.

# Span Events

AddEvent is rewritten as a single list of fields: the event name under the "event" key
followed by the event attributes. The first field matching a log rule triggers the rewrite
and every other field is rewritten on its own. The result is recorded as one event named by
its "event" field, or DefaultEventName when the rules removed it. Events no rule matches are
recorded unchanged without allocating.

# Logging

Handler bridges log/slog to span events. Records logged with a context holding a span
are recorded as events named by their message and rewritten by the rules of that span:

	slog.SetDefault(slog.New(otelrewrite.NewHandler(slog.NewJSONHandler(os.Stdout, nil))))
	slog.InfoContext(ctx, "login", "user", user, "password", password)

The records passed on to the next handler gain trace_id and span_id attributes.

# Configuration Options

WithRuleSet(rules *RuleSet):

	Applies one rule set to every tracer, or to components without rules of their own

WithComponents(components Components):

	Selects rules by instrumentation name

WithLogger(logger *slog.Logger):

	Logs matched rules at debug level and components without rules at warn level

WithMetrics(metrics *Metrics):

	Counts rewritten and untouched mutations per event type with Prometheus counters

# Thread Safety

Parsed rules are immutable and may be shared by any number of tracers and spans. A Span
is as safe for concurrent use as the span it wraps. A SpanBuilder must not be shared.
*/
package otelrewrite
