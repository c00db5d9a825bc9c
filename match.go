/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

// token records how an input event matched. A token without a regexp is a
// simple match: output values are used literally.
type token struct {
	re     *regexp.Regexp
	src    string
	groups []int
}

// matchEvent reports whether observed satisfies the value constraint of in.
func matchEvent(in Event, observed attribute.Value) (token, bool) {
	if in.Pattern != nil {
		s := valueString(observed)
		if !in.Pattern.MatchString(s) {
			return token{}, false
		}
		return token{re: in.Pattern, src: s, groups: in.Pattern.FindStringSubmatchIndex(s)}, true
	}

	switch want := in.Value.(type) {
	case nil:
		return token{}, true
	case int64:
		switch observed.Type() {
		case attribute.INT64:
			return token{}, observed.AsInt64() == want
		case attribute.FLOAT64:
			return token{}, observed.AsFloat64() == float64(want)
		}
	case float64:
		switch observed.Type() {
		case attribute.INT64:
			return token{}, float64(observed.AsInt64()) == want
		case attribute.FLOAT64:
			return token{}, observed.AsFloat64() == want
		}
	case bool:
		return token{}, observed.Type() == attribute.BOOL && observed.AsBool() == want
	case string:
		return token{}, valueString(observed) == want
	}
	return token{}, false
}

// rewriteValue computes the value of out for an event matched with tok.
func rewriteValue(tok token, observed attribute.Value, out Event) attribute.Value {
	if out.Value == nil {
		return observed
	}
	if tok.re == nil {
		return valueOf(out.Value)
	}
	return attribute.StringValue(string(tok.re.ExpandString(nil, out.template, tok.src, tok.groups)))
}

// valueString returns the string form patterns are matched against.
func valueString(v attribute.Value) string {
	if v.Type() == attribute.STRING {
		return v.AsString()
	}
	return v.Emit()
}

// valueOf converts a Go value to an attribute value.
func valueOf(value any) attribute.Value {
	switch v := value.(type) {
	case attribute.Value:
		return v
	case string:
		return attribute.StringValue(v)
	case bool:
		return attribute.BoolValue(v)
	case int:
		return attribute.IntValue(v)
	case int64:
		return attribute.Int64Value(v)
	case int32:
		return attribute.Int64Value(int64(v))
	case float64:
		return attribute.Float64Value(v)
	case float32:
		return attribute.Float64Value(float64(v))
	case []string:
		return attribute.StringSliceValue(v)
	case []int:
		return attribute.IntSliceValue(v)
	case []int64:
		return attribute.Int64SliceValue(v)
	case []float64:
		return attribute.Float64SliceValue(v)
	case []bool:
		return attribute.BoolSliceValue(v)
	case fmt.Stringer:
		return attribute.StringValue(v.String())
	default:
		return attribute.StringValue(fmt.Sprintf("%+v", v))
	}
}

// firstMatch returns the first rule of the given kind under key that matches observed.
func (rs *RuleSet) firstMatch(kind EventKind, key string, observed attribute.Value) (*Rule, token, bool) {
	for _, r := range rs.RulesFor(key) {
		if r.Input.Kind != kind {
			continue
		}
		if tok, ok := matchEvent(r.Input, observed); ok {
			return r, tok, true
		}
	}
	return nil, token{}, false
}

// matchesField reports whether any of fields triggers a Log rule.
func (rs *RuleSet) matchesField(fields []attribute.KeyValue) bool {
	for _, f := range fields {
		if _, _, ok := rs.firstMatch(KindLog, string(f.Key), f.Value); ok {
			return true
		}
	}
	return false
}
