/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"fmt"
	"regexp"
)

// EventKind identifies the shape of a span mutation a rule can observe or produce.
type EventKind int

const (
	// KindStart is span creation. It is only valid as a rule input.
	KindStart EventKind = iota
	// KindOperationName sets the span name.
	KindOperationName
	// KindTag sets a span attribute.
	KindTag
	// KindLog records a field of a span event.
	KindLog

	numKinds = int(KindLog) + 1
)

// LogEventKey is the conventional field holding the name of a span event.
const LogEventKey = "event"

var kindNames = [numKinds]string{
	KindStart:         "start",
	KindOperationName: "operationName",
	KindTag:           "tag",
	KindLog:           "log",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= numKinds {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseEventKind returns the kind spelled s in a rule document.
func ParseEventKind(s string) (EventKind, error) {
	for i, name := range kindNames {
		if name == s {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Event is one side of a rule.
//
// As an input, Value is either nil (match anything), a literal (int64, float64, bool)
// or absent in favour of Pattern, a full-match regular expression compiled from a string.
// As an output, a nil Value passes the observed value through unchanged.
type Event struct {
	Kind    EventKind
	Key     string
	Value   any
	Pattern *regexp.Regexp

	// template is Value rewritten into regexp.Expand syntax when the input is a pattern.
	template string
}

// Rule maps one input event to zero or more output events.
// A rule without outputs consumes matching events.
type Rule struct {
	Input   Event
	Outputs []Event
}

// outputKey is the key an output is emitted under.
func (r *Rule) outputKey(out Event) string {
	if out.Key != "" {
		return out.Key
	}
	return r.Input.Key
}
