/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"regexp"
	"sort"
	"strings"
)

// RuleSet indexes rules by the key of their input event.
// OperationName and Start rules live under the empty key.
//
// A parsed RuleSet is never modified by the rewriter and can be shared by any
// number of spans. A nil *RuleSet holds no rules.
type RuleSet struct {
	label     string
	component *regexp.Regexp
	rules     map[string][]*Rule
	n         int

	// fieldRules counts Log rules keyed by an event attribute rather than the event name.
	fieldRules int
}

// NewRuleSet returns an empty RuleSet for the component label.
// A "*" in the label matches any run of characters in a component name.
func NewRuleSet(label string) *RuleSet {
	return &RuleSet{
		label:     label,
		component: compileLabel(label),
		rules:     make(map[string][]*Rule),
	}
}

func compileLabel(label string) *regexp.Regexp {
	parts := strings.Split(label, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Label returns the component label the rules were declared under.
func (rs *RuleSet) Label() string {
	if rs == nil {
		return ""
	}
	return rs.label
}

// Matches reports whether the component label covers the component name.
func (rs *RuleSet) Matches(component string) bool {
	return rs != nil && rs.component.MatchString(component)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return rs.n
}

// hasFieldRules reports whether any Log rule is keyed by an event attribute.
func (rs *RuleSet) hasFieldRules() bool {
	return rs != nil && rs.fieldRules > 0
}

// RulesFor returns the rules registered for key in declaration order.
func (rs *RuleSet) RulesFor(key string) []*Rule {
	if rs == nil {
		return nil
	}
	return rs.rules[key]
}

// Add appends r after the rules already registered for its key.
func (rs *RuleSet) Add(r *Rule) {
	rs.rules[r.Input.Key] = append(rs.rules[r.Input.Key], r)
	rs.n++
	if r.Input.Kind == KindLog && r.Input.Key != LogEventKey {
		rs.fieldRules++
	}
}

// Merge appends the rules of other after the rules of rs, key by key.
func (rs *RuleSet) Merge(other *RuleSet) {
	if other == nil {
		return
	}
	for _, key := range other.keys() {
		for _, r := range other.rules[key] {
			rs.Add(r)
		}
	}
}

// Clone returns a copy with its own per-key lists. Rules are shared.
func (rs *RuleSet) Clone() *RuleSet {
	if rs == nil {
		return nil
	}
	c := &RuleSet{
		label:     rs.label,
		component: rs.component,
		rules:     make(map[string][]*Rule, len(rs.rules)),
		n:         rs.n,

		fieldRules: rs.fieldRules,
	}
	for key, rules := range rs.rules {
		c.rules[key] = append([]*Rule(nil), rules...)
	}
	return c
}

func (rs *RuleSet) keys() []string {
	keys := make([]string, 0, len(rs.rules))
	for key := range rs.rules {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Components maps component labels to their rules.
type Components map[string]*RuleSet

// Lookup returns the rules applying to a component.
//
// Rules declared under the exact label come first, followed by rules of every
// wildcard label matching the component, so specific rules win under first-match.
// Wildcard labels are ordered by label with "*" last. Lookup returns nil when no
// label applies.
func (c Components) Lookup(component string) *RuleSet {
	var wildcards []*RuleSet
	for label, rs := range c {
		if label != component && strings.Contains(label, "*") && rs.Matches(component) {
			wildcards = append(wildcards, rs)
		}
	}
	sort.Slice(wildcards, func(i, j int) bool {
		li, lj := wildcards[i].label, wildcards[j].label
		if li == "*" || lj == "*" {
			return lj == "*" && li != "*"
		}
		return li < lj
	})

	specific := c[component]
	if len(wildcards) == 0 {
		return specific
	}

	merged := specific.Clone()
	if merged == nil {
		merged = NewRuleSet(component)
	}
	for _, rs := range wildcards {
		merged.Merge(rs)
	}
	return merged
}
