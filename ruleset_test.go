/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagRule(key string, value any) *Rule {
	return &Rule{Input: Event{Kind: KindTag, Key: key, Value: value}}
}

func TestRuleSet(t *testing.T) {
	t.Run("rules keep declaration order", func(t *testing.T) {
		rs := NewRuleSet("x")
		a, b, c := tagRule("k", int64(1)), tagRule("k", int64(2)), tagRule("other", nil)
		rs.Add(a)
		rs.Add(b)
		rs.Add(c)

		assert.Equal(t, []*Rule{a, b}, rs.RulesFor("k"))
		assert.Equal(t, []*Rule{c}, rs.RulesFor("other"))
		assert.Empty(t, rs.RulesFor("missing"))
		assert.Equal(t, 3, rs.Len())
	})

	t.Run("merge appends per key", func(t *testing.T) {
		a, b, c := tagRule("k", int64(1)), tagRule("k", int64(2)), tagRule("j", nil)
		rs := NewRuleSet("x")
		rs.Add(a)
		other := NewRuleSet("y")
		other.Add(b)
		other.Add(c)

		rs.Merge(other)
		rs.Merge(nil)
		assert.Equal(t, []*Rule{a, b}, rs.RulesFor("k"))
		assert.Equal(t, []*Rule{c}, rs.RulesFor("j"))
		assert.Equal(t, 3, rs.Len())
		assert.Equal(t, []*Rule{b}, other.RulesFor("k"), "merge leaves the other set alone")
	})

	t.Run("clone copies lists and shares rules", func(t *testing.T) {
		a := tagRule("k", nil)
		rs := NewRuleSet("x")
		rs.Add(a)

		c := rs.Clone()
		c.Add(tagRule("k", int64(1)))
		assert.Len(t, rs.RulesFor("k"), 1)
		assert.Len(t, c.RulesFor("k"), 2)
		assert.Same(t, a, c.RulesFor("k")[0])
		assert.Equal(t, "x", c.Label())
	})

	t.Run("nil rule set is empty", func(t *testing.T) {
		var rs *RuleSet
		assert.Nil(t, rs.RulesFor("k"))
		assert.Zero(t, rs.Len())
		assert.Nil(t, rs.Clone())
		assert.False(t, rs.Matches("jedis"))
		assert.Empty(t, rs.Label())
	})

	t.Run("label patterns", func(t *testing.T) {
		assert.True(t, NewRuleSet("*").Matches("anything"))
		assert.True(t, NewRuleSet("jdbc:*").Matches("jdbc:mysql"))
		assert.False(t, NewRuleSet("jdbc:*").Matches("jedis"))
		assert.True(t, NewRuleSet("a.b").Matches("a.b"))
		assert.False(t, NewRuleSet("a.b").Matches("axb"), "dots are literal")
	})
}

func TestComponentsLookup(t *testing.T) {
	specific := tagRule("k", "specific")
	prefixed := tagRule("k", "prefixed")
	global := tagRule("k", "global")

	components := Components{
		"jdbc:mysql": NewRuleSet("jdbc:mysql"),
		"jdbc:*":     NewRuleSet("jdbc:*"),
		"*":          NewRuleSet("*"),
	}
	components["jdbc:mysql"].Add(specific)
	components["jdbc:*"].Add(prefixed)
	components["*"].Add(global)

	t.Run("specific rules come before wildcard rules", func(t *testing.T) {
		rs := components.Lookup("jdbc:mysql")
		require.NotNil(t, rs)
		assert.Equal(t, []*Rule{specific, prefixed, global}, rs.RulesFor("k"))
		assert.Len(t, components["jdbc:mysql"].RulesFor("k"), 1, "lookup does not modify the component")
	})

	t.Run("wildcards only", func(t *testing.T) {
		assert.Equal(t, []*Rule{prefixed, global}, components.Lookup("jdbc:postgres").RulesFor("k"))
		assert.Equal(t, []*Rule{global}, components.Lookup("jedis").RulesFor("k"))
	})

	t.Run("no applicable label", func(t *testing.T) {
		only := Components{"jedis": NewRuleSet("jedis")}
		assert.Nil(t, only.Lookup("okhttp"))
		assert.Same(t, only["jedis"], only.Lookup("jedis"))
	})
}
