/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a rule document that cannot be turned into rules.
// Path names the offending element, e.g. "jedis.rules[2].input[0]".
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Path == "" {
		return msg
	}
	return e.Path + ": " + msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// ParseJSON parses a JSON rule document mapping component labels to rule arrays.
func ParseJSON(data []byte) (Components, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ConfigError{Msg: "malformed rule document", Err: err}
	}
	return ParseDocument(doc)
}

// ParseYAML parses a YAML rule document mapping component labels to rule arrays.
func ParseYAML(data []byte) (Components, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Msg: "malformed rule document", Err: err}
	}
	return ParseDocument(doc)
}

// ParseDocument parses an already decoded rule document.
// Labels are processed in sorted order so the first reported error is stable.
func ParseDocument(doc map[string]any) (Components, error) {
	labels := make([]string, 0, len(doc))
	for label := range doc {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	components := make(Components, len(doc))
	for _, label := range labels {
		entries, ok := doc[label].([]any)
		if !ok && doc[label] != nil {
			return nil, configErrorf(label, "rules must be an array, got %T", doc[label])
		}
		rs, err := ParseRuleSet(entries, label)
		if err != nil {
			return nil, err
		}
		components[label] = rs
	}
	return components, nil
}

// ParseRuleSet parses the rule entries of one component.
func ParseRuleSet(entries []any, label string) (*RuleSet, error) {
	rs := NewRuleSet(label)
	for i, entry := range entries {
		rules, err := ParseRule(entry, fmt.Sprintf("%s.rules[%d]", label, i))
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			rs.Add(r)
		}
	}
	return rs, nil
}

// ParseRule parses one rule entry. An entry with an array of inputs yields one
// Rule per input, all sharing the same outputs.
func ParseRule(entry any, subject string) ([]*Rule, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return nil, configErrorf(subject, "rule must be an object, got %T", entry)
	}

	inputs, inputPaths, err := eventList(m["input"], subject+".input")
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, configErrorf(subject, "missing input")
	}
	outputs, outputPaths, err := eventList(m["output"], subject+".output")
	if err != nil {
		return nil, err
	}

	rules := make([]*Rule, 0, len(inputs))
	for i, raw := range inputs {
		input, err := parseEvent(raw, inputPaths[i], nil)
		if err != nil {
			return nil, err
		}
		if err := validateInput(input, inputPaths[i]); err != nil {
			return nil, err
		}

		rule := &Rule{Input: input}
		for j, rawOut := range outputs {
			out, err := parseEvent(rawOut, outputPaths[j], &input)
			if err != nil {
				return nil, err
			}
			if err := validateOutput(input, out, outputPaths[j]); err != nil {
				return nil, err
			}
			rule.Outputs = append(rule.Outputs, out)
		}

		if rule.Input.Kind == KindLog && rule.Input.Key == "" {
			rule.Input.Key = LogEventKey
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// eventList accepts a single event object or an array of them.
func eventList(v any, path string) ([]any, []string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil, nil
	case map[string]any:
		return []any{v}, []string{path}, nil
	case []any:
		paths := make([]string, len(v))
		for i := range v {
			paths[i] = fmt.Sprintf("%s[%d]", path, i)
		}
		return v, paths, nil
	default:
		return nil, nil, configErrorf(path, "expected an object or an array, got %T", v)
	}
}

// parseEvent parses an input event when input is nil, an output of input otherwise.
func parseEvent(raw any, path string, input *Event) (Event, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Event{}, configErrorf(path, "event must be an object, got %T", raw)
	}

	var ev Event
	switch typ := m["type"].(type) {
	case nil:
		if input == nil {
			return Event{}, configErrorf(path, `missing "type"`)
		}
		ev.Kind = input.Kind
	case string:
		kind, err := ParseEventKind(typ)
		if err != nil {
			return Event{}, &ConfigError{Path: path, Err: err}
		}
		ev.Kind = kind
	default:
		return Event{}, configErrorf(path, `"type" must be a string, got %T`, typ)
	}

	switch key := m["key"].(type) {
	case nil:
	case string:
		ev.Key = key
	default:
		return Event{}, configErrorf(path, `"key" must be a string, got %T`, key)
	}

	value, err := literal(m["value"])
	if err != nil {
		return Event{}, &ConfigError{Path: path, Err: err}
	}
	ev.Value = value

	if s, ok := value.(string); ok && input == nil {
		re, err := regexp.Compile("^(?:" + s + ")$")
		if err != nil {
			return Event{}, &ConfigError{Path: path, Msg: fmt.Sprintf("invalid pattern %q", s), Err: err}
		}
		ev.Pattern = re
	}
	if input != nil && input.Pattern != nil && value != nil {
		tmpl, err := expandTemplate(literalString(value), input.Pattern)
		if err != nil {
			return Event{}, &ConfigError{Path: path, Msg: fmt.Sprintf("invalid replacement %q", literalString(value)), Err: err}
		}
		ev.template = tmpl
	}
	return ev, nil
}

// literal normalizes a decoded document value to string, int64, float64 or bool.
func literal(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func literalString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// expandTemplate converts a replacement using $n, ${name} and \$ escapes into
// regexp.Expand syntax. Group numbers consume digits while the group exists.
func expandTemplate(s string, re *regexp.Regexp) (string, error) {
	groups := re.NumSubexp()

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			i++
			if i == len(s) {
				return "", errors.New("character to be escaped is missing")
			}
			if s[i] == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(s[i])
			}
		case '$':
			i++
			if i == len(s) {
				return "", errors.New("illegal group reference: group index is missing")
			}
			if s[i] == '{' {
				end := strings.IndexByte(s[i:], '}')
				if end < 0 {
					return "", errors.New("named capturing group is missing trailing '}'")
				}
				name := s[i+1 : i+end]
				if n, err := strconv.Atoi(name); err == nil && n >= 0 && name[0] != '+' {
					if n > groups {
						return "", fmt.Errorf("no group %d", n)
					}
				} else if name == "" || re.SubexpIndex(name) < 0 {
					return "", fmt.Errorf("no group with name {%s}", name)
				}
				b.WriteString("${" + name + "}")
				i += end
				continue
			}
			if s[i] < '0' || s[i] > '9' {
				return "", errors.New("illegal group reference")
			}
			ref := int(s[i] - '0')
			if ref > groups {
				return "", fmt.Errorf("no group %d", ref)
			}
			for i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				next := ref*10 + int(s[i+1]-'0')
				if next > groups {
					break
				}
				ref = next
				i++
			}
			b.WriteString("${" + strconv.Itoa(ref) + "}")
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
