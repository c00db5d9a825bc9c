/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

// inputChecks holds the grammar of each input kind.
var inputChecks = [numKinds]func(in Event) string{
	KindStart: func(in Event) string {
		if in.Key != "" {
			return "start event must not have a key"
		}
		if in.Value != nil {
			return "start event must not have a value"
		}
		return ""
	},
	KindOperationName: func(in Event) string {
		if in.Key != "" {
			return "operationName event must not have a key"
		}
		return ""
	},
	KindTag: func(in Event) string {
		if in.Key == "" {
			return "tag without a key is not allowed"
		}
		return ""
	},
	KindLog: func(Event) string { return "" },
}

// outputChecks holds the constraints of each output kind given its input.
var outputChecks = [numKinds]func(in, out Event) string{
	KindStart: func(_, _ Event) string {
		return "start is not allowed as output"
	},
	KindOperationName: func(_, out Event) string {
		if out.Key != "" {
			return "operationName output must not have a key"
		}
		return ""
	},
	KindTag: func(in, out Event) string {
		if out.Key == "" && in.Key == "" {
			return "missing output key for tag"
		}
		return ""
	},
	KindLog: func(in, out Event) string {
		if out.Key == "" && in.Key == "" && in.Kind != KindLog {
			return "missing output key for log fields"
		}
		return ""
	},
}

func validateInput(in Event, path string) error {
	if msg := inputChecks[in.Kind](in); msg != "" {
		return configErrorf(path, "%s", msg)
	}
	return nil
}

func validateOutput(in, out Event, path string) error {
	if msg := outputChecks[out.Kind](in, out); msg != "" {
		return configErrorf(path, "%s", msg)
	}
	return nil
}
