/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

// rulecheck validates rewrite rule documents and previews their effect on a span.
package main

import "github.com/yakumioto/otelrewrite/internal/cli"

func main() {
	cli.Execute()
}
