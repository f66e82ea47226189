// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package loglevel translates the MDBOOK_LOG / RUST_LOG environment
// variables into klog's own "-v" verbosity flag, the way docforge's
// cmd/app wires klog.InitFlags(nil) straight into the root command's flag
// set but leaves verbosity selection to the caller's environment.
package loglevel

import (
	"flag"
	"os"
	"strings"

	"k8s.io/klog/v2"
)

// Apply initializes klog's flags and sets its verbosity from whichever of
// MDBOOK_LOG or RUST_LOG is set (MDBOOK_LOG wins if both are), defaulting
// to level 0 (warnings and above only) when neither names a recognized
// filter.
func Apply() {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)

	level := "0"
	if v, ok := levelFromFilter(os.Getenv("MDBOOK_LOG")); ok {
		level = v
	} else if v, ok := levelFromFilter(os.Getenv("RUST_LOG")); ok {
		level = v
	}
	_ = fs.Set("v", level)
	_ = fs.Set("logtostderr", "true")
}

// levelFromFilter maps a tracing-style filter string to a klog verbosity
// by the most verbose level name found anywhere in it, including inside a
// per-module directive (e.g. "rust_analyzer=debug" gives 3); modules are
// not told apart, and a non-empty filter naming no level gives 0.
func levelFromFilter(filter string) (string, bool) {
	if filter == "" {
		return "", false
	}
	lower := strings.ToLower(filter)
	switch {
	case strings.Contains(lower, "trace"):
		return "4", true
	case strings.Contains(lower, "debug"):
		return "3", true
	case strings.Contains(lower, "info"):
		return "2", true
	case strings.Contains(lower, "warn"):
		return "1", true
	case strings.Contains(lower, "error"):
		return "0", true
	default:
		return "0", true
	}
}
