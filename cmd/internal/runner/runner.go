// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package runner shares the "run the driver, report diagnostics, compute
// an exit code" tail end of both binaries' command trees (§6, §7): book
// mode and standalone mode differ only in how the Book is read and
// written, not in how the driver is invoked or how diagnostics are
// rendered.
package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/go-mdbook/linkkit/pkg/book"
	"github.com/go-mdbook/linkkit/pkg/diagnostics"
	"github.com/go-mdbook/linkkit/pkg/driver"
)

// Exit codes mirror the §6 CLI surface's documented exit codes.
const (
	ExitSuccess = 0
	ExitFatal = 1
	ExitUnresolvedWarnings = 2
)

// Run drives b through d, renders accumulated diagnostics to stderr, and
// reports the exit code the caller's main() should use. On a fatal
// (environment/configuration) error, b is left unwritten by the caller:
// Run returns ExitFatal before suggesting anything be printed to stdout.
func Run(ctx context.Context, d *driver.Driver, b *book.Book, failOnWarnings bool) int {
	sources := map[string][]byte{}
	b.Walk(func(ch *book.Chapter) { sources[ch.ID()] = []byte(ch.Content) })

	if err := d.Run(ctx, b); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return ExitFatal
	}

	diags := d.Diagnostics().All()
	if len(diags) > 0 {
		diagnostics.NewReporter(os.Stderr).Report(os.Stderr, diags, sources)
	}
	if failOnWarnings && d.Diagnostics().HasWarnings() {
		return ExitUnresolvedWarnings
	}
	return ExitSuccess
}

// FailOnWarnings resolves the fail-on-warnings default (§6): an explicit
// CLI flag wins; failing that, a book-config value wins; failing that, CI
// being truthy is the default.
func FailOnWarnings(flagChanged, flagValue bool, bookConfigured *bool) bool {
	if flagChanged {
		return flagValue
	}
	if bookConfigured != nil {
		return *bookConfigured
	}
	ci := os.Getenv("CI")
	return ci != "" && ci != "0" && ci != "false"
}
