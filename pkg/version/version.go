// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package version

// Version is a global variable which is set during compile time via -ld-flags in the `go build` process.
// It stores the version of linkkit and has either the form <X> or <X.Y>, where <X> denominates
// the current 'major' version, and <Y> (if present) denominates the current 'hotfix' version.
var Version = "binary was not built properly"

// LastServerVersion is a language server version string that the version
// command prints when it is non-empty. No code in this module assigns it,
// so it stays empty; timeout diagnostics take the version from the
// handshake result instead.
var LastServerVersion string
