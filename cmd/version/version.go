// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package version provides the "version" subcommand shared by both
// binaries, adapted from docforge's cmd/version to also surface the
// language server's last-seen version string (§4.G, §7) when one is
// available.
package version

import (
	"fmt"

	"github.com/go-mdbook/linkkit/pkg/version"
	"github.com/spf13/cobra"
)

// NewCmd creates a version command printing the binary version and, for
// the API-link resolver, the last language-server version string observed
// in this process.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
			if version.LastServerVersion != "" {
				fmt.Printf("language server: %s\n", version.LastServerVersion)
			}
		},
	}
}
