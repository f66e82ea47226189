// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const preprocessorName = "permalink"

// Options is the permalink resolver's configuration (§6): the repo URL
// template used to pin links to this commit/tag, the book's own public URL
// prefix (for cross-page in-book link validation), the extensions always
// linked to the hosted repository even when the file lies inside the book
// source directory (the link form still follows the link's role), and
// fail-on-warnings.
type Options struct {
	RepoURLTemplate string `mapstructure:"repo-url-template"`
	BookURL string `mapstructure:"book-url"`
	AlwaysLink []string `mapstructure:"always-link"`
	FailOnWarnings bool `mapstructure:"fail-on-warnings"`

	GitHubToken string `mapstructure:"github-token"`
	CacheDir string `mapstructure:"cache-dir"`
}

func addFlags(cmd *cobra.Command) {
	cmd.Flags().String("repo-url-template", "", "URL template with {ref} and {path} placeholders pointing at this repository's source host; its /tree/, /blob/ or /raw/ segment selects the tree and raw link forms.")
	cmd.Flags().String("book-url", "", "The book's own published URL prefix, used to validate in-book absolute links.")
	cmd.Flags().StringSlice("always-link", nil, "File extensions that are always linked to the source host even when the file is inside the book source directory (e.g. \"png\", \"svg\").")
	cmd.Flags().Bool("fail-on-warnings", false, "Exit non-zero when any link failed to resolve. Defaults to true when CI is set.")
	cmd.Flags().String("github-token", "", "OAuth token for the GitHub API ref-resolution fallback, used when the local checkout carries no tag matching HEAD.")
	cmd.Flags().String("cache-dir", ".mdbook-permalink-cache", "Directory for the GitHub API response cache.")
}

func defaults(v *viper.Viper) {
	v.SetDefault("cache-dir", ".mdbook-permalink-cache")
}
