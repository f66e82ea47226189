// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const preprocessorName = "rustdoc-link"

// Options is the API-link resolver's configuration (§6): manifest-dir,
// a rust-analyzer-style server-command override, cargo-features, cache-dir,
// rust-analyzer-timeout and fail-on-warnings. Field tags name the exact
// option keys spec §6 recognizes; no others are honored.
type Options struct {
	ManifestDir string `mapstructure:"manifest-dir"`
	ServerCommand string `mapstructure:"rust-analyzer"`
	CargoFeatures []string `mapstructure:"cargo-features"`
	CacheDir string `mapstructure:"cache-dir"`
	TimeoutSeconds int `mapstructure:"rust-analyzer-timeout"`
	FailOnWarnings bool `mapstructure:"fail-on-warnings"`
}

func addFlags(cmd *cobra.Command) {
	cmd.Flags().String("manifest-dir", ".", "Directory containing the target crate's Cargo.toml.")
	cmd.Flags().String("rust-analyzer", "rust-analyzer", "Override the language server command.")
	cmd.Flags().StringSlice("cargo-features", nil, "Cargo features to enable when indexing the project.")
	cmd.Flags().String("cache-dir", ".mdbook-rustdoc-link-cache", "Cache directory, relative to manifest-dir.")
	cmd.Flags().Int("rust-analyzer-timeout", 60, "Timeout, in seconds, for the language server handshake and each query; the indexing wait gets twice this value.")
	cmd.Flags().Bool("fail-on-warnings", false, "Exit non-zero when any link failed to resolve. Defaults to true when CI is set.")
}

func defaults(v *viper.Viper) {
	v.SetDefault("manifest-dir", ".")
	v.SetDefault("rust-analyzer", "rust-analyzer")
	v.SetDefault("cache-dir", ".mdbook-rustdoc-link-cache")
	v.SetDefault("rust-analyzer-timeout", 60)
}
