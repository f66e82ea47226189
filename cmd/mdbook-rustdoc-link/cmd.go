// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-mdbook/linkkit/cmd/gendocs"
	"github.com/go-mdbook/linkkit/cmd/internal/bookio"
	"github.com/go-mdbook/linkkit/cmd/internal/cliconfig"
	"github.com/go-mdbook/linkkit/cmd/internal/runner"
	versioncmd "github.com/go-mdbook/linkkit/cmd/version"
	"github.com/go-mdbook/linkkit/pkg/driver"
	"github.com/go-mdbook/linkkit/pkg/lspclient"
	"github.com/go-mdbook/linkkit/pkg/project"
	"github.com/go-mdbook/linkkit/pkg/repospec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// NewRootCmd builds the rustdoc-link preprocessor's full command tree: the
// root command implements the host protocol when invoked with no subcommand
// and a book on stdin (§6); `supports` and `markdown` give the standalone
// surfaces the same section describes; `version` and `gen-cmd-docs` round
// out the CLI the way docforge's root command does for its own subcommands.
func NewRootCmd() *cobra.Command {
	v := cliconfig.New()
	defaults(v)

	root := &cobra.Command{
		Use:   "mdbook-rustdoc-link",
		Short: "An mdbook preprocessor that resolves Rust item-path links via rust-analyzer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookMode(cmd, v)
		},
	}
	addFlags(root)
	cliconfig.BindFlags(v, root.Flags())

	root.AddCommand(newSupportsCmd())
	root.AddCommand(newMarkdownCmd(v))
	root.AddCommand(versioncmd.NewCmd())
	root.AddCommand(gendocs.NewGenCmdDocs())
	return root
}

// newSupportsCmd implements mdbook's renderer-compatibility probe: mdbook
// calls `supports <renderer>` before running the preprocessor and skips it
// entirely when this exits non-zero. Only the html renderer emits
// navigable links, so every other renderer is declined.
func newSupportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supports <renderer>",
		Short: "Report whether the given mdbook renderer is supported.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "html" {
				return fmt.Errorf("renderer %q is not supported", args[0])
			}
			return nil
		},
	}
}

// newMarkdownCmd implements the standalone single-document mode: a
// Markdown document read from stdin is rewritten and written to stdout,
// without the host protocol's [context, book] envelope, so an item-link
// Markdown file can be previewed without running mdbook at all.
func newMarkdownCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markdown",
		Short: "Resolve item links in a single Markdown document read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts Options
			if err := cliconfig.Unmarshal(v, &opts); err != nil {
				return fmt.Errorf("decoding options: %w", err)
			}
			b, err := bookio.ReadStandalone(os.Stdin)
			if err != nil {
				return err
			}
			d, err := buildDriver(opts, opts.ManifestDir)
			if err != nil {
				return err
			}
			failOnWarnings := runner.FailOnWarnings(cmd.Flags().Changed("fail-on-warnings"), opts.FailOnWarnings, nil)
			code := runner.Run(cmd.Context(), d, b, failOnWarnings)
			if err := bookio.WriteStandalone(os.Stdout, b); err != nil {
				return err
			}
			if code != runner.ExitSuccess {
				os.Exit(code)
			}
			return nil
		},
	}
	addFlags(cmd)
	cliconfig.BindFlags(v, cmd.Flags())
	return cmd
}

// runBookMode implements the host preprocessor protocol (§6): decode the
// [context, book] pair, merge the preprocessor's own book.toml table over
// the bound flags, run the driver, encode the rewritten book to stdout.
func runBookMode(cmd *cobra.Command, v *viper.Viper) error {
	if err := cliconfig.LoadConfigFile(v); err != nil {
		return err
	}

	ctx, b, err := bookio.ReadBookMode(os.Stdin)
	if err != nil {
		return err
	}

	table, err := cliconfig.PreprocessorTable(ctx.Config, preprocessorName)
	if err != nil {
		return err
	}
	if err := cliconfig.MergeBookConfig(v, table); err != nil {
		return err
	}

	var opts Options
	if err := cliconfig.Unmarshal(v, &opts); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}

	manifestDir := opts.ManifestDir
	if !filepath.IsAbs(manifestDir) {
		manifestDir = filepath.Join(ctx.Root, manifestDir)
	}

	d, err := buildDriver(opts, manifestDir)
	if err != nil {
		return err
	}

	failOnWarnings := runner.FailOnWarnings(
		cmd.Flags().Changed("fail-on-warnings"),
		opts.FailOnWarnings,
		cliconfig.BoolFromTable(table, "fail-on-warnings"),
	)

	code := runner.Run(context.Background(), d, b, failOnWarnings)
	if err := bookio.WriteBookMode(os.Stdout, b); err != nil {
		return err
	}
	if code != runner.ExitSuccess {
		os.Exit(code)
	}
	return nil
}

// buildDriver assembles a Driver in ModeAPILink: it locates the target
// crate via pkg/project, builds the LSP client configuration from opts,
// and constructs a cache env-file list out of the project manifest, the
// enclosing workspace manifest (if any) and the entry source, so a later
// run's cache lookup is invalidated the moment any of them changes. The
// driver itself extends this list at write time with whatever additional
// local files the language server resolved items against (spec.md §4.H).
func buildDriver(opts Options, manifestDir string) (*driver.Driver, error) {
	proj, err := project.Load(manifestDir)
	if err != nil {
		return nil, err
	}

	cacheDir := opts.CacheDir
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(proj.Dir, cacheDir)
	}

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	serverCommand := opts.ServerCommand
	if serverCommand == "" {
		serverCommand = "rust-analyzer"
	}

	var args []string
	for _, feat := range opts.CargoFeatures {
		args = append(args, "--cfg-feature", feat)
	}

	klog.V(1).Infof("rustdoc-link: project=%s server=%s cache=%s", proj.Dir, serverCommand, cacheDir)

	envFiles := []string{proj.ManifestPath, proj.EntryPath}
	if proj.WorkspaceManifestPath != "" {
		envFiles = append(envFiles, proj.WorkspaceManifestPath)
	}

	cfg := driver.Config{
		Mode: driver.ModeAPILink,
		Repo: &repospec.RepoSpec{},

		LSP: lspclient.Config{
			Command:       serverCommand,
			Args:          args,
			WorkspaceRoot: proj.Dir,
			EntryURI:      "file://" + proj.EntryPath,

			HandshakeTimeout: timeout,
			IndexingTimeout:  timeout * 2,
			RequestTimeout:   timeout,
			Cooldown:         300 * time.Millisecond,
			Concurrency:      4,
		},
		CacheDir:       cacheDir,
		EntrySource:    proj.EntrySource,
		EnvFiles:       envFiles,
		FailOnWarnings: opts.FailOnWarnings,
	}
	return driver.New(cfg), nil
}
