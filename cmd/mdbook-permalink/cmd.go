// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-mdbook/linkkit/cmd/gendocs"
	"github.com/go-mdbook/linkkit/cmd/internal/bookio"
	"github.com/go-mdbook/linkkit/cmd/internal/cliconfig"
	"github.com/go-mdbook/linkkit/cmd/internal/runner"
	versioncmd "github.com/go-mdbook/linkkit/cmd/version"
	"github.com/go-mdbook/linkkit/pkg/driver"
	"github.com/go-mdbook/linkkit/pkg/repospec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// NewRootCmd builds the permalink preprocessor's command tree, the same
// shape as the API-link resolver's (§6): a root command implementing the
// host protocol, plus `supports`, `markdown`, `version` and `gen-cmd-docs`.
func NewRootCmd() *cobra.Command {
	v := cliconfig.New()
	defaults(v)

	root := &cobra.Command{
		Use:   "mdbook-permalink",
		Short: "An mdbook preprocessor that rewrites filesystem-path links into versioned source-hosting URLs.",
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

// newMarkdownCmd rewrites a single Markdown document read from stdin,
// resolving its links against the repository rooted at the current
// directory — the standalone counterpart of book mode.
func newMarkdownCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markdown",
		Short: "Resolve permalinks in a single Markdown document read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts Options
			if err := cliconfig.Unmarshal(v, &opts); err != nil {
				return fmt.Errorf("decoding options: %w", err)
			}
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			b, err := bookio.ReadStandalone(os.Stdin)
			if err != nil {
				return err
			}
			d, err := buildDriver(cmd.Context(), opts, root, root)
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

// runBookMode implements the host preprocessor protocol (§6).
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

	bgctx := context.Background()
	d, err := buildDriver(bgctx, opts, ctx.Root, bookio.SourceDir(ctx))
	if err != nil {
		return err
	}

	failOnWarnings := runner.FailOnWarnings(
		cmd.Flags().Changed("fail-on-warnings"),
		opts.FailOnWarnings,
		cliconfig.BoolFromTable(table, "fail-on-warnings"),
	)

	code := runner.Run(bgctx, d, b, failOnWarnings)
	if err := bookio.WriteBookMode(os.Stdout, b); err != nil {
		return err
	}
	if code != runner.ExitSuccess {
		os.Exit(code)
	}
	return nil
}

// buildDriver resolves the repository the book lives in (falling back to
// the GitHub API when the local checkout carries no tag matching HEAD) and
// assembles a Driver in ModePermalink.
func buildDriver(ctx context.Context, opts Options, repoRoot, bookSourceDir string) (*driver.Driver, error) {
	var fallback *repospec.GitHubFallback
	if host, owner, repo, ok := parseOwnerRepo(opts.RepoURLTemplate); ok {
		cacheDir := opts.CacheDir
		if !filepath.IsAbs(cacheDir) {
			cacheDir = filepath.Join(repoRoot, cacheDir)
		}
		fallback = repospec.NewGitHubFallback(host, owner, repo, opts.GitHubToken, cacheDir)
	}

	spec, err := repospec.Discover(ctx, repoRoot, opts.RepoURLTemplate, fallback)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("permalink: repo root=%s host=%s ref=%s", spec.Root, spec.Host, spec.Ref)

	alwaysLink := make(map[string]bool, len(opts.AlwaysLink))
	for _, ext := range opts.AlwaysLink {
		alwaysLink["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	cfg := driver.Config{
		Mode:           driver.ModePermalink,
		Repo:           spec,
		BookSourceDir:  bookSourceDir,
		AlwaysLink:     alwaysLink,
		BookURLPrefix:  opts.BookURL,
		FailOnWarnings: opts.FailOnWarnings,
	}
	return driver.New(cfg), nil
}

// parseOwnerRepo extracts the GitHub host/owner/repo a repo-url-template
// names, used only to configure the GitHub API ref-resolution fallback; a
// template whose host isn't recognizable as owner/repo shaped (e.g. one
// pointing at a self-hosted Git server with no API available) disables the
// fallback rather than failing the whole run.
func parseOwnerRepo(template string) (host, owner, repo string, ok bool) {
	u, err := url.Parse(template)
	if err != nil || u.Host == "" {
		return "", "", "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return "", "", "", false
	}
	if segments[0] == "" || segments[1] == "" {
		return "", "", "", false
	}
	return u.Host, segments[0], segments[1], true
}
