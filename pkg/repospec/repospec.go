// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package repospec resolves the repository the book's source lives in: its
// source-hosting URL template, the ref to anchor links to, and the absolute
// repo root on disk, grounded on docforge's git resourcehandler for local
// ref discovery and its GitHub resourcehandler for the ref-resolution
// fallback used when HEAD carries no local tag.
package repospec

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-multierror"
	"k8s.io/klog/v2"
)

// URLForm distinguishes the two forms a source host exposes for a file.
type URLForm string

const (
	// FormTree renders the file as a page.
	FormTree URLForm = "tree"
	// FormRaw serves the file's raw bytes.
	FormRaw URLForm = "raw"
)

// RepoSpec is discovered once at startup and is effectively immutable for
// the remainder of the run.
type RepoSpec struct {
	// Template is the tree-style URL template and RawTemplate the
	// raw-style one, both carrying {ref} and {path} placeholders. Discover
	// derives both from the configured repo-url-template by switching its
	// /tree/, /blob/ or /raw/ segment.
	Template string
	RawTemplate string
	// Host is the hostname portion of Template, used by the classifier
	// to recognize the repo's own canonical URLs.
	Host string
	// Ref is a tag name if HEAD is tagged, else the full commit hash.
	Ref string
	// Root is the absolute repo-root path on disk.
	Root string
}

// Discover resolves a RepoSpec for the repository rooted at root, using the
// configured URL template. It opens the local Git repository the same way
// docforge's git resourcehandler walks up from a working copy to find
// HEAD's ref, preferring an exact tag match over the raw commit hash. When
// fallback is non-nil and the local checkout carries no tag matching HEAD
// (a shallow or detached clone), the GitHub API is consulted instead.
func Discover(ctx context.Context, root, urlTemplate string, fallback *GitHubFallback) (*RepoSpec, error) {
	if urlTemplate == "" {
		return nil, fmt.Errorf("repospec: repo-url-template is required")
	}
	treeTpl, rawTpl, host, err := expandForms(urlTemplate)
	if err != nil {
		return nil, err
	}

	headSHA, tagged, err := resolveLocalRef(root)
	if err != nil {
		return nil, err
	}
	ref := headSHA
	if tagged != "" {
		ref = tagged
	} else if fallback != nil {
		if apiRef, ferr := fallback.ResolveRef(ctx, headSHA); ferr != nil {
			klog.Warningf("repospec: GitHub ref-resolution fallback failed, using raw commit hash: %v", ferr)
		} else {
			ref = apiRef
		}
	}

	return &RepoSpec{
		Template: treeTpl,
		RawTemplate: rawTpl,
		Host: host,
		Ref: ref,
		Root: root,
	}, nil
}

func expandForms(tpl string) (tree, raw, host string, err error) {
	if !strings.Contains(tpl, "{ref}") || !strings.Contains(tpl, "{path}") {
		return "", "", "", fmt.Errorf("repospec: repo-url-template must contain {ref} and {path}: %q", tpl)
	}
	var merr *multierror.Error
	h, herr := hostOf(tpl)
	if herr != nil {
		merr = multierror.Append(merr, herr)
	}
	if merr.ErrorOrNil() != nil {
		return "", "", "", merr
	}
	if strings.Contains(tpl, "/tree/") {
		tree = tpl
		raw = strings.Replace(tpl, "/tree/", "/raw/", 1)
	} else if strings.Contains(tpl, "/raw/") {
		raw = tpl
		tree = strings.Replace(tpl, "/raw/", "/tree/", 1)
	} else if strings.Contains(tpl, "/blob/") {
		tree = strings.Replace(tpl, "/blob/", "/tree/", 1)
		raw = strings.Replace(tpl, "/blob/", "/raw/", 1)
	} else {
		tree = tpl
		raw = tpl
	}
	return tree, raw, h, nil
}

func hostOf(tpl string) (string, error) {
	rest := tpl
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return "", fmt.Errorf("repospec: could not determine host from template %q", tpl)
	}
	return rest, nil
}

// URL builds the tree- or raw-style URL for repoRelativePath at s.Ref.
func (s *RepoSpec) URL(form URLForm, repoRelativePath string) string {
	tpl := s.Template
	if form == FormRaw {
		tpl = s.RawTemplate
	}
	out := strings.ReplaceAll(tpl, "{ref}", s.Ref)
	out = strings.ReplaceAll(out, "{path}", repoRelativePath)
	return out
}

// resolveLocalRef returns HEAD's full commit hash and, if one exists, the
// name of a local tag pointing at it — mirroring docforge's git
// resourcehandler preference for a human readable ref over a raw SHA
// whenever one is available.
func resolveLocalRef(root string) (headSHA, tagName string, err error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", fmt.Errorf("repospec: opening git repository at %s: %w", root, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("repospec: resolving HEAD: %w", err)
	}
	tagRefs, err := repo.Tags()
	if err != nil {
		return "", "", fmt.Errorf("repospec: listing tags: %w", err)
	}
	_ = tagRefs.ForEach(func(ref *plumbing.Reference) error {
		resolved, rerr := repo.ResolveRevision(plumbing.Revision(ref.Name().String()))
		if rerr == nil && *resolved == head.Hash() {
			tagName = ref.Name().Short()
		}
		return nil
	})
	return head.Hash().String(), tagName, nil
}
