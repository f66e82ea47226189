// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package pathresolve implements the permalink core: resolving a
// relative or repo-absolute path link against the discovered repository and
// turning it into a versioned source-hosting URL, grounded on docforge's
// repositoryhost.URL.ResolveRelativeLink machinery.
package pathresolve

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-mdbook/linkkit/pkg/mdstream"
	"github.com/go-mdbook/linkkit/pkg/repospec"
)

// Exists reports whether absPath names a file on disk.
type Exists func(absPath string) bool

// Options carries the configuration the path resolver needs per call.
type Options struct {
	Repo *repospec.RepoSpec
	// BookSourceDir is the book's src/ directory, absolute.
	BookSourceDir string
	// AlwaysLink is the set of extensions (with leading '.') that must
	// be linked to the host even when the target sits inside the book
	// source directory.
	AlwaysLink map[string]bool
	Exists Exists
}

// Result is the outcome of resolving a single path link.
type Result struct {
	// Rewrite is nil when the link is left alone (either because it
	// sits inside the book source and isn't always-linked, or because
	// the resolver chose not to touch it for any other reason).
	Rewrite *mdstream.Rewrite
	// Warning is non-nil when resolution failed and a diagnostic should
	// be recorded; Rewrite is nil in that case.
	Warning error
}

// Resolve implements the algorithm for one link. chapterDir is the
// absolute directory the chapter's source file lives in. target is the
// link's destination with any fragment already split off by the caller;
// fragment is reattached to the rewritten URL verbatim. role decides tree
// vs raw form; absolute decides whether target is repo-root
// relative (true) or chapter relative (false).
func Resolve(opts Options, chapterDir, target, fragment string, role mdstream.Role, absolute bool) Result {
	decoded := percentDecodePath(target)

	var abs string
	if absolute {
		abs = path.Join(opts.Repo.Root, decoded)
	} else {
		abs = path.Join(chapterDir, decoded)
	}
	abs = path.Clean(abs)

	if !withinRoot(opts.Repo.Root, abs) {
		return Result{Warning: fmt.Errorf("path %q resolves outside the repository root", target)}
	}

	if withinRoot(opts.BookSourceDir, abs) && !opts.AlwaysLink[path.Ext(abs)] {
		if !absolute {
			// Already a chapter-relative path mdbook's own link handling
			// understands; nothing to do.
			return Result{}
		}
		// An absolute repo path pointing inside the book source isn't
		// something mdbook's own link preprocessing understands — convert
		// it to a relative path so that keeps working.
		rel, err := filepathRel(chapterDir, abs)
		if err != nil {
			return Result{Warning: fmt.Errorf("path %q: %w", target, err)}
		}
		if fragment != "" {
			rel += "#" + fragment
		}
		return Result{Rewrite: &mdstream.Rewrite{Destination: rel, KeepTitle: true}}
	}

	if opts.Exists == nil || !opts.Exists(abs) {
		return Result{Warning: fmt.Errorf("no such file: %s", target)}
	}

	repoRelative := strings.TrimPrefix(abs, opts.Repo.Root)
	repoRelative = strings.TrimPrefix(repoRelative, "/")
	repoRelative = encodeSegments(repoRelative)

	form := repospec.FormTree
	if role == mdstream.RoleImage {
		form = repospec.FormRaw
	}

	dest := opts.Repo.URL(form, repoRelative)
	if fragment != "" {
		dest += "#" + fragment
	}
	return Result{Rewrite: &mdstream.Rewrite{Destination: dest, KeepTitle: true}}
}

// ResolveRepoRelative re-pins a URL already known to name a path inside the
// repository (classified as RepoCanonicalURL, with "HEAD" as a literal
// placeholder ref) to the RepoSpec's actually-resolved ref, the same way a
// plain path link is pinned.
func ResolveRepoRelative(opts Options, repoRelative, fragment string, role mdstream.Role) Result {
	abs := path.Clean(path.Join(opts.Repo.Root, percentDecodePath(repoRelative)))
	if !withinRoot(opts.Repo.Root, abs) {
		return Result{Warning: fmt.Errorf("path %q resolves outside the repository root", repoRelative)}
	}
	if opts.Exists == nil || !opts.Exists(abs) {
		return Result{Warning: fmt.Errorf("no such file: %s", repoRelative)}
	}
	form := repospec.FormTree
	if role == mdstream.RoleImage {
		form = repospec.FormRaw
	}
	dest := opts.Repo.URL(form, encodeSegments(strings.TrimPrefix(repoRelative, "/")))
	if fragment != "" {
		dest += "#" + fragment
	}
	return Result{Rewrite: &mdstream.Rewrite{Destination: dest, KeepTitle: true}}
}

func withinRoot(root, abs string) bool {
	if abs == root {
		return true
	}
	return strings.HasPrefix(abs, strings.TrimSuffix(root, "/")+"/")
}

func percentDecodePath(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func filepathRel(chapterDir, abs string) (string, error) {
	rel, err := filepath.Rel(chapterDir, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel, nil
}

func encodeSegments(repoRelative string) string {
	segs := strings.Split(repoRelative, "/")
	for i, seg := range segs {
		segs[i] = (&url.URL{Path: seg}).EscapedPath()
	}
	return strings.Join(segs, "/")
}
