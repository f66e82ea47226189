// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package bookurl implements the book-URL checker: validating that a
// URL under the configured book prefix maps to an extant page in the book's
// own source tree, and rewriting it to a relative path so the host
// generator's own link handling keeps working.
package bookurl

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Exists reports whether absPath names a file on disk.
type Exists func(absPath string) bool

// Options carries the configuration the checker needs.
type Options struct {
	// BookURLPrefix is the configured book-url option.
	BookURLPrefix string
	// SrcDir is the book's src/ directory, absolute.
	SrcDir string
	Exists Exists
}

// Result is the outcome of checking one book URL.
type Result struct {
	// RelativePath, when non-empty, is the path (relative to the
	// chapter) the link should be rewritten to point at.
	RelativePath string
	Warning error
}

// candidatesFor returns the candidate source files to try for pagePath, in
// priority order: an exact ".md" file, then an index/README page beneath it.
func candidatesFor(pagePath string) []string {
	if strings.HasSuffix(pagePath, "/") {
		trimmed := strings.TrimSuffix(pagePath, "/")
		return []string{
			path.Join(trimmed, "index.md"),
			path.Join(trimmed, "README.md"),
		}
	}
	return []string{
		pagePath + ".md",
		path.Join(pagePath, "index.md"),
		path.Join(pagePath, "README.md"),
		pagePath,
	}
}

// Check validates target (a URL already classified as a book URL) and, on a
// match, computes the chapter-relative path to substitute. chapterDir is the
// absolute directory of the chapter containing the link.
func Check(opts Options, chapterDir, target string) Result {
	pagePath := strings.TrimPrefix(target, opts.BookURLPrefix)
	pagePath = strings.TrimPrefix(pagePath, "/")
	pagePath = strings.TrimSuffix(pagePath, ".html")

	for _, candidate := range candidatesFor(pagePath) {
		abs := filepath.Join(opts.SrcDir, candidate)
		if opts.Exists != nil && opts.Exists(abs) {
			rel, err := filepath.Rel(chapterDir, abs)
			if err != nil {
				return Result{Warning: fmt.Errorf("book url %q: %w", target, err)}
			}
			rel = filepath.ToSlash(rel)
			if !strings.HasPrefix(rel, ".") {
				rel = "./" + rel
			}
			return Result{RelativePath: rel}
		}
	}
	return Result{Warning: fmt.Errorf("book url %q does not resolve to any page under the book source", target)}
}
