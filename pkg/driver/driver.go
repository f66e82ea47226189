// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package driver implements the single orchestrator: parse every
// chapter, classify every link, resolve paths/book-URLs synchronously,
// aggregate item-name links and drive the LSP client (with a cache
// shortcut) once, fold results back into the rewrite table, and
// re-serialize. It owns one run end to end the way docforge's
// pkg/reactor.Reactor owns the run of its own pipeline; the process exit
// status is set by the caller from the diagnostics it collects.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-mdbook/linkkit/pkg/book"
	"github.com/go-mdbook/linkkit/pkg/bookurl"
	"github.com/go-mdbook/linkkit/pkg/cache"
	"github.com/go-mdbook/linkkit/pkg/classify"
	"github.com/go-mdbook/linkkit/pkg/diagnostics"
	"github.com/go-mdbook/linkkit/pkg/itemcollect"
	"github.com/go-mdbook/linkkit/pkg/lspclient"
	"github.com/go-mdbook/linkkit/pkg/mdstream"
	"github.com/go-mdbook/linkkit/pkg/pathresolve"
	"github.com/go-mdbook/linkkit/pkg/repospec"
	"k8s.io/klog/v2"
)

// Mode selects which of the two preprocessors is running; both share this
// driver but each only acts on the link categories it owns.
type Mode int

const (
	ModePermalink Mode = iota
	ModeAPILink
)

// Config is everything the driver needs for one invocation.
type Config struct {
	Mode Mode

	Repo *repospec.RepoSpec
	BookSourceDir string
	AlwaysLink map[string]bool
	BookURLPrefix string

	// API-link mode only:
	LSP lspclient.Config
	CacheDir string
	EntrySource string
	EnvFiles []string
	FailOnWarnings bool
}

// Driver runs one preprocessor invocation end to end.
type Driver struct {
	cfg Config
	diags *diagnostics.Sink
}

// New creates a Driver.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg, diags: diagnostics.NewSink()}
}

// Diagnostics returns the accumulated diagnostics after Run.
func (d *Driver) Diagnostics() *diagnostics.Sink { return d.diags }

// chapterDir resolves a chapter's absolute source directory, preferring
// SourcePath (as mdbook reports it) and falling back to Path.
func chapterDir(bookSourceDir string, ch *book.Chapter) string {
	p := ch.Path
	if ch.SourcePath != nil {
		p = ch.SourcePath
	}
	if p == nil {
		return bookSourceDir
	}
	return filepath.Join(bookSourceDir, filepath.Dir(*p))
}

// Run executes six steps over b, mutating each Chapter's Content in
// place. ctx carries the single cancellation signal from the host; on
// cancellation no cache write occurs and Run returns ctx.Err().
func (d *Driver) Run(ctx context.Context, b *book.Book) error {
	type chapterState struct {
		chapter *book.Chapter
		doc *mdstream.Document
	}
	var chapters []*chapterState

	b.Walk(func(ch *book.Chapter) {
		doc, err := mdstream.Parse(ch.ID(), []byte(ch.Content))
		if err != nil {
			d.diags.Error(ch.ID(), diagnostics.Span{}, err, "parsing chapter")
			return
		}
		if fm, err := mdstream.Frontmatter([]byte(ch.Content)); err != nil {
			d.diags.Warn(ch.ID(), diagnostics.Span{}, err, "parsing frontmatter")
		} else {
			ch.Frontmatter = fm
		}
		chapters = append(chapters, &chapterState{chapter: ch, doc: doc})
	})

	rewrites := mdstream.NewRewriteSet()
	items := itemcollect.NewCollector()

	for _, cs := range chapters {
		dir := chapterDir(d.cfg.BookSourceDir, cs.chapter)
		for _, l := range cs.doc.Links {
			target, fragment := splitFragment(l.Destination)
			category := classify.Classify(l.Destination, classify.Options{
				RepoHost: d.cfg.Repo.Host,
				BookURLPrefix: d.cfg.BookURLPrefix,
				Exists: existsRelativeTo(dir),
			})

			switch {
			case d.cfg.Mode == ModeAPILink && category == classify.ItemName:
				items.Add(target, l.ID())

			case d.cfg.Mode == ModePermalink && category == classify.RelativePath:
				d.resolvePath(rewrites, dir, l, target, fragment, false)

			case d.cfg.Mode == ModePermalink && category == classify.AbsoluteRepoPath:
				d.resolvePath(rewrites, dir, l, target, fragment, true)

			case d.cfg.Mode == ModePermalink && category == classify.RepoCanonicalURL:
				d.resolveRepoCanonical(rewrites, l, target)

			case d.cfg.Mode == ModePermalink && category == classify.BookURL:
				d.resolveBookURL(rewrites, dir, l, target, fragment)
			}
		}
	}

	if d.cfg.Mode == ModeAPILink && len(items.Items()) > 0 {
		if err := d.resolveItems(ctx, items, rewrites); err != nil {
			return err
		}
	}

	for _, cs := range chapters {
		out := mdstream.Render(cs.doc, rewrites)
		cs.chapter.Content = string(out)
	}

	return ctx.Err()
}

func splitFragment(dest string) (target, fragment string) {
	target, fragment, found := strings.Cut(dest, "#")
	if !found {
		return dest, ""
	}
	return target, fragment
}

func existsRelativeTo(dir string) classify.FileExists {
	return func(target string) bool {
		t, _ := splitFragment(target)
		_, err := os.Stat(filepath.Join(dir, classify.PercentDecode(t)))
		return err == nil
	}
}

func fsExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// localFilePath reports whether an "open docs" result's URL names a file
// within the project rather than an external doc page — some items
// resolve to a file:// URI pointing at their own defining source file
// rather than a hosted docs page — and if so returns that file's absolute
// path, per spec.md §4.H's "every source file that the previous G resolved
// to a local path within the project".
func localFilePath(workspaceRoot, rawURL string) (string, bool) {
	const fileScheme = "file://"
	if workspaceRoot == "" || !strings.HasPrefix(rawURL, fileScheme) {
		return "", false
	}
	p := filepath.Clean(strings.TrimPrefix(rawURL, fileScheme))
	rel, err := filepath.Rel(workspaceRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

func (d *Driver) resolvePath(rewrites *mdstream.RewriteSet, dir string, l *mdstream.Link, target, fragment string, absolute bool) {
	res := pathresolve.Resolve(pathresolve.Options{
		Repo: d.cfg.Repo,
		BookSourceDir: d.cfg.BookSourceDir,
		AlwaysLink: d.cfg.AlwaysLink,
		Exists: fsExists,
	}, dir, target, fragment, l.Role, absolute)
	d.applyPathResult(rewrites, l, res)
}

func (d *Driver) resolveRepoCanonical(rewrites *mdstream.RewriteSet, l *mdstream.Link, target string) {
	repoRelative, ok := classify.RepoCanonicalPath(target, d.cfg.Repo.Host)
	if !ok {
		return
	}
	repoRelative, fragment := splitFragment(repoRelative)
	res := pathresolve.ResolveRepoRelative(pathresolve.Options{
		Repo: d.cfg.Repo,
		Exists: fsExists,
	}, repoRelative, fragment, l.Role)
	d.applyPathResult(rewrites, l, res)
}

func (d *Driver) applyPathResult(rewrites *mdstream.RewriteSet, l *mdstream.Link, res pathresolve.Result) {
	if res.Warning != nil {
		d.diags.Warn(l.ChapterID, diagnostics.Span{Start: l.Span.Start, End: l.Span.End}, res.Warning, "%s", res.Warning.Error())
		return
	}
	if res.Rewrite != nil {
		rewrites.Add(l.ID(), *res.Rewrite)
	}
}

func (d *Driver) resolveBookURL(rewrites *mdstream.RewriteSet, dir string, l *mdstream.Link, target, fragment string) {
	res := bookurl.Check(bookurl.Options{
		BookURLPrefix: d.cfg.BookURLPrefix,
		SrcDir: d.cfg.BookSourceDir,
		Exists: fsExists,
	}, dir, target)
	if res.Warning != nil {
		d.diags.Warn(l.ChapterID, diagnostics.Span{Start: l.Span.Start, End: l.Span.End}, res.Warning, "%s", res.Warning.Error())
		return
	}
	dest := res.RelativePath
	if fragment != "" {
		dest += "#" + fragment
	}
	rewrites.Add(l.ID(), mdstream.Rewrite{Destination: dest, KeepTitle: true})
}

func (d *Driver) resolveItems(ctx context.Context, items *itemcollect.Collector, rewrites *mdstream.RewriteSet) error {
	all := items.Items()
	document, positions := itemcollect.BuildProbe(all)
	prefix := d.cfg.EntrySource + "\n"
	document = prefix + document
	for k, p := range positions {
		positions[k] = p + len(prefix)
	}

	keys := make([]string, 0, len(all))
	for _, it := range all {
		keys = append(keys, it.Normalized)
	}

	rec := cache.Load(d.cfg.CacheDir)
	// The checksum the previous run saved covers its own resolved-local-path
	// files (rec.EnvFiles) in addition to the always-present manifest/entry
	// set; reusing exactly that list, rather than rediscovering it, is what
	// catches a change to a file the previous G resolved into.
	checksum, checksumErr := cache.EnvChecksum(append(append([]string{}, d.cfg.EnvFiles...), rec.EnvFiles...))

	var resolved map[string]string
	if checksumErr == nil {
		if hit, ok := rec.Hit(keys, checksum); ok {
			klog.V(2).Infof("driver: cache hit for %d items", len(hit))
			resolved = hit
		}
	} else {
		klog.Warningf("driver: computing env checksum: %v", checksumErr)
	}

	if resolved == nil {
		lspCfg := d.cfg.LSP
		lspCfg.Document = document
		outcome, err := lspclient.Run(ctx, lspCfg, positions)
		if err != nil {
			d.diags.Error("", diagnostics.Span{}, err, "language server environment error")
			return err
		}
		resolved = map[string]string{}
		unresolvedAny := false
		localFiles := map[string]bool{}
		for _, it := range all {
			r := outcome.Results[it.Normalized]
			if r.Resolved {
				resolved[it.Normalized] = r.URL
				if p, ok := localFilePath(d.cfg.LSP.WorkspaceRoot, r.URL); ok {
					localFiles[p] = true
				}
			} else {
				unresolvedAny = true
			}
		}
		if unresolvedAny && outcome.ServerVersion != "" {
			klog.Warningf("driver: some items did not resolve against server %s", outcome.ServerVersion)
		}
		if ctx.Err() == nil {
			envFiles := make([]string, 0, len(localFiles))
			for p := range localFiles {
				envFiles = append(envFiles, p)
			}
			sort.Strings(envFiles)
			finalChecksum, err := cache.EnvChecksum(append(append([]string{}, d.cfg.EnvFiles...), envFiles...))
			if err != nil {
				klog.Warningf("driver: computing env checksum for cache write: %v", err)
			} else {
				newRec := &cache.Record{Items: resolved, EnvChecksum: finalChecksum, EnvFiles: envFiles}
				if err := cache.Save(d.cfg.CacheDir, newRec); err != nil {
					klog.Warningf("driver: writing cache: %v", err)
				}
			}
		}
	}

	for _, it := range all {
		url, ok := resolved[it.Normalized]
		if !ok {
			for _, id := range it.Links {
				d.diags.Warn(id.ChapterID, diagnostics.Span{Start: id.Span.Start, End: id.Span.End}, nil,
					"item %q did not resolve", it.Written)
			}
			continue
		}
		for _, id := range it.Links {
			rewrites.Add(id, mdstream.Rewrite{Destination: url, KeepTitle: true})
		}
	}
	return nil
}
