// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package pathresolve_test

import (
	"path/filepath"

	"github.com/go-mdbook/linkkit/pkg/mdstream"
	"github.com/go-mdbook/linkkit/pkg/pathresolve"
	"github.com/go-mdbook/linkkit/pkg/repospec"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	root := filepath.FromSlash("/repo")
	bookSrc := filepath.Join(root, "docs")

	repo := &repospec.RepoSpec{
		Template: "https://github.com/owner/repo/tree/{ref}/{path}",
		RawTemplate: "https://github.com/owner/repo/raw/{ref}/{path}",
		Host: "github.com",
		Ref: "v1.0.0",
		Root: root,
	}

	exists := func(paths ...string) pathresolve.Exists {
		set := map[string]bool{}
		for _, p := range paths {
			set[filepath.Clean(p)] = true
		}
		return func(abs string) bool { return set[filepath.Clean(abs)] }
	}

	It("leaves a chapter-relative path inside the book source untouched", func() {
		opts := pathresolve.Options{Repo: repo, BookSourceDir: bookSrc}
		res := pathresolve.Resolve(opts, bookSrc, "sibling.md", "", mdstream.RoleLink, false)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite).To(BeNil())
	})

	It("converts a repo-absolute path pointing inside the book source to a relative one", func() {
		opts := pathresolve.Options{Repo: repo, BookSourceDir: bookSrc}
		res := pathresolve.Resolve(opts, bookSrc, "/docs/sibling.md", "", mdstream.RoleLink, true)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite).NotTo(BeNil())
		Expect(res.Rewrite.Destination).To(Equal("./sibling.md"))
	})

	It("resolves a path outside the book source to a tree-form hosted URL for a link role", func() {
		opts := pathresolve.Options{
			Repo: repo,
			BookSourceDir: bookSrc,
			Exists: exists(filepath.Join(root, "src/lib.rs")),
		}
		res := pathresolve.Resolve(opts, bookSrc, "../src/lib.rs", "", mdstream.RoleLink, false)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite.Destination).To(Equal("https://github.com/owner/repo/tree/v1.0.0/src/lib.rs"))
	})

	It("resolves the same path to a raw-form URL for an image role", func() {
		opts := pathresolve.Options{
			Repo: repo,
			BookSourceDir: bookSrc,
			Exists: exists(filepath.Join(root, "assets/logo.png")),
		}
		res := pathresolve.Resolve(opts, bookSrc, "../assets/logo.png", "", mdstream.RoleImage, false)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite.Destination).To(Equal("https://github.com/owner/repo/raw/v1.0.0/assets/logo.png"))
	})

	It("warns when the resolved target does not exist", func() {
		opts := pathresolve.Options{Repo: repo, BookSourceDir: bookSrc, Exists: exists()}
		res := pathresolve.Resolve(opts, bookSrc, "../src/missing.rs", "", mdstream.RoleLink, false)
		Expect(res.Warning).To(HaveOccurred())
		Expect(res.Rewrite).To(BeNil())
	})

	It("warns when the target escapes the repository root", func() {
		opts := pathresolve.Options{Repo: repo, BookSourceDir: bookSrc}
		res := pathresolve.Resolve(opts, root, "../outside/file.md", "", mdstream.RoleLink, false)
		Expect(res.Warning).To(HaveOccurred())
	})

	It("always links a file whose extension is in AlwaysLink even inside the book source", func() {
		opts := pathresolve.Options{
			Repo: repo,
			BookSourceDir: bookSrc,
			AlwaysLink: map[string]bool{".png": true},
			Exists: exists(filepath.Join(bookSrc, "logo.png")),
		}
		res := pathresolve.Resolve(opts, bookSrc, "logo.png", "", mdstream.RoleImage, false)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite.Destination).To(Equal("https://github.com/owner/repo/raw/v1.0.0/docs/logo.png"))
	})

	It("reattaches a fragment to the rewritten destination", func() {
		opts := pathresolve.Options{
			Repo: repo,
			BookSourceDir: bookSrc,
			Exists: exists(filepath.Join(root, "src/lib.rs")),
		}
		res := pathresolve.Resolve(opts, bookSrc, "../src/lib.rs", "examples", mdstream.RoleLink, false)
		Expect(res.Rewrite.Destination).To(Equal("https://github.com/owner/repo/tree/v1.0.0/src/lib.rs#examples"))
	})
})

var _ = Describe("ResolveRepoRelative", func() {
	root := filepath.FromSlash("/repo")
	repo := &repospec.RepoSpec{
		Template: "https://github.com/owner/repo/tree/{ref}/{path}",
		RawTemplate: "https://github.com/owner/repo/raw/{ref}/{path}",
		Host: "github.com",
		Ref: "v1.0.0",
		Root: root,
	}

	It("re-pins a repo-relative path to the resolved ref", func() {
		opts := pathresolve.Options{
			Repo: repo,
			Exists: func(abs string) bool { return abs == filepath.Join(root, "docs/guide.md") },
		}
		res := pathresolve.ResolveRepoRelative(opts, "docs/guide.md", "", mdstream.RoleLink)
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.Rewrite.Destination).To(Equal("https://github.com/owner/repo/tree/v1.0.0/docs/guide.md"))
	})
})
