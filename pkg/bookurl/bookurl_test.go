// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package bookurl_test

import (
	"path/filepath"

	"github.com/go-mdbook/linkkit/pkg/bookurl"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Check", func() {
	srcDir := filepath.FromSlash("/book/src")

	existing := func(paths ...string) bookurl.Exists {
		set := map[string]bool{}
		for _, p := range paths {
			set[filepath.Clean(p)] = true
		}
		return func(abs string) bool { return set[filepath.Clean(abs)] }
	}

	It("rewrites a page URL to a relative path when the matching .md file exists", func() {
		opts := bookurl.Options{
			BookURLPrefix: "https://example.github.io/book/",
			SrcDir: srcDir,
			Exists: existing(filepath.Join(srcDir, "guide/intro.md")),
		}
		res := bookurl.Check(opts, filepath.Join(srcDir, "guide"), "https://example.github.io/book/guide/intro.html")
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.RelativePath).To(Equal("./intro.md"))
	})

	It("falls back to an index.md for a directory-shaped URL", func() {
		opts := bookurl.Options{
			BookURLPrefix: "https://example.github.io/book/",
			SrcDir: srcDir,
			Exists: existing(filepath.Join(srcDir, "guide/index.md")),
		}
		res := bookurl.Check(opts, srcDir, "https://example.github.io/book/guide/")
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.RelativePath).To(Equal("./guide/index.md"))
	})

	It("falls back to a README.md when no index.md exists", func() {
		opts := bookurl.Options{
			BookURLPrefix: "https://example.github.io/book/",
			SrcDir: srcDir,
			Exists: existing(filepath.Join(srcDir, "guide/README.md")),
		}
		res := bookurl.Check(opts, srcDir, "https://example.github.io/book/guide/")
		Expect(res.Warning).NotTo(HaveOccurred())
		Expect(res.RelativePath).To(Equal("./guide/README.md"))
	})

	It("warns when no candidate file resolves", func() {
		opts := bookurl.Options{
			BookURLPrefix: "https://example.github.io/book/",
			SrcDir: srcDir,
			Exists: existing(),
		}
		res := bookurl.Check(opts, srcDir, "https://example.github.io/book/missing.html")
		Expect(res.Warning).To(HaveOccurred())
		Expect(res.RelativePath).To(BeEmpty())
	})
})
