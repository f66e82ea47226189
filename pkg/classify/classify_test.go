// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package classify_test

import (
	"github.com/go-mdbook/linkkit/pkg/classify"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	It("treats an empty target as external", func() {
		Expect(classify.Classify("", classify.Options{})).To(Equal(classify.External))
	})

	It("treats a fragment-only reference as external", func() {
		Expect(classify.Classify("#section", classify.Options{})).To(Equal(classify.External))
	})

	It("treats a protocol-relative URL as external", func() {
		Expect(classify.Classify("//example.com/x", classify.Options{})).To(Equal(classify.External))
	})

	It("recognizes a plain item path", func() {
		Expect(classify.Classify("crate::module::Item", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("recognizes an item path with a trailing macro bang", func() {
		Expect(classify.Classify("crate::vec!", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("recognizes an item path with a trailing function call marker", func() {
		Expect(classify.Classify("crate::module::func()", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("recognizes a disambiguator-prefixed item path", func() {
		Expect(classify.Classify("mod@crate::module", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("recognizes a receiver-qualified item path", func() {
		Expect(classify.Classify("<Foo as Bar>::method", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("recognizes generic arguments within a segment", func() {
		Expect(classify.Classify("crate::Vec<T>::new", classify.Options{})).To(Equal(classify.ItemName))
	})

	It("defers to an existing file over the item-name grammar", func() {
		opts := classify.Options{Exists: func(string) bool { return true }}
		Expect(classify.Classify("crate::module", opts)).To(Equal(classify.RelativePath))
	})

	It("classifies a dot-relative path", func() {
		Expect(classify.Classify("./sibling.md", classify.Options{})).To(Equal(classify.RelativePath))
	})

	It("classifies a parent-relative path", func() {
		Expect(classify.Classify("../up/sibling.md", classify.Options{})).To(Equal(classify.RelativePath))
	})

	It("classifies a bare filename as a relative path", func() {
		Expect(classify.Classify("sibling.md", classify.Options{})).To(Equal(classify.RelativePath))
	})

	It("classifies a leading-slash path as repo-root relative", func() {
		Expect(classify.Classify("/docs/guide.md", classify.Options{})).To(Equal(classify.AbsoluteRepoPath))
	})

	It("classifies a URL matching the book prefix as a book URL", func() {
		opts := classify.Options{BookURLPrefix: "https://example.github.io/book/"}
		Expect(classify.Classify("https://example.github.io/book/guide/intro.html", opts)).To(Equal(classify.BookURL))
	})

	It("classifies a URL naming the repo host with literal HEAD as repo-canonical", func() {
		opts := classify.Options{RepoHost: "github.com"}
		Expect(classify.Classify("https://github.com/owner/repo/blob/HEAD/src/lib.rs", opts)).To(Equal(classify.RepoCanonicalURL))
	})

	It("leaves a repo URL pinned to a real ref as external", func() {
		opts := classify.Options{RepoHost: "github.com"}
		Expect(classify.Classify("https://github.com/owner/repo/blob/v1.0.0/src/lib.rs", opts)).To(Equal(classify.External))
	})

	It("treats any query-string target as external", func() {
		Expect(classify.Classify("sibling.md?x=1", classify.Options{})).To(Equal(classify.External))
	})

	It("treats an unrecognized external URL as external", func() {
		Expect(classify.Classify("https://crates.io/crates/serde", classify.Options{})).To(Equal(classify.External))
	})

	It("rejects a segment containing whitespace as an item name", func() {
		Expect(classify.Classify("not a path", classify.Options{})).To(Equal(classify.RelativePath))
	})
})

var _ = Describe("RepoCanonicalPath", func() {
	It("extracts the repo-relative path and drops the matched prefix", func() {
		rel, ok := classify.RepoCanonicalPath("https://github.com/owner/repo/tree/HEAD/docs/guide.md", "github.com")
		Expect(ok).To(BeTrue())
		Expect(rel).To(Equal("docs/guide.md"))
	})

	It("is case-insensitive on the host", func() {
		_, ok := classify.RepoCanonicalPath("https://GitHub.com/owner/repo/tree/HEAD/docs/guide.md", "github.com")
		Expect(ok).To(BeTrue())
	})

	It("rejects a non-HEAD ref", func() {
		_, ok := classify.RepoCanonicalPath("https://github.com/owner/repo/tree/main/docs/guide.md", "github.com")
		Expect(ok).To(BeFalse())
	})

	It("rejects an empty repo host", func() {
		_, ok := classify.RepoCanonicalPath("https://github.com/owner/repo/tree/HEAD/docs/guide.md", "")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("PercentDecode", func() {
	It("decodes percent-escaped path segments", func() {
		Expect(classify.PercentDecode("a%20b/c%2Fd")).To(Equal("a b/c/d"))
	})

	It("returns the original string when decoding fails", func() {
		Expect(classify.PercentDecode("100%")).To(Equal("100%"))
	})
})
