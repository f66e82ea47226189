// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package mdstream_test

import (
	"github.com/go-mdbook/linkkit/pkg/mdstream"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {
	It("finds inline links with their destination and title", func() {
		src := []byte(`[link](/uri "title")`)
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(1))
		l := doc.Links[0]
		Expect(l.Kind).To(Equal(mdstream.KindInline))
		Expect(l.Role).To(Equal(mdstream.RoleLink))
		Expect(l.Destination).To(Equal("/uri"))
		Expect(l.Title).To(Equal("title"))
		Expect(string(src[l.Span.Start:l.Span.End])).To(Equal(`[link](/uri "title")`))
	})

	It("resolves reference links against their definition", func() {
		src := []byte("[foo][bar]\n\n[bar]: /url \"title\"\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(1))
		l := doc.Links[0]
		Expect(l.Kind).To(Equal(mdstream.KindReference))
		Expect(l.Destination).To(Equal("/url"))
		Expect(l.Title).To(Equal("title"))
	})

	It("degrades a shortcut link with no definition to target==label", func() {
		src := []byte("[`Option`]\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(1))
		l := doc.Links[0]
		Expect(l.Kind).To(Equal(mdstream.KindShortcut))
		Expect(l.Destination).To(Equal("`option`"))
	})

	It("finds image use-sites and tags their role", func() {
		src := []byte(`![selfie](Macaca_nigra_self-portrait_large.jpg)`)
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(1))
		Expect(doc.Links[0].Role).To(Equal(mdstream.RoleImage))
		Expect(doc.Links[0].Destination).To(Equal("Macaca_nigra_self-portrait_large.jpg"))
	})

	It("nests an image inside a link and reports both spans", func() {
		src := []byte(`[![alt](img.png)](target.md)`)
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(2))
		var outer, inner *mdstream.Link
		for _, l := range doc.Links {
			if l.Role == mdstream.RoleImage {
				inner = l
			} else {
				outer = l
			}
		}
		Expect(outer).NotTo(BeNil())
		Expect(inner).NotTo(BeNil())
		Expect(outer.Span.Contains(inner.Span)).To(BeTrue())
	})

	It("recognizes autolinks and classifies email vs URL", func() {
		src := []byte("<https://example.org/book/tests/links>\n<foo@bar.example.com>\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(HaveLen(2))
		Expect(doc.Links[0].Kind).To(Equal(mdstream.KindAutolink))
		Expect(doc.Links[0].Destination).To(Equal("https://example.org/book/tests/links"))
		Expect(doc.Links[1].Destination).To(Equal("mailto:foo@bar.example.com"))
	})

	It("does not treat an inline code span's brackets as a link", func() {
		src := []byte("use `[not a link](x)` here\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(BeEmpty())
	})

	It("does not treat a fenced code block's contents as a link", func() {
		src := []byte("```\n[not a link](x)\n```\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Links).To(BeEmpty())
	})
})

var _ = Describe("Render", func() {
	It("preserves bytes outside a rewritten link's span", func() {
		src := []byte("before [link](/uri \"title\") after\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		rewrites := mdstream.NewRewriteSet()
		rewrites.Add(doc.Links[0].ID(), mdstream.Rewrite{Destination: "https://example.com/x"})
		out := mdstream.Render(doc, rewrites)
		Expect(string(out)).To(Equal("before [link](https://example.com/x) after\n"))
	})

	It("leaves a chapter with no rewrites byte-identical", func() {
		src := []byte("# Title\n\n[a](./b.md) and [c][d]\n\n[d]: ./e.md\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		out := mdstream.Render(doc, mdstream.NewRewriteSet())
		Expect(out).To(Equal(src))
	})

	It("applies multiple rewrites in a single chapter without offset drift", func() {
		src := []byte("[a](./a.md) and [b](./b.md)\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		rewrites := mdstream.NewRewriteSet()
		rewrites.Add(doc.Links[0].ID(), mdstream.Rewrite{Destination: "https://host/tree/HEAD/a.md"})
		rewrites.Add(doc.Links[1].ID(), mdstream.Rewrite{Destination: "https://host/tree/HEAD/b.md"})
		out := mdstream.Render(doc, rewrites)
		Expect(string(out)).To(Equal("[a](https://host/tree/HEAD/a.md) and [b](https://host/tree/HEAD/b.md)\n"))
	})

	It("converts a rewritten relative autolink into an inline link", func() {
		src := []byte("<https://example.org/book/tests/links>\n")
		doc, err := mdstream.Parse("c", src)
		Expect(err).NotTo(HaveOccurred())
		rewrites := mdstream.NewRewriteSet()
		rewrites.Add(doc.Links[0].ID(), mdstream.Rewrite{Destination: "./links.md"})
		out := mdstream.Render(doc, rewrites)
		Expect(string(out)).To(Equal("[https://example.org/book/tests/links](./links.md)\n"))
	})
})
