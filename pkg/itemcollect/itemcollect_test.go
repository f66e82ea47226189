// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package itemcollect_test

import (
	"strings"

	"github.com/go-mdbook/linkkit/pkg/itemcollect"
	"github.com/go-mdbook/linkkit/pkg/mdstream"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Collector", func() {
	It("dedupes links sharing the same normalized written form", func() {
		c := itemcollect.NewCollector()
		c.Add("crate::module::Item", mdstream.ID{ChapterID: "a.md", Span: mdstream.Span{Start: 0, End: 1}})
		c.Add("crate::module::Item", mdstream.ID{ChapterID: "b.md", Span: mdstream.Span{Start: 2, End: 3}})

		items := c.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Links).To(HaveLen(2))
	})

	It("strips a recognized disambiguator prefix", func() {
		c := itemcollect.NewCollector()
		c.Add("mod@crate::module", mdstream.ID{ChapterID: "a.md"})
		Expect(c.Items()[0].Written).To(Equal("crate::module"))
	})

	It("leaves an '@' that isn't a recognized disambiguator prefix alone", func() {
		c := itemcollect.NewCollector()
		c.Add("not_ident!@crate::module", mdstream.ID{ChapterID: "a.md"})
		Expect(c.Items()[0].Written).To(Equal("not_ident!@crate::module"))
	})

	It("preserves first-occurrence order across distinct items", func() {
		c := itemcollect.NewCollector()
		c.Add("crate::b", mdstream.ID{ChapterID: "a.md"})
		c.Add("crate::a", mdstream.ID{ChapterID: "a.md"})
		items := c.Items()
		Expect(items).To(HaveLen(2))
		Expect(items[0].Written).To(Equal("crate::b"))
		Expect(items[1].Written).To(Equal("crate::a"))
	})

	It("collapses whitespace inside generic-argument spans when normalizing", func() {
		c := itemcollect.NewCollector()
		c.Add("crate::Map<K,  V>", mdstream.ID{ChapterID: "a.md"})
		c.Add("crate::Map<K, V>", mdstream.ID{ChapterID: "b.md"})
		items := c.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Links).To(HaveLen(2))
	})
})

var _ = Describe("BuildProbe", func() {
	It("emits one statement per item and a position at its final segment", func() {
		c := itemcollect.NewCollector()
		c.Add("crate::module::Item", mdstream.ID{ChapterID: "a.md"})
		items := c.Items()

		source, positions := itemcollect.BuildProbe(items)
		Expect(source).To(MatchRegexp(`fn __linkkit_probe_[0-9a-f]+\(\)`))
		Expect(source).To(ContainSubstring("crate::module::Item;"))

		pos, ok := positions[items[0].Normalized]
		Expect(ok).To(BeTrue())
		Expect(source[pos:]).To(HavePrefix("Item"))
	})

	It("positions a generic-argument item at its trailing method segment", func() {
		c := itemcollect.NewCollector()
		c.Add("crate::Vec<T>::new", mdstream.ID{ChapterID: "a.md"})
		items := c.Items()

		source, positions := itemcollect.BuildProbe(items)
		pos := positions[items[0].Normalized]
		Expect(source[pos:]).To(HavePrefix("new"))
	})

	It("produces a compilable-looking function wrapper", func() {
		source, _ := itemcollect.BuildProbe(nil)
		Expect(strings.Count(source, "{")).To(Equal(strings.Count(source, "}")))
	})

	It("appends an empty delimiter group after a macro item's trailing '!'", func() {
		c := itemcollect.NewCollector()
		c.Add("tokio::main!", mdstream.ID{ChapterID: "a.md"})
		items := c.Items()

		source, positions := itemcollect.BuildProbe(items)
		Expect(source).To(ContainSubstring("tokio::main!();"))
		Expect(items[0].Written).To(Equal("tokio::main!"))

		pos := positions[items[0].Normalized]
		Expect(source[pos:]).To(HavePrefix("main!"))
	})

	It("generates a distinct scope name on every call", func() {
		source1, _ := itemcollect.BuildProbe(nil)
		source2, _ := itemcollect.BuildProbe(nil)
		Expect(source1).NotTo(Equal(source2))
	})
})
