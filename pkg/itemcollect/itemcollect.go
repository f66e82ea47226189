// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package itemcollect implements the item collector: it walks every
// link classified as an item name, dedupes them by normalized written form,
// and assembles the Probe document the LSP client opens against the
// language server.
package itemcollect

import (
	"fmt"
	"strings"

	"github.com/go-mdbook/linkkit/pkg/mdstream"
	"github.com/google/uuid"
)

// Item is a deduplicated item-name reference.
type Item struct {
	// Written is the link text with any disambiguator prefix (mod@,
	// macro@,...) stripped, otherwise verbatim.
	Written string
	// Normalized is the dedup key: Written with generic-argument
	// whitespace collapsed. Function "()" and macro "!" markers are
	// preserved exactly as written because they select a different
	// namespace for the same path.
	Normalized string
	// Links lists every chapter link that shares this written form, in
	// first-occurrence order.
	Links []mdstream.ID
}

// Collector accumulates Items across all chapters.
type Collector struct {
	order []string
	items map[string]*Item
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{items: map[string]*Item{}}
}

// Add records a link whose target is the given written item-name text.
func (c *Collector) Add(written string, id mdstream.ID) {
	stripped := stripDisambiguator(written)
	key := normalize(stripped)
	it, ok := c.items[key]
	if !ok {
		it = &Item{Written: stripped, Normalized: key}
		c.items[key] = it
		c.order = append(c.order, key)
	}
	it.Links = append(it.Links, id)
}

// Items returns the collected items in first-occurrence order.
func (c *Collector) Items() []*Item {
	out := make([]*Item, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.items[key])
	}
	return out
}

func stripDisambiguator(s string) string {
	if idx := strings.IndexByte(s, '@'); idx > 0 {
		prefix := s[:idx]
		if isIdentPrefix(prefix) {
			return s[idx+1:]
		}
	}
	return s
}

func isIdentPrefix(s string) bool {
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return s != ""
}

// normalize collapses runs of whitespace inside "<...>" generic-argument
// spans; everything else, including trailing "!" / "()" markers, is left
// untouched.
func normalize(s string) string {
	var b strings.Builder
	depth := 0
	lastWasSpace := false
	for _, r := range s {
		switch r {
		case '<':
			depth++
			lastWasSpace = false
			b.WriteRune(r)
		case '>':
			if depth > 0 {
				depth--
			}
			lastWasSpace = false
			b.WriteRune(r)
		case ' ', '\t', '\n':
			if depth > 0 {
				if !lastWasSpace {
					b.WriteByte(' ')
					lastWasSpace = true
				}
				continue
			}
			lastWasSpace = false
			b.WriteRune(r)
		default:
			lastWasSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// probeScopeName returns a fresh, collision-proof name for the probe
// document's enclosing function, generated once per BuildProbe call so
// concurrent or repeated runs never share a scope identifier.
func probeScopeName() string {
	return "__linkkit_probe_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// BuildProbe assembles the Probe document: a single synthetic source
// fragment containing one statement per Item, reproducing its written form,
// plus a back-map from Normalized key to the byte offset of the first
// token after the path separator of the item's final segment — the
// position used for the "open docs" request. A macro item (trailing "!")
// gets an empty delimiter group appended in the emitted statement only, so
// the probe remains syntactically valid Rust; the back-map position is
// computed against the written form before that marker is added.
func BuildProbe(items []*Item) (source string, positions map[string]int) {
	var b strings.Builder
	positions = make(map[string]int, len(items))

	fmt.Fprintf(&b, "fn %s() {\n", probeScopeName())
	for _, it := range items {
		b.WriteString(" let _ = ")
		stmtStart := b.Len()
		finalSegmentOffset := lastSegmentOffset(it.Written)
		positions[it.Normalized] = stmtStart + finalSegmentOffset
		b.WriteString(it.Written)
		if strings.HasSuffix(it.Written, "!") {
			b.WriteString("()")
		}
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String(), positions
}

// lastSegmentOffset finds the byte offset, within written, of the first
// character of the final "::"-separated segment, ignoring "::" that occurs
// inside a "<...>" generic-argument span.
func lastSegmentOffset(written string) int {
	depth := 0
	last := 0
	for i := 0; i < len(written); i++ {
		switch written[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && i+1 < len(written) && written[i+1] == ':' {
				last = i + 2
				i++
			}
		}
	}
	return last
}
