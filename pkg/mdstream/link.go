// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package mdstream parses a chapter's Markdown into a linear list of link
// use-sites carrying their original byte spans, and re-serializes a chapter
// given a rewrite table, splicing new syntax into the original bytes rather
// than re-rendering the whole document — so rewrites must apply in span
// order, highest offset first, and bytes outside rewritten spans survive
// untouched.
//
// goldmark's public AST (see pkg/mdstream/frontmatter.go) discards the raw
// syntax form of a link (inline vs reference vs shortcut) and does not
// retain byte offsets for Destination/Title, so link discovery here is a
// small hand-rolled scanner in the spirit of docforge's own
// pkg/markdown/parser, which keeps exactly this kind of byte-exact link
// bookkeeping alongside goldmark for the same reason.
package mdstream

import "fmt"

// Kind identifies the Markdown syntax used to express a link or image
// use-site.
type Kind int

const (
	KindInline Kind = iota
	KindReference
	KindCollapsed
	KindShortcut
	KindAutolink
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindReference:
		return "reference"
	case KindCollapsed:
		return "collapsed"
	case KindShortcut:
		return "shortcut"
	case KindAutolink:
		return "autolink"
	default:
		return "unknown"
	}
}

// Role distinguishes a plain link from an image.
type Role int

const (
	RoleLink Role = iota
	RoleImage
)

func (r Role) String() string {
	if r == RoleImage {
		return "image"
	}
	return "link"
}

// Span is a half-open byte range [Start, End) into a Chapter's source.
type Span struct {
	Start, End int
}

// Len reports the span's width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool { return o.Start >= s.Start && o.End <= s.End }

// Overlaps reports whether s and o share bytes without one containing the
// other, which two link spans in the same chapter must never do.
func (s Span) Overlaps(o Span) bool {
	if s.Contains(o) || o.Contains(s) {
		return false
	}
	return s.Start < o.End && o.Start < s.End
}

// ID identifies a Link within its chapter: the chapter id plus the link's
// original byte span.
type ID struct {
	ChapterID string
	Span Span
}

func (id ID) String() string {
	return fmt.Sprintf("%s@%d:%d", id.ChapterID, id.Span.Start, id.Span.End)
}

// RefDef is a reference-style link definition, e.g. `[label]: /url "title"`.
type RefDef struct {
	Label string
	Destination string
	Title string
	Span Span
}

// Link is a single link or image use-site discovered in a chapter.
//
// Links are immutable once produced by Parse; rewrites are expressed
// separately as a RewriteSet keyed by ID and applied during Render.
type Link struct {
	ChapterID string
	Kind Kind
	Role Role

	// Span is the full use-site span, e.g. the entire "[text](dest
	// \"title\")" or "<scheme://...>".
	Span Span

	// TextSpan is the span of the link text / image alt content only,
	// excluding the surrounding brackets.
	TextSpan Span

	// Destination and Title are the link's resolved original values: for
	// Reference/Collapsed/Shortcut links, resolved against the chapter's
	// RefDef table, or — absent a matching definition — degraded so that
	// Destination equals RefLabel.
	Destination string
	Title string

	// RefLabel is non-empty for Reference, Collapsed and Shortcut links.
	RefLabel string

	// Nested holds the links found within this link's text, such as the
	// image in the image-in-link case; any link, image or autolink the scan
	// finds inside the text span is recorded here.
	Nested []*Link
}

// ID returns this link's identity.
func (l *Link) ID() ID { return ID{ChapterID: l.ChapterID, Span: l.Span} }

// Text returns the literal source bytes of the link's text / alt content.
func (l *Link) Text(source []byte) string {
	return string(source[l.TextSpan.Start:l.TextSpan.End])
}
