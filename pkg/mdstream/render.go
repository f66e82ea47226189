// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package mdstream

import (
	"fmt"
	"sort"
	"strings"
)

// Rewrite is the new destination (and optionally title) chosen for a Link
// by the classifier/resolver/rewrite-engine stages (components B/C/D/E/F/G).
type Rewrite struct {
	Destination string
	Title string
	// KeepTitle preserves the link's original title verbatim instead of
	// Title above; set by the rewrite engine for substitutions that only
	// touch the destination.
	KeepTitle bool
}

// RewriteSet accumulates the rewrite table for a run. Two rewrites for the
// same Link identity is a programming error.
type RewriteSet struct {
	byID map[ID]Rewrite
}

// NewRewriteSet creates an empty rewrite table.
func NewRewriteSet() *RewriteSet {
	return &RewriteSet{byID: map[ID]Rewrite{}}
}

// Add records the rewrite for id. It panics on a duplicate identity, per
// invariant that multiple rewrites for the same link is a programming
// error, not a runtime condition callers are expected to recover from.
func (s *RewriteSet) Add(id ID, r Rewrite) {
	if _, exists := s.byID[id]; exists {
		panic(fmt.Sprintf("mdstream: duplicate rewrite for %s", id))
	}
	s.byID[id] = r
}

// Get returns the rewrite recorded for id, if any.
func (s *RewriteSet) Get(id ID) (Rewrite, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len reports how many rewrites are recorded across all chapters.
func (s *RewriteSet) Len() int { return len(s.byID) }

// Render re-serializes doc's source, splicing in new syntax for every link
// present in rewrites and leaving every other byte untouched. Edits are
// applied highest-span-start first, so this never needs to
// account for earlier edits shifting later offsets — the definition of
// "earlier" here is "lower source offset", processed last.
func Render(doc *Document, rewrites *RewriteSet) []byte {
	type edit struct {
		span Span
		text []byte
	}
	var edits []edit
	for _, l := range doc.Links {
		r, ok := rewrites.Get(l.ID())
		if !ok {
			continue
		}
		edits = append(edits, edit{l.Span, serializeLink(doc.Source, l, r)})
	}
	if len(edits) == 0 {
		out := make([]byte, len(doc.Source))
		copy(out, doc.Source)
		return out
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].span.Start > edits[j].span.Start })

	out := append([]byte(nil), doc.Source...)
	for _, e := range edits {
		head := out[:e.span.Start:e.span.Start]
		tail := out[e.span.End:]
		merged := append(head, e.text...)
		out = append(merged, tail...)
	}
	return out
}

func serializeLink(source []byte, l *Link, r Rewrite) []byte {
	title := r.Title
	if r.KeepTitle {
		title = l.Title
	}

	if l.Kind == KindAutolink {
		if looksLikeAbsoluteURL(r.Destination) {
			return []byte("<" + r.Destination + ">")
		}
		// A relative destination is not valid inside <...>; fall back to
		// an inline link whose text is the text the reader originally saw.
		return inlineSyntax(l.Role, l.Text(source), r.Destination, title)
	}
	return inlineSyntax(l.Role, l.Text(source), r.Destination, title)
}

func looksLikeAbsoluteURL(dest string) bool {
	return strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:")
}

func inlineSyntax(role Role, text, dest, title string) []byte {
	var b strings.Builder
	if role == RoleImage {
		b.WriteByte('!')
	}
	b.WriteByte('[')
	b.WriteString(text)
	b.WriteString("](")
	b.WriteString(escapeDestination(dest))
	if title != "" {
		b.WriteString(" \"")
		b.WriteString(strings.ReplaceAll(title, "\"", "\\\""))
		b.WriteByte('"')
	}
	b.WriteByte(')')
	return []byte(b.String())
}

func escapeDestination(dest string) string {
	if strings.ContainsAny(dest, " \t()") {
		return "<" + dest + ">"
	}
	return dest
}
