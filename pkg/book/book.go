// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package book models the mdbook preprocessor wire format: a nested section
// tree of chapters, read as JSON from stdin and written back as JSON to
// stdout with only Content fields rewritten.
package book

import "encoding/json"

// Context is the first element of the `[context, book]` pair mdbook feeds a
// preprocessor on stdin. Only the fields the core needs are modeled here;
// Config is kept as raw JSON, and any other field is dropped.
type Context struct {
	Root string `json:"root"`
	RendererName string `json:"renderer"`
	MDBookVersion string `json:"mdbook_version"`
	Config json.RawMessage `json:"config"`
}

// Book is the second element: a tree of sections, each either a Chapter or
// a Separator/PartTitle. mdbook represents this as an array of
// single-key-tagged objects; Item below mirrors that shape.
type Book struct {
	Sections []Item `json:"sections"`
}

// Item is one node of the book's section tree. Exactly one of Chapter,
// Separator or PartTitle is non-nil, matching mdbook's internally-tagged
// BookItem enum.
type Item struct {
	Chapter *Chapter `json:"Chapter,omitempty"`
	Separator *struct{} `json:"Separator,omitempty"`
	PartTitle *string `json:"PartTitle,omitempty"`
}

// Chapter is a single leaf of documentation source. Path is book-root
// relative (e.g. "guide/intro.md"); SourcePath is identical for non-draft
// chapters and empty for drafts.
type Chapter struct {
	Name string `json:"name"`
	Content string `json:"content"`
	Path *string `json:"path"`
	SourcePath *string `json:"source_path"`
	ParentNames []string `json:"parent_names"`
	SubItems []Item `json:"sub_items"`

	// URL is not part of mdbook's own wire format and is never
	// serialized; no code in this module sets it.
	URL string `json:"-"`

	// Frontmatter is the chapter's parsed YAML frontmatter block, if any.
	// The driver fills it in once from Content before any rewrite and
	// never touches it afterward — link rewriting never reaches inside a
	// frontmatter block, so it is preserved verbatim across Run. Not part
	// of mdbook's wire format.
	Frontmatter map[string]interface{} `json:"-"`
}

// ID returns the chapter's stable identifier: its book-root relative path,
// or Name if the chapter has no backing file (a synthesized draft).
func (c *Chapter) ID() string {
	if c.Path != nil && *c.Path != "" {
		return *c.Path
	}
	return c.Name
}

// Walk visits every chapter in the book in natural (depth-first,
// left-to-right) traversal order, for deterministic cross-chapter output.
func (b *Book) Walk(fn func(*Chapter)) {
	var walkItems func([]Item)
	walkItems = func(items []Item) {
		for i := range items {
			if items[i].Chapter == nil {
				continue
			}
			ch := items[i].Chapter
			fn(ch)
			walkItems(ch.SubItems)
		}
	}
	walkItems(b.Sections)
}

// ReadInput decodes mdbook's `[context, book]` stdin pair.
func ReadInput(data []byte) (*Context, *Book, error) {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, nil, err
	}
	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, err
	}
	var b Book
	if err := json.Unmarshal(pair[1], &b); err != nil {
		return nil, nil, err
	}
	return &ctx, &b, nil
}

// WriteOutput encodes the (possibly rewritten) book as the sole JSON value
// mdbook expects on a preprocessor's stdout.
func WriteOutput(b *Book) ([]byte, error) {
	return json.Marshal(b)
}
