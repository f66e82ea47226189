// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package mdstream

import (
	"bytes"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

var frontmatterParser = goldmark.New(goldmark.WithExtensions(meta.Meta))

// Frontmatter extracts a chapter's YAML frontmatter block, if any, using
// goldmark-meta the way docforge's document/frontmatter package relies on
// goldmark's own Document.Meta(). The core never needs to rewrite
// frontmatter — link spans never fall inside it — so this is read-only
// metadata; the driver stores it on book.Chapter.Frontmatter once per run
// and it is never spliced back in by Render, which always operates on the
// untouched chapter bytes.
func Frontmatter(source []byte) (map[string]interface{}, error) {
	ctx := parser.NewContext()
	var discard bytes.Buffer
	if err := frontmatterParser.Convert(source, &discard, parser.WithContext(ctx)); err != nil {
		return nil, err
	}
	data := meta.Get(ctx)
	if data == nil {
		return map[string]interface{}{}, nil
	}
	return data, nil
}
