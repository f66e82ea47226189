// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package bookio implements the host preprocessor protocol's stdin/stdout
// framing (§6): decoding the `[context, book]` pair mdbook feeds a
// preprocessor and encoding the transformed book back, plus the standalone
// single-chapter book used by the `markdown` subcommand.
package bookio

import (
	"fmt"
	"io"

	"github.com/go-mdbook/linkkit/pkg/book"
)

// ReadBookMode decodes the host's stdin pair.
func ReadBookMode(r io.Reader) (*book.Context, *book.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("bookio: reading stdin: %w", err)
	}
	ctx, b, err := book.ReadInput(data)
	if err != nil {
		return nil, nil, fmt.Errorf("bookio: decoding host input: %w", err)
	}
	return ctx, b, nil
}

// WriteBookMode encodes b as the host's expected stdout output.
func WriteBookMode(w io.Writer, b *book.Book) error {
	out, err := book.WriteOutput(b)
	if err != nil {
		return fmt.Errorf("bookio: encoding output: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// StandaloneChapterID is the synthetic chapter identifier used when
// running against a single Markdown document from stdin rather than a
// full book, so diagnostics still have something to report against.
const StandaloneChapterID = "<stdin>"

// ReadStandalone wraps one Markdown document, read whole from r, in a
// single-chapter synthetic Book so it can be driven through the exact same
// driver code path as book mode.
func ReadStandalone(r io.Reader) (*book.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bookio: reading stdin: %w", err)
	}
	path := StandaloneChapterID
	return &book.Book{
		Sections: []book.Item{
			{Chapter: &book.Chapter{
				Name: StandaloneChapterID,
				Content: string(data),
				Path: &path,
			}},
		},
	}, nil
}

// WriteStandalone writes the sole chapter's (possibly rewritten) content to
// w, as the `markdown` subcommand's stdout.
func WriteStandalone(w io.Writer, b *book.Book) error {
	var content string
	b.Walk(func(ch *book.Chapter) { content = ch.Content })
	_, err := io.WriteString(w, content)
	return err
}
