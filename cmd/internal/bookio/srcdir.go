// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package bookio

import (
	"encoding/json"
	"path/filepath"

	"github.com/go-mdbook/linkkit/pkg/book"
)

// SourceDir returns the book's configured source directory (book.toml's
// `[book] src`, default "src"), resolved absolute against ctx.Root.
func SourceDir(ctx *book.Context) string {
	src := "src"
	var cfg struct {
		Book struct {
			Src string `json:"src"`
		} `json:"book"`
	}
	if len(ctx.Config) > 0 {
		if err := json.Unmarshal(ctx.Config, &cfg); err == nil && cfg.Book.Src != "" {
			src = cfg.Book.Src
		}
	}
	return filepath.Join(ctx.Root, src)
}
