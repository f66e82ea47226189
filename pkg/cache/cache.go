// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the content-addressed cache: it lets the
// API-link resolver skip the language server entirely when neither the
// requested item set nor the fingerprint of the project's source has
// changed since a prior successful run. Persistence follows the
// write-temp-then-rename pattern docforge's writers package uses for
// on-disk output (pkg/writers/hugofswriter.go's os.Rename use), made atomic
// here by writing to a sibling temp file first.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Record is the persisted cache file's shape. Forward
// compatible: unknown keys are ignored by encoding/json, missing keys
// decode to their zero value.
type Record struct {
	Items map[string]string `json:"items"`
	EnvChecksum string `json:"env_checksum"`
	// EnvFiles is the set of source files, beyond the project manifest,
	// workspace manifest and entry source, that the run which produced
	// Items actually resolved items to a local path within the project.
	// Persisting this (rather than rediscovering it) is what lets the
	// next run's env_checksum cover exactly the files the previous G
	// touched, per spec.md §4.H.
	EnvFiles []string `json:"env_files,omitempty"`
}

// FileName is the cache file's name within the configured cache directory.
const FileName = "cache.json"

// Load reads the cache file at dir/cache.json. A missing file, an
// unreadable file, or one that fails to parse is treated as a cold start
// — Load never returns
// an error for those cases, only an empty Record.
func Load(dir string) *Record {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return &Record{Items: map[string]string{}}
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return &Record{Items: map[string]string{}}
	}
	if r.Items == nil {
		r.Items = map[string]string{}
	}
	return &r
}

// Hit reports whether requestedItems is a subset of the cached item set and
// envChecksum matches the stored one.
// On a hit it returns the cached URLs for exactly the requested items.
func (r *Record) Hit(requestedItems []string, envChecksum string) (map[string]string, bool) {
	if r.EnvChecksum == "" || envChecksum == "" || r.EnvChecksum != envChecksum {
		return nil, false
	}
	out := make(map[string]string, len(requestedItems))
	for _, key := range requestedItems {
		url, ok := r.Items[key]
		if !ok {
			return nil, false
		}
		out[key] = url
	}
	return out, true
}

// Save atomically persists r to dir/cache.json: it writes to a temp file
// in the same directory, then renames over the destination so a concurrent
// reader never observes a partially written file, and a crash mid-write
// leaves the previous cache (or none) intact.
func Save(dir string, r *Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: creating cache dir %s: %w", dir, err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache: marshaling record: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "cache-*.json.tmp")
	if err != nil {
		return fmt.Errorf("cache: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, FileName)); err != nil {
		return fmt.Errorf("cache: renaming into place: %w", err)
	}
	return nil
}

// EnvChecksum hashes the concatenation, in the caller-supplied (stable)
// order, of the environment files that determine cache validity: the
// project manifest, the workspace manifest if any, the entry source file,
// and every source file the previous language-server run resolved to a
// local path within the project. Dependencies and lock files are
// intentionally excluded by the caller building this list.
func EnvChecksum(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("cache: reading env file %s: %w", p, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("cache: hashing env file %s: %w", p, err)
		}
		// A zero byte between files keeps a (a+b, c) and (a, b+c) pair
		// of renamed-but-concatenated files from hashing identically.
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
