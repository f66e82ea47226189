// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package project locates the API-link resolver's target project: its
// manifest (Cargo.toml, or whatever the configured server-command
// understands) and its entry source file, the way docforge's cmd/app
// validates a --manifest path exists before doing anything else with it.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// entryCandidates are tried, in order, relative to the manifest directory,
// mirroring a typical single-crate layout; the first that exists is the
// project's entry source.
var entryCandidates = []string{
	filepath.Join("src", "lib.rs"),
	filepath.Join("src", "main.rs"),
}

// Project is the resolved manifest directory and entry source for one
// API-link resolver invocation.
type Project struct {
	// Dir is the manifest-dir option, resolved to an absolute path.
	Dir string
	// ManifestPath is Dir/Cargo.toml.
	ManifestPath string
	// EntrySource is the verbatim content of the project's entry file
	// (src/lib.rs or src/main.rs), which the driver prepends to the
	// Probe document so the probe items resolve against real code.
	EntrySource string
	// EntryPath is the absolute path EntrySource was read from.
	EntryPath string
	// WorkspaceManifestPath is the Cargo.toml of the enclosing workspace
	// (declaring a "[workspace]" table) when Dir's own manifest is a
	// member of one, found by walking up from Dir; empty when Dir's
	// manifest is not part of a workspace.
	WorkspaceManifestPath string
}

// Load validates manifestDir names a directory containing a manifest and
// an entry source file, returning a Configuration error (§7) otherwise —
// fatal, since the API-link resolver cannot run at all without a target
// project.
func Load(manifestDir string) (*Project, error) {
	abs, err := filepath.Abs(manifestDir)
	if err != nil {
		return nil, fmt.Errorf("project: resolving manifest-dir %q: %w", manifestDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project: manifest-dir %q: %w", manifestDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: manifest-dir %q is not a directory", manifestDir)
	}
	manifestPath := filepath.Join(abs, "Cargo.toml")
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("project: no manifest found at %q: %w", manifestPath, err)
	}

	for _, candidate := range entryCandidates {
		entryPath := filepath.Join(abs, candidate)
		data, err := os.ReadFile(entryPath)
		if err == nil {
			return &Project{
				Dir: abs,
				ManifestPath: manifestPath,
				EntrySource: string(data),
				EntryPath: entryPath,
				WorkspaceManifestPath: findWorkspaceManifest(abs, manifestPath),
			}, nil
		}
	}
	return nil, fmt.Errorf("project: no entry source (%v) found under %q", entryCandidates, manifestDir)
}

// maxWorkspaceSearchDepth bounds the upward walk so a deeply nested
// manifest-dir on an unusual filesystem layout can't loop indefinitely.
const maxWorkspaceSearchDepth = 32

// findWorkspaceManifest walks up from dir looking for an ancestor Cargo.toml
// declaring a "[workspace]" table, stopping at the filesystem root or
// ownManifest's own directory. It returns "" rather than an error on any
// read/parse failure along the way: a missing or malformed ancestor
// manifest just means this crate isn't part of a workspace, not a
// Configuration error.
func findWorkspaceManifest(dir, ownManifest string) string {
	cur := filepath.Dir(dir)
	for depth := 0; depth < maxWorkspaceSearchDepth; depth++ {
		candidate := filepath.Join(cur, "Cargo.toml")
		if candidate != ownManifest {
			if tree, err := toml.LoadFile(candidate); err == nil && tree.Has("workspace") {
				return candidate
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return ""
}
