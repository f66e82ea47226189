// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package classify implements the link-target classifier: given the
// string a Markdown link points at, decide whether it names a
// programming-language item, a filesystem path, a book-internal URL, the
// configured repository's own canonical URL form, or something external
// that is none of the resolvers' business.
package classify

import (
	"net/url"
	"regexp"
	"strings"
)

// Category is the outcome of classifying a single link target.
type Category int

const (
	// ItemName matches the item-name grammar (see looksLikeItemName) and
	// is handled by the API-link resolver.
	ItemName Category = iota
	// RelativePath is a relative filesystem path, handled by the
	// permalink resolver's path resolver.
	RelativePath
	// AbsoluteRepoPath begins with a single '/' and is repo-root
	// relative, also handled by the path resolver.
	AbsoluteRepoPath
	// BookURL begins with the configured book prefix and is handled by
	// the book-URL checker.
	BookURL
	// RepoCanonicalURL already names the configured repository with
	// literal ref "HEAD", and has that ref re-pinned the same as a path.
	RepoCanonicalURL
	// External is left untouched: not rewritten, not validated.
	External
)

func (c Category) String() string {
	switch c {
	case ItemName:
		return "item-name"
	case RelativePath:
		return "relative-path"
	case AbsoluteRepoPath:
		return "absolute-repo-path"
	case BookURL:
		return "book-url"
	case RepoCanonicalURL:
		return "repo-canonical-url"
	default:
		return "external"
	}
}

// FileExists reports whether target, resolved relative to the chapter
// directory, names an existing file. The classifier consults it only to
// break the item-name/bare-filename tie.
type FileExists func(target string) bool

// Options carries the configured context a single classification needs.
type Options struct {
	// RepoHost is the hostname of the RepoSpec's source-hosting URL
	// template (e.g. "github.com"), used to recognize repo-canonical
	// URLs.
	RepoHost string
	// BookURLPrefix is the configured book-url option.
	BookURLPrefix string
	Exists FileExists
}

var hasSchemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:([^:]|$)`)

// Classify decides target's Category.
func Classify(target string, opts Options) Category {
	if target == "" {
		return External
	}
	if strings.HasPrefix(target, "#") {
		// fragment-only reference: not rewritten, classification is moot.
		return External
	}
	if strings.HasPrefix(target, "//") {
		// protocol-relative: external per the tie-break rule.
		return External
	}

	withoutFragment, _, _ := strings.Cut(target, "#")
	hasQuery := strings.Contains(withoutFragment, "?")

	if hasSchemeRe.MatchString(target) {
		if opts.BookURLPrefix != "" && strings.HasPrefix(target, opts.BookURLPrefix) {
			return BookURL
		}
		if isRepoCanonicalURL(target, opts.RepoHost) {
			return RepoCanonicalURL
		}
		return External
	}

	if strings.HasPrefix(target, "/") {
		return AbsoluteRepoPath
	}

	isRelativePathForm := strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../")

	if !hasQuery && looksLikeItemName(withoutFragment) {
		if opts.Exists == nil || !opts.Exists(target) {
			return ItemName
		}
	}

	if hasQuery {
		// Query strings disqualify path classification outright.
		return External
	}
	if isRelativePathForm {
		return RelativePath
	}
	// A bare word with no scheme, no leading path markers and not an
	// item name is still treated as a (bare-filename) relative path; the
	// path resolver will emit a warning if it does not actually exist.
	return RelativePath
}

var repoCanonicalRe = regexp.MustCompile(`^https?://([^/]+)/[^/]+/[^/]+/(blob|tree|raw)/([^/]+)/`)

func isRepoCanonicalURL(target, repoHost string) bool {
	_, ok := RepoCanonicalPath(target, repoHost)
	return ok
}

// RepoCanonicalPath extracts the repo-relative path (and fragment) out of
// a URL already classified as RepoCanonicalURL, so the path resolver can
// pin its literal "HEAD" ref to the repository's actually-resolved ref the
// same way it pins a plain path link.
func RepoCanonicalPath(target, repoHost string) (repoRelativeWithFragment string, ok bool) {
	if repoHost == "" {
		return "", false
	}
	m := repoCanonicalRe.FindStringSubmatch(target)
	if m == nil || !strings.EqualFold(m[1], repoHost) || m[3] != "HEAD" {
		return "", false
	}
	return strings.TrimPrefix(target, m[0]), true
}

// looksLikeItemName matches the item-name grammar:
//
//	path :: segment ("::" segment)*
//
// with an optional leading "<receiver as Trait>::" and an optional
// trailing "!" (macro) or "()" (function); a segment is an identifier
// optionally followed by "::<generic-args>" or "<generic-args>", and a
// disambiguator prefix like "mod@"/"macro@" may precede the whole thing.
func looksLikeItemName(s string) bool {
	if s == "" {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ' ', '\t', '\n':
			if depth == 0 {
				return false
			}
		}
	}
	if idx := strings.Index(s, "@"); idx > 0 && idx < len(s)-1 && isIdent(s[:idx]) {
		s = s[idx+1:]
	}
	if strings.HasPrefix(s, "<") {
		end, ok := balancedAngleEnd(s, 0)
		if !ok {
			return false
		}
		rest := s[end+1:]
		if !strings.HasPrefix(rest, "::") {
			return false
		}
		s = rest[2:]
	}
	if strings.HasSuffix(s, "!") {
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "()") {
		s = s[:len(s)-2]
	}
	if s == "" {
		return false
	}
	for i, seg := range splitSegments(s) {
		if i > 0 && strings.HasPrefix(seg, "<") && strings.HasSuffix(seg, ">") {
			// "::<generic-args>" following the previous segment
			continue
		}
		if !validSegment(seg) {
			return false
		}
	}
	return true
}

// splitSegments splits on "::" that is not nested inside a "<...>" span.
func splitSegments(s string) []string {
	var segs []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 && i+1 < len(s) && s[i+1] == ':' {
				segs = append(segs, s[last:i])
				i++
				last = i + 1
			}
		}
	}
	segs = append(segs, s[last:])
	return segs
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	name := seg
	if idx := strings.IndexByte(seg, '<'); idx >= 0 {
		if !strings.HasSuffix(seg, ">") {
			return false
		}
		name = seg[:idx]
	}
	return isIdent(name)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func balancedAngleEnd(s string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// percentDecode is used by the path resolver before filesystem checks; it
// is exported here because the classifier and the path resolver share the
// same notion of "the same path".
func percentDecode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// PercentDecode exposes percentDecode to other packages in this module.
func PercentDecode(s string) string { return percentDecode(s) }
