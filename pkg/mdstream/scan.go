// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package mdstream

import (
	"sort"
	"strings"
)

// Document is a parsed chapter: its source bytes plus every link/image
// use-site and reference definition discovered in it.
type Document struct {
	ChapterID string
	Source []byte
	Links []*Link
	RefDefs map[string]RefDef
}

// Parse scans source for link and image use-sites, honoring fenced/inline
// code spans and HTML comments as opaque regions.
func Parse(chapterID string, source []byte) (*Document, error) {
	skip := findSkipRegions(source)
	refdefs, defSpans := findRefDefs(source, skip)
	skip = mergeSorted(append(skip, defSpans...))

	links := scanLinks(chapterID, source, 0, len(source), skip, refdefs)
	sort.Slice(links, func(i, j int) bool { return links[i].Span.Start < links[j].Span.Start })
	return &Document{ChapterID: chapterID, Source: source, Links: links, RefDefs: refdefs}, nil
}

// --- skip regions (fenced code, inline code spans, HTML comments) ---

func findSkipRegions(source []byte) []Span {
	var spans []Span
	spans = append(spans, findFencedCodeBlocks(source)...)
	spans = append(spans, findCodeSpans(source, spans)...)
	spans = append(spans, findHTMLComments(source, spans)...)
	return mergeSorted(spans)
}

func findFencedCodeBlocks(source []byte) []Span {
	var spans []Span
	lineStart := 0
	var fenceChar byte
	var fenceLen, fenceStart int
	inFence := false
	for i := 0; i <= len(source); i++ {
		if i < len(source) && source[i] != '\n' {
			continue
		}
		line := source[lineStart:i]
		trimmed := bytesTrimLeadingSpaces(line, 3)
		if !inFence {
			if n, ch, ok := fencePrefix(trimmed); ok {
				inFence = true
				fenceChar, fenceLen, fenceStart = ch, n, lineStart
			}
		} else {
			if n, ch, ok := fencePrefix(trimmed); ok && ch == fenceChar && n >= fenceLen {
				end := i
				if end < len(source) {
					end++
				}
				spans = append(spans, Span{fenceStart, end})
				inFence = false
			}
		}
		lineStart = i + 1
	}
	if inFence {
		spans = append(spans, Span{fenceStart, len(source)})
	}
	return spans
}

func bytesTrimLeadingSpaces(b []byte, max int) []byte {
	n := 0
	for n < len(b) && n < max && b[n] == ' ' {
		n++
	}
	return b[n:]
}

func fencePrefix(line []byte) (n int, ch byte, ok bool) {
	if len(line) < 3 {
		return 0, 0, false
	}
	c := line[0]
	if c != '`' && c != '~' {
		return 0, 0, false
	}
	i := 0
	for i < len(line) && line[i] == c {
		i++
	}
	if i < 3 {
		return 0, 0, false
	}
	return i, c, true
}

func findCodeSpans(source []byte, skip []Span) []Span {
	var spans []Span
	for i := 0; i < len(source); i++ {
		if inSkip(i, skip) {
			continue
		}
		if source[i] != '`' {
			continue
		}
		run := 1
		for i+run < len(source) && source[i+run] == '`' {
			run++
		}
		j := i + run
		for j < len(source) {
			if inSkip(j, skip) {
				j++
				continue
			}
			if source[j] == '`' {
				closeRun := 1
				for j+closeRun < len(source) && source[j+closeRun] == '`' {
					closeRun++
				}
				if closeRun == run {
					spans = append(spans, Span{i, j + closeRun})
					i = j + closeRun - 1
					break
				}
				j += closeRun
				continue
			}
			j++
		}
		if j >= len(source) {
			break
		}
	}
	return spans
}

func findHTMLComments(source []byte, skip []Span) []Span {
	var spans []Span
	s := string(source)
	for idx := 0; idx < len(s); {
		start := strings.Index(s[idx:], "<!--")
		if start < 0 {
			break
		}
		start += idx
		if inSkip(start, skip) {
			idx = start + 4
			continue
		}
		end := strings.Index(s[start+4:], "-->")
		if end < 0 {
			spans = append(spans, Span{start, len(source)})
			break
		}
		end = start + 4 + end + 3
		spans = append(spans, Span{start, end})
		idx = end
	}
	return spans
}

func inSkip(pos int, skip []Span) bool {
	// linear scan: chapters are small documents, not worth a tree.
	for _, sp := range skip {
		if pos >= sp.Start && pos < sp.End {
			return true
		}
	}
	return false
}

func mergeSorted(spans []Span) []Span {
	if len(spans) == 0 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// --- reference definitions ---

func findRefDefs(source []byte, skip []Span) (map[string]RefDef, []Span) {
	defs := map[string]RefDef{}
	var spans []Span
	lineStart := 0
	for i := 0; i <= len(source); i++ {
		if i < len(source) && source[i] != '\n' {
			continue
		}
		if !inSkip(lineStart, skip) {
			if def, ok := parseRefDefLine(source, lineStart, i); ok {
				if _, exists := defs[def.Label]; !exists {
					defs[def.Label] = def
				}
				spans = append(spans, def.Span)
			}
		}
		lineStart = i + 1
	}
	return defs, spans
}

// parseRefDefLine recognizes `[label]: destination "title"` possibly
// indented up to 3 spaces, with destination in <...> or bare form and an
// optional title in "...", '...' or (...).
func parseRefDefLine(source []byte, start, end int) (RefDef, bool) {
	i := start
	for i < end && i < start+3 && source[i] == ' ' {
		i++
	}
	if i >= end || source[i] != '[' {
		return RefDef{}, false
	}
	labelStart := i + 1
	j := labelStart
	for j < end && source[j] != ']' {
		if source[j] == '\\' {
			j++
		}
		j++
	}
	if j >= end || j+1 >= end || source[j+1] != ':' {
		return RefDef{}, false
	}
	label := normalizeLabel(string(source[labelStart:j]))
	k := j + 2
	for k < end && (source[k] == ' ' || source[k] == '\t') {
		k++
	}
	destStart := k
	var dest string
	if k < end && source[k] == '<' {
		m := k + 1
		for m < end && source[m] != '>' {
			m++
		}
		dest = string(source[k+1 : m])
		k = m + 1
	} else {
		m := k
		for m < end && source[m] != ' ' && source[m] != '\t' {
			m++
		}
		dest = string(source[destStart:m])
		k = m
	}
	for k < end && (source[k] == ' ' || source[k] == '\t') {
		k++
	}
	title := ""
	if k < end && (source[k] == '"' || source[k] == '\'' || source[k] == '(') {
		closer := byte('"')
		switch source[k] {
		case '\'':
			closer = '\''
		case '(':
			closer = ')'
		}
		m := k + 1
		for m < end && source[m] != closer {
			if source[m] == '\\' {
				m++
			}
			m++
		}
		title = string(source[k+1 : min(m, end)])
	}
	return RefDef{Label: label, Destination: dest, Title: title, Span: Span{start, end + 1}}, true
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// --- link/image scanning ---

func scanLinks(chapterID string, source []byte, start, end int, skip []Span, refdefs map[string]RefDef) []*Link {
	var links []*Link
	i := start
	for i < end {
		if sp, ok := skipRegionAt(i, skip); ok {
			i = sp.End
			continue
		}
		switch {
		case source[i] == '<':
			if l, next, ok := scanAutolink(chapterID, source, i, end); ok {
				links = append(links, l)
				i = next
				continue
			}
		case source[i] == '!' && i+1 < end && source[i+1] == '[':
			if l, next, ok := scanBracket(chapterID, source, i+1, end, skip, refdefs, RoleImage); ok {
				links = append(links, l)
				i = next
				continue
			}
		case source[i] == '[':
			if l, next, ok := scanBracket(chapterID, source, i, end, skip, refdefs, RoleLink); ok {
				if l.Role == RoleLink {
					nested := scanLinks(chapterID, source, l.TextSpan.Start, l.TextSpan.End, skip, refdefs)
					l.Nested = nested
					links = append(links, nested...)
				}
				links = append(links, l)
				i = next
				continue
			}
		}
		i++
	}
	return links
}

func skipRegionAt(pos int, skip []Span) (Span, bool) {
	for _, sp := range skip {
		if pos >= sp.Start && pos < sp.End {
			return sp, true
		}
	}
	return Span{}, false
}

var autolinkURLPrefixes = []string{"http://", "https://", "ftp://", "ftps://", "irc://", "mailto:"}

func scanAutolink(chapterID string, source []byte, start, end int) (*Link, int, bool) {
	close := -1
	for j := start + 1; j < end; j++ {
		if source[j] == ' ' || source[j] == '\t' || source[j] == '\n' || source[j] == '<' {
			break
		}
		if source[j] == '>' {
			close = j
			break
		}
	}
	if close < 0 {
		return nil, 0, false
	}
	content := string(source[start+1 : close])
	isURL := false
	for _, p := range autolinkURLPrefixes {
		if strings.HasPrefix(strings.ToLower(content), p) {
			isURL = true
			break
		}
	}
	isEmail := !isURL && strings.Contains(content, "@") && !strings.ContainsAny(content, " \t/")
	if !isURL && !isEmail {
		return nil, 0, false
	}
	dest := content
	if isEmail && !strings.HasPrefix(content, "mailto:") {
		dest = "mailto:" + content
	}
	l := &Link{
		ChapterID: chapterID,
		Kind: KindAutolink,
		Role: RoleLink,
		Span: Span{start, close + 1},
		TextSpan: Span{start + 1, close},
		Destination: dest,
	}
	return l, close + 1, true
}

// scanBracket parses a `[text]...` construct starting at the opening `[`
// (bracketStart points at the `[`; for an image, the caller has already
// consumed the leading `!`). It returns the link and the index just past
// the full construct.
func scanBracket(chapterID string, source []byte, bracketStart, end int, skip []Span, refdefs map[string]RefDef, role Role) (*Link, int, bool) {
	textStart := bracketStart + 1
	closeIdx, ok := findMatchingBracket(source, textStart, end, skip, '[', ']')
	if !ok {
		return nil, 0, false
	}
	overallStart := bracketStart
	if role == RoleImage {
		overallStart-- // include the leading '!'
	}
	textSpan := Span{textStart, closeIdx}
	next := closeIdx + 1

	if next < end && source[next] == '(' {
		destEnd, dest, title, ok := parseInlineDestination(source, next, end)
		if !ok {
			return nil, 0, false
		}
		return &Link{
			ChapterID: chapterID, Kind: KindInline, Role: role,
			Span: Span{overallStart, destEnd}, TextSpan: textSpan,
			Destination: dest, Title: title,
		}, destEnd, true
	}

	if next < end && source[next] == '[' {
		labelEnd, ok := findMatchingBracket(source, next+1, end, skip, '[', ']')
		if !ok {
			return nil, 0, false
		}
		if labelEnd == next+1 {
			// collapsed: "[]"
			label := normalizeLabel(string(source[textStart:closeIdx]))
			dest, title := resolveRefLabel(label, refdefs)
			return &Link{
				ChapterID: chapterID, Kind: KindCollapsed, Role: role,
				Span: Span{overallStart, labelEnd + 1}, TextSpan: textSpan,
				Destination: dest, Title: title, RefLabel: label,
			}, labelEnd + 1, true
		}
		label := normalizeLabel(string(source[next+1 : labelEnd]))
		dest, title := resolveRefLabel(label, refdefs)
		return &Link{
			ChapterID: chapterID, Kind: KindReference, Role: role,
			Span: Span{overallStart, labelEnd + 1}, TextSpan: textSpan,
			Destination: dest, Title: title, RefLabel: label,
		}, labelEnd + 1, true
	}

	// shortcut: "[label]" with no following "(" or "["
	label := normalizeLabel(string(source[textStart:closeIdx]))
	if label == "" {
		return nil, 0, false
	}
	dest, title := resolveRefLabel(label, refdefs)
	return &Link{
		ChapterID: chapterID, Kind: KindShortcut, Role: role,
		Span: Span{overallStart, closeIdx + 1}, TextSpan: textSpan,
		Destination: dest, Title: title, RefLabel: label,
	}, closeIdx + 1, true
}

// resolveRefLabel looks a label up in the chapter's definition table,
// degrading to target == label when absent.
func resolveRefLabel(label string, refdefs map[string]RefDef) (dest, title string) {
	if def, ok := refdefs[label]; ok {
		return def.Destination, def.Title
	}
	return label, ""
}

// findMatchingBracket finds the index of the close byte matching the open
// byte implicitly already consumed at contentStart-1, honoring nesting,
// backslash escapes, and skip regions (treated as opaque, non-nesting
// bytes).
func findMatchingBracket(source []byte, contentStart, end int, skip []Span, open, close byte) (int, bool) {
	depth := 1
	i := contentStart
	for i < end {
		if sp, ok := skipRegionAt(i, skip); ok {
			i = sp.End
			continue
		}
		switch source[i] {
		case '\\':
			i += 2
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		case '\n':
			// links do not span blank lines; a run-away bracket is not a link
			if i+1 < end && source[i+1] == '\n' {
				return 0, false
			}
		}
		i++
	}
	return 0, false
}

// parseInlineDestination parses "(dest \"title\")" starting at the index of
// the opening '(' and returns the index just past the closing ')'.
func parseInlineDestination(source []byte, parenStart, end int) (next int, dest, title string, ok bool) {
	i := parenStart + 1
	for i < end && (source[i] == ' ' || source[i] == '\t' || source[i] == '\n') {
		i++
	}
	destStart := i
	if i < end && source[i] == '<' {
		i++
		s := i
		for i < end && source[i] != '>' {
			if source[i] == '\\' {
				i++
			}
			i++
		}
		if i >= end {
			return 0, "", "", false
		}
		dest = unescape(string(source[s:i]))
		i++
	} else {
		depth := 0
		s := i
		for i < end {
			c := source[i]
			if c == '\\' {
				i += 2
				continue
			}
			if c == '(' {
				depth++
			} else if c == ')' {
				if depth == 0 {
					break
				}
				depth--
			} else if c == ' ' || c == '\t' || c == '\n' {
				if depth == 0 {
					break
				}
			}
			i++
		}
		dest = unescape(string(source[s:i]))
		_ = destStart
	}
	for i < end && (source[i] == ' ' || source[i] == '\t' || source[i] == '\n') {
		i++
	}
	if i < end && (source[i] == '"' || source[i] == '\'' || source[i] == '(') {
		closer := byte('"')
		switch source[i] {
		case '\'':
			closer = '\''
		case '(':
			closer = ')'
		}
		i++
		s := i
		for i < end && source[i] != closer {
			if source[i] == '\\' {
				i++
			}
			i++
		}
		if i >= end {
			return 0, "", "", false
		}
		title = unescape(string(source[s:i]))
		i++
	}
	for i < end && (source[i] == ' ' || source[i] == '\t' || source[i] == '\n') {
		i++
	}
	if i >= end || source[i] != ')' {
		return 0, "", "", false
	}
	return i + 1, dest, title, true
}

func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
