// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Reporter renders accumulated diagnostics to an io.Writer. Two
// implementations are selected by whether the writer is an attached
// terminal, mirroring docforge's choice between the graphical build report
// and plain klog lines.
type Reporter interface {
	Report(w io.Writer, diags []Diagnostic, sources map[string][]byte)
}

// NewReporter picks a graphical or plain reporter based on whether w is a
// terminal. The caller passes the concrete *os.File so the terminal check
// has a file descriptor to probe; non-*os.File writers always get the plain
// reporter.
func NewReporter(w io.Writer) Reporter {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return graphicalReporter{}
	}
	return plainReporter{}
}

type plainReporter struct{}

func (plainReporter) Report(w io.Writer, diags []Diagnostic, _ map[string][]byte) {
	for _, d := range diags {
		fmt.Fprintln(w, d.Error())
	}
}

// graphicalReporter renders a caret-annotated snippet under each diagnostic,
// the way mdbook's own diagnostics render when stderr is a terminal.
type graphicalReporter struct{}

func (graphicalReporter) Report(w io.Writer, diags []Diagnostic, sources map[string][]byte) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s\n", severityLabel(d.Severity), d.Message)
		if d.ChapterID == "" {
			continue
		}
		line, col, lineText := locate(sources[d.ChapterID], d.Span.Start)
		fmt.Fprintf(w, " --> %s:%d:%d\n", d.ChapterID, line, col)
		if lineText != "" {
			fmt.Fprintf(w, " |\n")
			fmt.Fprintf(w, "%3d| %s\n", line, lineText)
			fmt.Fprintf(w, " | %s%s\n", repeat(' ', col-1), repeat('^', caretWidth(d.Span)))
		}
	}
}

func severityLabel(s Severity) string {
	if s == Error {
		return "error"
	}
	return "warning"
}

func caretWidth(s Span) int {
	n := s.End - s.Start
	if n <= 0 {
		return 1
	}
	return n
}

func repeat(b byte, n int) string {
	if n < 0 {
		n = 0
	}
	return string(bytes.Repeat([]byte{b}, n))
}

// locate converts a byte offset into 1-based line/column numbers and
// returns the text of that line, for sources we have the bytes of.
func locate(source []byte, offset int) (line, col int, lineText string) {
	if source == nil || offset < 0 || offset > len(source) {
		return 1, 1, ""
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = offset - lineStart + 1
	lineEnd := lineStart
	for lineEnd < len(source) && source[lineEnd] != '\n' {
		lineEnd++
	}
	return line, col, string(source[lineStart:lineEnd])
}
