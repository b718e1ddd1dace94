// Package species implements the species identity bounded context: parsing the
// code→name metadata table and resolving any species code to a human-readable
// name.  Resolution is a total function — every input, including codes never
// seen in any source file, yields a non-empty name.  Synthesized names are
// flagged so callers can distinguish curated metadata from fallbacks.
package species

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Identity
// ─────────────────────────────────────────────────────────────────────────────

// Identity is a resolved species identity.
type Identity struct {
	// Code is the short species code, e.g. "At".
	Code string `json:"code"`

	// Name is the canonical scientific name, e.g. "Arabidopsis thaliana".
	Name string `json:"name"`

	// Fallback is true when Name was synthesized rather than read from the
	// metadata table.
	Fallback bool `json:"fallback"`
}

// ─────────────────────────────────────────────────────────────────────────────
// ParseStats
// ─────────────────────────────────────────────────────────────────────────────

// ParseStats summarises the outcome of parsing a species metadata table.
type ParseStats struct {
	// Entries is the number of code→name pairs kept.
	Entries int `json:"entries"`

	// SkippedLines counts data lines dropped for having fewer than two columns.
	SkippedLines int `json:"skipped_lines"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

// Mapping bundles both lookup directions over the species metadata plus the
// synthesized fallback names produced by Enhance.  After Enhance has run the
// Mapping is immutable and safe for unsynchronised concurrent reads.
type Mapping struct {
	codeToName map[string]string
	nameToCode map[string]string

	// sortedCodes holds the mapped codes in lexicographic order so fallback
	// synthesis always examines candidates in the same order.
	sortedCodes []string

	// enhanced holds names synthesized for codes that appear in the orthogroup
	// table but not in the metadata.
	enhanced map[string]string

	stats ParseStats
}

type parserOptions struct {
	delimiter   string
	headerLines int
}

// Option configures ParseMapping.
type Option func(*parserOptions)

// WithDelimiter overrides the column delimiter.  The default is a tab.
func WithDelimiter(d string) Option {
	return func(o *parserOptions) {
		if d != "" {
			o.delimiter = d
		}
	}
}

// WithHeaderLines skips a fixed number of leading lines before parsing data.
// Lines beginning with '#' are always skipped regardless of this setting.
func WithHeaderLines(n int) Option {
	return func(o *parserOptions) {
		if n >= 0 {
			o.headerLines = n
		}
	}
}

// ParseMapping reads a delimited species metadata table: column 0 holds the
// full scientific name, column 1 the short species code.  Description lines
// (the configured header count, plus any line starting with '#') are skipped.
// Data lines with fewer than two columns are skipped and counted.  A repeated
// code keeps the last occurrence.
func ParseMapping(r io.Reader, opts ...Option) (*Mapping, error) {
	o := parserOptions{delimiter: "\t"}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Mapping{
		codeToName: make(map[string]string),
		nameToCode: make(map[string]string),
		enhanced:   make(map[string]string),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if lineNo <= o.headerLines {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Split(line, o.delimiter)
		if len(fields) < 2 {
			m.stats.SkippedLines++
			continue
		}
		name := strings.TrimSpace(fields[0])
		code := strings.TrimSpace(fields[1])
		if name == "" || code == "" {
			m.stats.SkippedLines++
			continue
		}

		m.codeToName[code] = name
		m.nameToCode[name] = code
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "reading species mapping")
	}

	m.stats.Entries = len(m.codeToName)
	m.sortedCodes = make([]string, 0, len(m.codeToName))
	for code := range m.codeToName {
		m.sortedCodes = append(m.sortedCodes, code)
	}
	sort.Strings(m.sortedCodes)

	return m, nil
}

// Known reports whether code is present in the curated metadata.
func (m *Mapping) Known(code string) bool {
	_, ok := m.codeToName[code]
	return ok
}

// CodeFor returns the species code for an exact canonical name.
func (m *Mapping) CodeFor(name string) (string, bool) {
	code, ok := m.nameToCode[name]
	return code, ok
}

// Len returns the number of curated metadata entries.
func (m *Mapping) Len() int { return len(m.codeToName) }

// EnhancedLen returns the number of synthesized fallback entries.
func (m *Mapping) EnhancedLen() int { return len(m.enhanced) }

// Stats returns the parse statistics recorded at build time.
func (m *Mapping) Stats() ParseStats { return m.stats }

// Codes returns the curated species codes in lexicographic order.
func (m *Mapping) Codes() []string {
	out := make([]string, len(m.sortedCodes))
	copy(out, m.sortedCodes)
	return out
}
