package species

import (
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Genus hints
// ─────────────────────────────────────────────────────────────────────────────

// genusHints is the single source of truth for guessing a genus from the first
// letter of an unmapped species code.  Candidates are ordered; synthesis always
// takes the first one.  Keys are uppercase initials.
var genusHints = map[string][]string{
	"A": {"Arabidopsis", "Amborella"},
	"B": {"Brassica", "Brachypodium"},
	"C": {"Cucumis", "Citrus"},
	"E": {"Eucalyptus"},
	"F": {"Fragaria"},
	"G": {"Glycine", "Gossypium"},
	"H": {"Hordeum"},
	"L": {"Lotus", "Linum"},
	"M": {"Medicago", "Musa"},
	"N": {"Nicotiana"},
	"O": {"Oryza"},
	"P": {"Populus", "Prunus", "Physcomitrella"},
	"S": {"Solanum", "Sorghum", "Setaria"},
	"T": {"Triticum", "Theobroma"},
	"V": {"Vitis"},
	"Z": {"Zea"},
}

// GenusHint returns the first candidate genus for a code's initial letter.
func GenusHint(code string) (string, bool) {
	if code == "" {
		return "", false
	}
	initial := strings.ToUpper(code[:1])
	candidates, ok := genusHints[initial]
	if !ok || len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// ─────────────────────────────────────────────────────────────────────────────
// Synthesis
// ─────────────────────────────────────────────────────────────────────────────

// UnclassifiedName is the name returned for an empty species code.
const UnclassifiedName = "unclassified species"

// partialMatch looks for a curated code whose first two characters match the
// missing code case-insensitively and whose length differs by at most two.
// Candidates are examined in lexicographic code order, so the same input
// always picks the same match.
func (m *Mapping) partialMatch(code string) (string, bool) {
	if len(code) < 2 {
		return "", false
	}
	prefix := strings.ToLower(code[:2])
	for _, candidate := range m.sortedCodes {
		if len(candidate) < 2 {
			continue
		}
		if strings.ToLower(candidate[:2]) != prefix {
			continue
		}
		diff := len(candidate) - len(code)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 2 {
			return m.codeToName[candidate], true
		}
	}
	return "", false
}

// synthesize produces a display name for a code absent from the metadata.
// Order of attempts: a curated code sharing the first two characters (length
// difference at most two) yields "<matched name> (variant <code>)"; otherwise
// a genus hint for the initial letter yields "<genus> sp. (<code>)"; otherwise
// the generic "Species <code>".
func (m *Mapping) synthesize(code string) string {
	if code == "" {
		return UnclassifiedName
	}
	if name, ok := m.partialMatch(code); ok {
		return name + " (variant " + code + ")"
	}
	if genus, ok := GenusHint(code); ok {
		return genus + " sp. (" + code + ")"
	}
	return "Species " + code
}

// ─────────────────────────────────────────────────────────────────────────────
// Enhance / Resolve
// ─────────────────────────────────────────────────────────────────────────────

// Enhance synthesizes names for every code in codes that the curated metadata
// does not cover, stores them in the fallback map, and returns the synthesized
// identities in lexicographic code order.  Callers run this once at dataset
// bind time with the species codes observed in the orthogroup table.
func (m *Mapping) Enhance(codes []string) []Identity {
	missing := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if m.Known(code) {
			continue
		}
		missing = append(missing, code)
	}
	sort.Strings(missing)

	out := make([]Identity, 0, len(missing))
	for _, code := range missing {
		name := m.synthesize(code)
		m.enhanced[code] = name
		out = append(out, Identity{Code: code, Name: name, Fallback: true})
	}
	return out
}

// Resolve maps a species code to an identity.  It is total: the curated
// metadata is consulted first, then the fallback map populated by Enhance,
// and finally a name is synthesized on the fly.  The returned name is never
// empty.
func (m *Mapping) Resolve(code string) Identity {
	if name, ok := m.codeToName[code]; ok {
		return Identity{Code: code, Name: name}
	}
	if name, ok := m.enhanced[code]; ok {
		return Identity{Code: code, Name: name, Fallback: true}
	}
	return Identity{Code: code, Name: m.synthesize(code), Fallback: true}
}

// ResolveName is a convenience wrapper returning only the display name.
func (m *Mapping) ResolveName(code string) string {
	return m.Resolve(code).Name
}
