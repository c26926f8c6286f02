// Package domain defines the scoring vocabulary shared by every layer of the
// PTE Academic scorer: test sections, question types, payload variants,
// provider score envelopes and the canonical 0-90 ScoringResult.
//
// The package holds no behavior beyond construction and validation. Numeric
// scaling lives in the normalize package and grading lives in deterministic.
package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// TestSection is one of the four PTE Academic skill areas.
type TestSection string

const (
	SectionSpeaking  TestSection = "SPEAKING"
	SectionWriting   TestSection = "WRITING"
	SectionReading   TestSection = "READING"
	SectionListening TestSection = "LISTENING"
)

// Sections lists every section in exam order.
func Sections() []TestSection {
	return []TestSection{SectionSpeaking, SectionWriting, SectionReading, SectionListening}
}

// String returns the canonical upper-case section name.
func (s TestSection) String() string { return string(s) }

// Valid reports whether s is one of the four canonical sections.
func (s TestSection) Valid() bool { return slices.Contains(Sections(), s) }

// UnmarshalJSON accepts any label ToTestSection understands, so callers may
// send "speaking", "Speak" or "SPEAKING" interchangeably.
func (s *TestSection) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("section must be a string: %w", err)
	}
	*s = ToTestSection(raw)
	return nil
}

// sectionPrefixes maps lower-case label prefixes to sections. Order matters:
// the first matching prefix wins.
var sectionPrefixes = []struct {
	prefix  string
	section TestSection
}{
	{"speak", SectionSpeaking},
	{"writ", SectionWriting},
	{"read", SectionReading},
	{"listen", SectionListening},
}

// ToTestSection maps a free-text label onto a TestSection. Matching is
// case-insensitive and tolerant of prefixes ("speak", "writ", "read",
// "listen") as well as the single-letter codes S, W, R and L.
//
// Unrecognized labels, including the empty string, resolve to READING.
// Reading is the section whose items are mostly objective, so a mislabeled
// request lands on the path least likely to spend provider quota.
func ToTestSection(label string) TestSection {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, p := range sectionPrefixes {
		if strings.HasPrefix(l, p.prefix) {
			return p.section
		}
	}
	switch l {
	case "s":
		return SectionSpeaking
	case "w":
		return SectionWriting
	case "l":
		return SectionListening
	}
	return SectionReading
}
