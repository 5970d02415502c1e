package report

import (
	"strings"
)

// Key names one section of the model's structured reply
type Key string

// Section keys
const (
	KeyMeta       Key = "meta"
	KeySources    Key = "sources"
	KeyPodsTable  Key = "pods_table"
	KeyGood       Key = "good"
	KeyBad        Key = "bad"
	KeyErrors     Key = "errors"
	KeyFullReport Key = "full_report"
)

// Keys is the closed key set in report order
var Keys = []Key{KeyMeta, KeySources, KeyPodsTable, KeyGood, KeyBad, KeyErrors, KeyFullReport}

var titles = map[Key]string{
	KeyMeta:       "Test metadata",
	KeySources:    "Data sources (files the report is based on)",
	KeyPodsTable:  "Pods (limits / requests)",
	KeyGood:       "What works well",
	KeyBad:        "What works badly",
	KeyErrors:     "Errors and problems (SLA, memory, graphs)",
	KeyFullReport: "Full conclusion",
}

// Header returns the wire header token, e.g. "## PODS_TABLE"
func (k Key) Header() string {
	return "## " + strings.ToUpper(string(k))
}

// Title returns the human-readable heading of the section
func (k Key) Title() string {
	return titles[k]
}

// Sections maps every key to its body. All keys are always present.
type Sections map[Key]string

// NewSections returns Sections with every key set to ""
func NewSections() Sections {
	s := make(Sections, len(Keys))
	for _, k := range Keys {
		s[k] = ""
	}
	return s
}

// Empty reports whether every section body is empty
func (s Sections) Empty() bool {
	for _, k := range Keys {
		if s[k] != "" {
			return false
		}
	}
	return true
}

// Populated returns the keys with a non-empty body, in report order
func (s Sections) Populated() []Key {
	var keys []Key
	for _, k := range Keys {
		if s[k] != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Parse extracts sections from a raw model reply.
//
// A section starts at a line whose trimmed text is exactly a key header and
// runs until the next "## " line or the end of text. An unknown "## " header
// closes the current section; its own body is dropped. When a key repeats,
// the first occurrence wins and the later bodies are dropped. Text before the
// first header is ignored.
func Parse(raw string) Sections {
	byHeader := make(map[string]Key, len(Keys))
	for _, k := range Keys {
		byHeader[k.Header()] = k
	}
	return scan(raw, func(line string) (Key, bool, bool) {
		trimmed := strings.TrimSpace(line)
		k, ok := byHeader[trimmed]
		return k, ok, ok || strings.HasPrefix(trimmed, "## ")
	})
}

// ParseRendered extracts sections back from an Assemble primary-path
// rendering: headings map back to keys and placeholders to empty bodies.
func ParseRendered(text string) Sections {
	byTitle := make(map[string]Key, len(Keys))
	for _, k := range Keys {
		byTitle[k.Title()+":"] = k
	}
	s := scan(text, func(line string) (Key, bool, bool) {
		k, ok := byTitle[strings.TrimSpace(line)]
		return k, ok, ok
	})
	for k, v := range s {
		if v == Placeholder {
			s[k] = ""
		}
	}
	return s
}

// scan splits text at boundary lines. header reports the key a line opens
// and whether the line is a boundary at all.
func scan(text string, header func(line string) (k Key, known, boundary bool)) Sections {
	s := NewSections()
	seen := make(map[Key]bool, len(Keys))

	var (
		current Key
		active  bool
		body    []string
	)
	flush := func() {
		if active && !seen[current] {
			s[current] = strings.TrimSpace(strings.Join(body, "\n"))
			seen[current] = true
		}
		body = body[:0]
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if k, known, boundary := header(line); boundary {
			flush()
			current, active = k, known
			continue
		}
		if active {
			body = append(body, line)
		}
	}
	flush()

	return s
}
