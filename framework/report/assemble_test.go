package report

import (
	"strings"
	"testing"
)

func TestAssemble_OnlyGood(t *testing.T) {
	raw := "## GOOD\nall fine"
	out := Assemble(Parse(raw), raw)

	if IsDegraded(out) {
		t.Fatal("expected primary path")
	}
	for _, k := range Keys {
		if !strings.Contains(out, k.Title()+":\n") {
			t.Errorf("expected heading for %s", k)
		}
	}
	if got := strings.Count(out, ":\n"+Placeholder+"\n"); got != 5 {
		t.Errorf("expected 5 placeholders, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, KeyGood.Title()+":\nall fine\n") {
		t.Errorf("expected populated good section:\n%s", out)
	}
}

func TestAssemble_HeadingOrder(t *testing.T) {
	s := NewSections()
	s[KeyBad] = "x"
	out := Assemble(s, "")

	last := -1
	for _, k := range Keys {
		idx := strings.Index(out, k.Title()+":")
		if idx <= last {
			t.Errorf("heading %s out of order", k)
		}
		last = idx
	}
	if !strings.HasPrefix(out, Title) {
		t.Error("expected report title first")
	}
}

func TestAssemble_Fallback(t *testing.T) {
	raw := "just a paragraph"
	out := Assemble(Parse(raw), raw)

	if !strings.HasPrefix(out, Disclaimer) {
		t.Errorf("expected disclaimer first:\n%s", out)
	}
	if !strings.Contains(out, raw) {
		t.Error("expected raw text verbatim")
	}
	if !IsDegraded(out) {
		t.Error("expected degraded report")
	}
}

func TestAssemble_FallbackKeepsRawVerbatim(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"# Title\n\n### Sub\ntext",
		"## good\nlowercase is not a header",
		"## UNKNOWN\nbody",
		"line1\r\nline2\ttab — dash",
	}
	for _, raw := range inputs {
		out := Assemble(Parse(raw), raw)
		if !strings.HasPrefix(out, Disclaimer) || !strings.Contains(out, raw) {
			t.Errorf("raw %q not preserved under disclaimer", raw)
		}
	}
}

func TestAssemble_NilSections(t *testing.T) {
	if out := Assemble(nil, "x"); !IsDegraded(out) {
		t.Error("expected fallback for nil sections")
	}
}

func TestAssemble_RoundTrip(t *testing.T) {
	cases := []Sections{
		{
			KeyMeta:       "project: payments",
			KeySources:    "a.log\nb.log",
			KeyPodsTable:  "api | 2 | 1 CPU | 500m",
			KeyGood:       "stable",
			KeyBad:        "slow GC",
			KeyErrors:     "none found",
			KeyFullReport: "Paragraph one.\n\nParagraph two.",
		},
		{
			KeyMeta:       "",
			KeySources:    "",
			KeyPodsTable:  "",
			KeyGood:       "only this",
			KeyBad:        "",
			KeyErrors:     "",
			KeyFullReport: "conclusion",
		},
	}

	for i, s := range cases {
		got := ParseRendered(Assemble(s, "raw reply"))
		for _, k := range Keys {
			if got[k] != s[k] {
				t.Errorf("case %d: %s expected %q, got %q", i, k, s[k], got[k])
			}
		}
	}
}

func TestAssemble_EmptyFullReportCarriesRaw(t *testing.T) {
	raw := "## GOOD\nfine\n\nsome trailing commentary"
	s := Parse(raw)
	got := ParseRendered(Assemble(s, raw))

	if got[KeyFullReport] != strings.TrimSpace(raw) {
		t.Errorf("expected raw reply as conclusion, got %q", got[KeyFullReport])
	}
}
