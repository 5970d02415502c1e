package report

import "strings"

const (
	// Title heads every primary-path report
	Title = "LOAD TEST REPORT"

	// Placeholder stands in for an empty section
	Placeholder = "—"

	// Disclaimer heads a degraded report whose body is the raw model reply
	Disclaimer = "STRUCTURED EXTRACTION FAILED: the model reply did not follow the report format. The raw reply is reproduced below unchanged."
)

// Assemble renders the final report text. It cannot fail.
//
// When at least one section is populated every heading is rendered in Keys
// order, empty sections as Placeholder. An empty full report carries the raw
// reply so no model output is dropped. When no section is populated the raw
// reply is returned under Disclaimer.
func Assemble(s Sections, raw string) string {
	if s == nil || s.Empty() {
		return Fallback(raw)
	}

	var b strings.Builder
	b.WriteString(Title)
	for _, k := range Keys {
		body := s[k]
		if k == KeyFullReport && body == "" {
			body = strings.TrimSpace(raw)
		}
		if body == "" {
			body = Placeholder
		}
		b.WriteString("\n\n")
		b.WriteString(k.Title())
		b.WriteString(":\n")
		b.WriteString(body)
	}
	b.WriteString("\n")
	return b.String()
}

// Fallback renders a degraded report
func Fallback(raw string) string {
	return Disclaimer + "\n\n" + raw
}

// IsDegraded reports whether text was produced by Fallback
func IsDegraded(text string) bool {
	return strings.HasPrefix(text, Disclaimer)
}
