// Package prompt turns aggregated artifact text and test metadata into the
// system and user messages sent to the model.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
)

// Delimiters around the aggregated artifact text in the user message
const (
	BeginArtifacts = "=== BEGIN ARTIFACTS ==="
	EndArtifacts   = "=== END ARTIFACTS ==="

	additionalContextBegin = "=== ADDITIONAL CONTEXT FROM THE ENGINEER ==="
	additionalContextEnd   = "=== END OF ADDITIONAL CONTEXT ==="
)

// Headers lists the section headers of the output contract, in the order the
// model is asked to produce them.
var Headers = []string{"META", "SOURCES", "PODS_TABLE", "GOOD", "BAD", "ERRORS", "FULL_REPORT"}

// Prompt is a model-ready request
type Prompt struct {
	System string
	User   string
}

const systemTemplate = `You are a performance engineer analysing the results of a load test.
You are given test metadata and a set of artifacts: dashboard panel snapshots,
Kubernetes pod inventories and logs, and JVM diagnostics (GC logs, thread dumps,
JVM options, application logs).

Reply ONLY in the following format. Every section starts with its header on a
line of its own, exactly as written, followed by free text. Produce every
section exactly once, in this order:

## META
project: name of the tested project
test_type: max search, max confirmation, reliability or destructive
version: software version under test
time_range: when the test ran

## SOURCES
Every artifact label you were given, one per line, each with a short note on
what it contains. Do not omit any label, even if the artifact was unhelpful.

## PODS_TABLE
One row per pod group: pod or group name | count | limits | requests.
Use "|" as the column separator. No header row.

## GOOD
What went well: stable metrics, healthy resource usage, absence of errors.

## BAD
Problems and risks: saturation, latency growth, GC pressure, restarts.

## ERRORS
Concrete errors and exceptions found in logs, with counts where possible.

## FULL_REPORT
A complete narrative analysis with conclusions and recommendations.

Rules:
- Ground every claim in an artifact and cite its label in square brackets,
  for example [gc.log]. Do not invent data that is not in the artifacts.
- If a section has nothing to report, write "none" under its header.
- Do not use the "## " prefix for anything other than the section headers above.`

// System returns the system instructions, with the operator instruction
// appended in a delimited block when it is non-empty.
func System(instruction string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return systemTemplate
	}

	var b strings.Builder
	b.WriteString(systemTemplate)
	b.WriteString("\n\n")
	b.WriteString(additionalContextBegin)
	b.WriteString("\nThe engineer who ran the test adds the following. Take it into account,\n")
	b.WriteString("but keep the reply format above unchanged.\n\n")
	b.WriteString(instruction)
	b.WriteString("\n")
	b.WriteString(additionalContextEnd)
	return b.String()
}

// Build assembles the prompt for one run. It performs no I/O and is
// deterministic: metadata keys are serialized in sorted order.
func Build(content artifact.Content, metadata map[string]string, instruction string) Prompt {
	return Prompt{
		System: System(instruction),
		User:   userMessage(content, metadata),
	}
}

func userMessage(content artifact.Content, metadata map[string]string) string {
	if metadata == nil {
		metadata = map[string]string{}
	}
	// map keys are sorted by encoding/json
	meta, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		meta = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("Test metadata:\n")
	b.Write(meta)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Artifacts supplied (%d):\n", len(content.Labels))
	for i, label := range content.Labels {
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	if len(content.Labels) == 0 {
		b.WriteString("(none)\n")
	}

	if len(content.Skipped) > 0 {
		fmt.Fprintf(&b, "\nArtifacts that could not be read (%d): %s\n", len(content.Skipped), strings.Join(content.Skipped, ", "))
	}
	if content.Truncated {
		fmt.Fprintf(&b, "\nNote: artifact content was cut to %d of %d characters; the tail is missing.\n",
			content.Chars(), content.OriginalChars)
	}

	b.WriteString("\n")
	b.WriteString(BeginArtifacts)
	b.WriteString("\n")
	b.WriteString(content.Text)
	b.WriteString("\n")
	b.WriteString(EndArtifacts)
	return b.String()
}
