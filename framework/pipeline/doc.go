// Package pipeline turns a test's artifacts into a structured report with one
// model call.
//
// A run is strictly sequential:
//
//	start -> aggregating -> prompting -> invoking -> parsing -> assembling -> done
//	                                          \-> failed
//
// An unknown backend selector fails the run from start with ErrConfiguration
// before any artifact is read. A failed model call fails the run with
// ErrModelInvocation. Unreadable artifacts are skipped and a reply without
// recognised sections yields a degraded report; neither is an error.
//
//	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithBudget(120000))
//	result, err := p.Run(ctx, metadata, refs, "", llm.Selector{Type: "ollama"})
//	if pipeline.IsModelInvocation(err) {
//	    // mark the test failed; the caller decides whether to re-run
//	}
package pipeline
