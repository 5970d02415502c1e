package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DummyReport is what the dummy backend answers for an "ok" step
const DummyReport = `## META
Dry run, no model was called.

## SOURCES
none

## PODS_TABLE
none

## GOOD
none

## BAD
none

## ERRORS
none

## FULL_REPORT
Report produced by the dummy backend.`

type dummyStep struct {
	kind  string
	arg   string
	delay time.Duration
}

// parseScript reads a comma-separated list of steps:
// ok, msg:<text>, msgb64:<base64>, err:<message>, sleep:<ms>, panic:<message>.
// An empty script is a single "ok".
func parseScript(script string) ([]dummyStep, error) {
	var steps []dummyStep
	for _, p := range strings.Split(script, ",") {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			steps = append(steps, dummyStep{kind: "ok"})
			continue
		}
		kind, arg, found := strings.Cut(token, ":")
		if !found {
			return nil, fmt.Errorf("invalid dummy step: %s", token)
		}
		step := dummyStep{kind: kind, arg: arg}
		switch kind {
		case "msg", "err", "panic":
		case "sleep":
			ms, err := strconv.Atoi(arg)
			if err != nil || ms < 0 {
				return nil, fmt.Errorf("invalid dummy sleep: %q", arg)
			}
			step.delay = time.Duration(ms) * time.Millisecond
		case "msgb64":
			raw, err := base64.StdEncoding.DecodeString(arg)
			if err != nil {
				return nil, fmt.Errorf("dummy msgb64 decode failed: %w", err)
			}
			step.kind, step.arg = "msg", string(raw)
		default:
			return nil, fmt.Errorf("invalid dummy step: %s", token)
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		steps = append(steps, dummyStep{kind: "ok"})
	}
	return steps, nil
}

// Dummy is a scripted backend. Steps are consumed one per call; the last step
// repeats.
type Dummy struct {
	mu    sync.Mutex
	steps []dummyStep
	index int
	calls []DummyCall
}

// DummyCall records the messages of one call
type DummyCall struct {
	System string
	User   string
}

// NewDummy creates a scripted backend
func NewDummy(script string) (*Dummy, error) {
	steps, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &Dummy{steps: steps}, nil
}

func newDummy(sel Selector) (Backend, error) {
	d, err := NewDummy(sel.Script)
	if err != nil {
		return nil, &ConfigError{Backend: TypeDummy, Err: err}
	}
	return d, nil
}

func (d *Dummy) Name() string {
	return "dummy"
}

func (d *Dummy) Complete(ctx context.Context, system, user string) (string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, DummyCall{System: system, User: user})
	step := d.steps[len(d.steps)-1]
	if d.index < len(d.steps) {
		step = d.steps[d.index]
		d.index++
	}
	d.mu.Unlock()

	switch step.kind {
	case "msg":
		return step.arg, nil
	case "err":
		return "", fmt.Errorf("dummy backend error: %s", orDefault(step.arg, "scripted"))
	case "panic":
		panic(orDefault(step.arg, "scripted panic"))
	case "sleep":
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(step.delay):
		}
		return DummyReport, nil
	default:
		return DummyReport, nil
	}
}

// Calls returns the recorded calls
func (d *Dummy) Calls() []DummyCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]DummyCall, len(d.calls))
	copy(result, d.calls)
	return result
}
