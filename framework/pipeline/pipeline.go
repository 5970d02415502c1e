package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/events"
	"github.com/redhat/perf-tests-reporter/framework/llm"
	"github.com/redhat/perf-tests-reporter/framework/prompt"
	"github.com/redhat/perf-tests-reporter/framework/report"
)

// DefaultBudget is the character budget of the aggregated artifact text
const DefaultBudget = 120000

// RunContext is the immutable per-run input shared by every stage
type RunContext struct {
	runID       string
	metadata    map[string]string
	instruction string
	budget      int
}

// NewRunContext copies metadata and assigns a fresh run id
func NewRunContext(metadata map[string]string, instruction string, budget int) *RunContext {
	cp := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cp[k] = v
	}
	return &RunContext{
		runID:       uuid.NewString(),
		metadata:    cp,
		instruction: instruction,
		budget:      budget,
	}
}

// RunID returns the run identifier
func (rc *RunContext) RunID() string {
	return rc.runID
}

// Metadata returns a copy of the test metadata
func (rc *RunContext) Metadata() map[string]string {
	cp := make(map[string]string, len(rc.metadata))
	for k, v := range rc.metadata {
		cp[k] = v
	}
	return cp
}

// Instruction returns the operator instruction, possibly empty
func (rc *RunContext) Instruction() string {
	return rc.instruction
}

// Budget returns the aggregated text budget in characters
func (rc *RunContext) Budget() int {
	return rc.budget
}

// Result is a successful run
type Result struct {
	RunID    string
	Text     string
	Sections report.Sections

	// Raw is the model reply as received
	Raw string

	// Degraded is set when the reply had no recognised section
	Degraded bool

	Labels    []string
	Skipped   []string
	Truncated bool
	Backend   string
	Duration  time.Duration
	Trail     []State
}

// BackendFactory builds a model backend from a selector
type BackendFactory func(llm.Selector) (llm.Backend, error)

// Pipeline runs the fixed aggregate, prompt, invoke, parse, assemble sequence.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	logger           *slog.Logger
	sink             events.Sink
	newBackend       BackendFactory
	perArtifactLimit int
	budget           int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSink sets the diagnostic event sink
func WithSink(sink events.Sink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithBackendFactory replaces llm.New
func WithBackendFactory(f BackendFactory) Option {
	return func(p *Pipeline) {
		p.newBackend = f
	}
}

// WithPerArtifactLimit sets the per-artifact character cap
func WithPerArtifactLimit(n int) Option {
	return func(p *Pipeline) {
		p.perArtifactLimit = n
	}
}

// WithBudget sets the default aggregated text budget used by Run
func WithBudget(n int) Option {
	return func(p *Pipeline) {
		p.budget = n
	}
}

// New creates a Pipeline
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:           slog.Default(),
		sink:             events.Nop(),
		newBackend:       llm.New,
		perArtifactLimit: artifact.DefaultPerArtifactLimit,
		budget:           DefaultBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sink = events.OrNop(p.sink)
	return p
}

// Run produces one report from the artifacts, using the pipeline's budget.
// Exactly one of the result and the error is non-nil.
func (p *Pipeline) Run(ctx context.Context, metadata map[string]string, refs []artifact.Ref, instruction string, sel llm.Selector) (*Result, error) {
	return p.RunWith(ctx, NewRunContext(metadata, instruction, p.budget), refs, sel)
}

// RunWith runs the pipeline with an explicit run context.
//
// The backend is resolved before anything is read. Cancelling ctx does not
// interrupt the model call once it has started; the backend timeout bounds it.
func (p *Pipeline) RunWith(ctx context.Context, rc *RunContext, refs []artifact.Ref, sel llm.Selector) (*Result, error) {
	start := time.Now()
	m := newMachine()
	logger := p.logger.With("run_id", rc.RunID())

	advance := func(to State) {
		from := m.current
		if err := m.advance(to); err != nil {
			logger.Error("invalid pipeline transition", "error", err)
			return
		}
		logger.Debug("pipeline state", "from", from, "to", to)
		p.sink.Emit(ctx, events.StateChanged, map[string]any{
			"run_id": rc.RunID(),
			"from":   string(from),
			"to":     string(to),
		})
	}
	fail := func(kind error, err error) error {
		state := m.current
		advance(StateFailed)
		logger.Error("report run failed", "state", state, "error", err, "duration", time.Since(start))
		return &Error{Kind: kind, State: state, RunID: rc.RunID(), Err: err}
	}

	backend, err := p.newBackend(sel)
	if err != nil {
		return nil, fail(ErrConfiguration, err)
	}

	advance(StateAggregating)
	content := artifact.Aggregate(ctx, refs, artifact.Options{
		PerArtifactLimit: p.perArtifactLimit,
		Budget:           rc.Budget(),
		Logger:           logger,
		Sink:             p.sink,
	})

	advance(StatePrompting)
	pr := prompt.Build(content, rc.Metadata(), rc.Instruction())

	advance(StateInvoking)
	logger.Info("invoking model",
		"backend", backend.Name(), "artifacts", len(content.Labels), "prompt_chars", len([]rune(pr.User))+len([]rune(pr.System)))
	callStart := time.Now()
	resp := llm.Invoke(context.WithoutCancel(ctx), backend, pr.System, pr.User)
	p.sink.Emit(ctx, events.ModelInvoked, map[string]any{
		"run_id":   rc.RunID(),
		"backend":  backend.Name(),
		"duration": time.Since(callStart).String(),
		"ok":       !resp.Failed(),
	})
	if resp.Failed() {
		return nil, fail(ErrModelInvocation, resp.Err)
	}

	advance(StateParsing)
	sections := report.Parse(resp.Text)
	degraded := sections.Empty()
	if degraded {
		logger.Warn("model reply has no recognised sections, using raw reply", "reply_chars", len([]rune(resp.Text)))
		p.sink.Emit(ctx, events.ContractViolation, map[string]any{
			"run_id":      rc.RunID(),
			"reply_chars": len([]rune(resp.Text)),
		})
	}

	advance(StateAssembling)
	text := report.Assemble(sections, resp.Text)

	advance(StateDone)
	result := &Result{
		RunID:     rc.RunID(),
		Text:      text,
		Sections:  sections,
		Raw:       resp.Text,
		Degraded:  degraded,
		Labels:    content.Labels,
		Skipped:   content.Skipped,
		Truncated: content.Truncated,
		Backend:   backend.Name(),
		Duration:  time.Since(start),
		Trail:     append([]State(nil), m.trail...),
	}
	logger.Info("report run done",
		"backend", result.Backend, "degraded", degraded, "sections", len(sections.Populated()), "duration", result.Duration)
	return result, nil
}
