package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/events"
	"github.com/redhat/perf-tests-reporter/framework/llm"
	"github.com/redhat/perf-tests-reporter/framework/pipeline"
	"github.com/redhat/perf-tests-reporter/framework/report"
)

const wellFormed = `## META
project: payments
## SOURCES
a.log
b.log
## PODS_TABLE
api | 2 | 1 CPU | 500m
## GOOD
latency stable
## BAD
heap grows
## ERRORS
none
## FULL_REPORT
All good overall.`

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		recorder *events.Recorder
		dummy    *llm.Dummy
		p        *pipeline.Pipeline
		refs     []artifact.Ref
		meta     map[string]string
	)

	useScript := func(script string) {
		var err error
		dummy, err = llm.NewDummy(script)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		recorder = &events.Recorder{}
		useScript("msgb64:" + b64(wellFormed))
		p = pipeline.New(
			pipeline.WithLogger(slog.New(slog.NewTextHandler(GinkgoWriter, nil))),
			pipeline.WithSink(recorder),
			pipeline.WithBudget(1000),
			pipeline.WithBackendFactory(func(sel llm.Selector) (llm.Backend, error) {
				if sel.Type != llm.TypeDummy {
					return llm.New(sel)
				}
				return dummy, nil
			}),
		)
		refs = []artifact.Ref{
			artifact.FromBytes(1, "a.log", artifact.KindCustomJavaLog, []byte("hello")),
			artifact.FromBytes(2, "b.log", artifact.KindCustomJavaLog, []byte("world")),
		}
		meta = map[string]string{"project_name": "payments", "test_type": "max_search"}
	})

	Context("with a well-formed reply", func() {
		It("produces every section and walks the full state path", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeFalse())
			Expect(result.Labels).To(Equal([]string{"a.log", "b.log"}))
			Expect(result.Truncated).To(BeFalse())
			Expect(result.Sections[report.KeyGood]).To(Equal("latency stable"))
			Expect(result.Sections[report.KeyFullReport]).To(Equal("All good overall."))
			Expect(result.Text).To(HavePrefix(report.Title))
			Expect(result.RunID).NotTo(BeEmpty())
			Expect(result.Trail).To(Equal([]pipeline.State{
				pipeline.StateStart, pipeline.StateAggregating, pipeline.StatePrompting,
				pipeline.StateInvoking, pipeline.StateParsing, pipeline.StateAssembling, pipeline.StateDone,
			}))
		})

		It("sends metadata, labels and content to the model exactly once", func() {
			_, err := p.Run(ctx, meta, refs, "Focus on GC", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())

			calls := dummy.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].System).To(ContainSubstring("Focus on GC"))
			Expect(calls[0].User).To(ContainSubstring(`"project_name": "payments"`))
			Expect(calls[0].User).To(ContainSubstring("1. a.log\n2. b.log"))
			Expect(calls[0].User).To(ContainSubstring("hello"))
			Expect(calls[0].User).To(ContainSubstring("world"))
		})
	})

	Context("when the reply only has a GOOD section", func() {
		BeforeEach(func() {
			useScript("msgb64:" + b64("## GOOD\nall fine"))
		})

		It("renders the full template with placeholders", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeFalse())
			Expect(result.Sections[report.KeyGood]).To(Equal("all fine"))
			Expect(strings.Count(result.Text, ":\n"+report.Placeholder+"\n")).To(Equal(5))
		})
	})

	Context("when the reply ignores the format", func() {
		BeforeEach(func() {
			useScript("msg:just a paragraph")
		})

		It("returns a degraded report with the raw reply", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeTrue())
			Expect(result.Text).To(HavePrefix(report.Disclaimer))
			Expect(result.Text).To(ContainSubstring("just a paragraph"))
			Expect(recorder.Named(events.ContractViolation)).To(HaveLen(1))
		})
	})

	Context("when the reply is empty", func() {
		BeforeEach(func() {
			useScript("msg:")
		})

		It("renders the disclaimer over the untouched reply", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Degraded).To(BeTrue())
			Expect(result.Raw).To(BeEmpty())
			Expect(result.Text).To(Equal(report.Fallback("")))
		})
	})

	Context("with an unknown backend", func() {
		It("fails before reading any artifact", func() {
			opened := 0
			counting := artifact.New(1, "x.log", artifact.KindK8sLogs, func() (io.ReadCloser, error) {
				opened++
				return io.NopCloser(strings.NewReader("x")), nil
			})

			result, err := p.Run(ctx, meta, []artifact.Ref{counting}, "", llm.Selector{Type: "unknown"})

			Expect(result).To(BeNil())
			Expect(pipeline.IsConfiguration(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("unknown llm backend")))
			Expect(opened).To(BeZero())
			Expect(dummy.Calls()).To(BeEmpty())

			var perr *pipeline.Error
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.State).To(Equal(pipeline.StateStart))
		})
	})

	Context("when the model call fails", func() {
		BeforeEach(func() {
			useScript("err:connection refused")
		})

		It("fails the run without a report", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})

			Expect(result).To(BeNil())
			Expect(pipeline.IsModelInvocation(err)).To(BeTrue())
			Expect(pipeline.IsConfiguration(err)).To(BeFalse())
			Expect(err.Error()).To(ContainSubstring("connection refused"))

			var perr *pipeline.Error
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.State).To(Equal(pipeline.StateInvoking))
		})

		It("does not retry", func() {
			_, _ = p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(dummy.Calls()).To(HaveLen(1))
		})
	})

	Context("when the backend panics", func() {
		BeforeEach(func() {
			useScript("panic:nil map")
		})

		It("reports a model invocation failure", func() {
			result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(result).To(BeNil())
			Expect(pipeline.IsModelInvocation(err)).To(BeTrue())
		})
	})

	Context("with an unreadable artifact", func() {
		It("skips it and still produces a report", func() {
			broken := artifact.New(3, "gone.log", artifact.KindCustomGC, func() (io.ReadCloser, error) {
				return nil, errors.New("no such file")
			})

			result, err := p.Run(ctx, meta, append(refs, broken), "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Labels).To(Equal([]string{"a.log", "b.log"}))
			Expect(result.Skipped).To(Equal([]string{"gone.log"}))
			Expect(recorder.Named(events.ArtifactSkipped)).To(HaveLen(1))
		})
	})

	Context("when content exceeds the budget", func() {
		It("truncates and records the event", func() {
			big := artifact.FromBytes(3, "big.log", artifact.KindK8sLogs, []byte(strings.Repeat("x", 5000)))

			result, err := p.Run(ctx, meta, append(refs, big), "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Truncated).To(BeTrue())
			Expect(recorder.Named(events.ContentTruncated)).To(HaveLen(1))
		})
	})

	Context("when the caller cancels", func() {
		BeforeEach(func() {
			useScript("sleep:20")
		})

		It("lets an in-flight model call finish", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			result, err := p.Run(cctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(ContainSubstring("dummy backend"))
		})
	})

	Context("with concurrent runs", func() {
		It("keeps runs independent", func() {
			var wg sync.WaitGroup
			ids := make([]string, 8)
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					result, err := p.Run(ctx, meta, refs, "", llm.Selector{Type: llm.TypeDummy})
					Expect(err).NotTo(HaveOccurred())
					ids[i] = result.RunID
				}(i)
			}
			wg.Wait()

			seen := map[string]bool{}
			for _, id := range ids {
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true
			}
		})
	})
})

var _ = Describe("RunContext", func() {
	It("is isolated from the caller's map", func() {
		meta := map[string]string{"k": "v"}
		rc := pipeline.NewRunContext(meta, "note", 10)
		meta["k"] = "changed"

		Expect(rc.Metadata()).To(HaveKeyWithValue("k", "v"))

		got := rc.Metadata()
		got["k"] = "mutated"
		Expect(rc.Metadata()).To(HaveKeyWithValue("k", "v"))
		Expect(rc.Instruction()).To(Equal("note"))
		Expect(rc.Budget()).To(Equal(10))
	})
})
