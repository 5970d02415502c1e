package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/redhat/perf-tests-reporter/framework/events"
)

const (
	// DefaultPerArtifactLimit caps the characters taken from one artifact
	DefaultPerArtifactLimit = 50000

	// TruncationMarker is appended to an artifact block cut at the per-artifact limit
	TruncationMarker = "\n... [truncated]"

	// BlockSeparator joins artifact blocks
	BlockSeparator = "\n\n"
)

// Options configures Aggregate
type Options struct {
	// PerArtifactLimit caps each artifact's text in characters.
	// Zero means DefaultPerArtifactLimit, negative means no cap.
	PerArtifactLimit int

	// Budget caps the joined text in characters. Zero or negative disables it.
	Budget int

	Logger *slog.Logger
	Sink   events.Sink
}

// Content is the aggregated text handed to the prompt builder
type Content struct {
	Text string

	// Labels of the artifacts included, in input order
	Labels []string

	// Skipped lists the labels of artifacts that could not be read
	Skipped []string

	// Truncated is set when the global budget cut the joined text
	Truncated bool

	// OriginalChars is the joined length before the global budget was applied
	OriginalChars int
}

// Chars returns the length of Text in characters
func (c Content) Chars() int {
	return utf8.RuneCountInString(c.Text)
}

// Aggregate reads every artifact in order and joins them into one bounded
// text blob. Unreadable artifacts are skipped; nothing here fails the run.
func Aggregate(ctx context.Context, refs []Ref, opts Options) Content {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := events.OrNop(opts.Sink)

	limit := opts.PerArtifactLimit
	if limit == 0 {
		limit = DefaultPerArtifactLimit
	}

	content := Content{
		Labels: make([]string, 0, len(refs)),
	}
	blocks := make([]string, 0, len(refs))

	for _, ref := range refs {
		text, original, err := read(ref, limit)
		if err != nil {
			rerr := &ReadError{ID: ref.ID, Label: ref.Label, Err: err}
			logger.Warn("skipping unreadable artifact",
				"artifact_id", ref.ID, "label", ref.Label, "error", rerr)
			sink.Emit(ctx, events.ArtifactSkipped, map[string]any{
				"artifact_id": ref.ID,
				"label":       ref.Label,
				"error":       rerr.Error(),
			})
			content.Skipped = append(content.Skipped, ref.Label)
			continue
		}

		capped, wasCapped := cut(text, limit)
		if wasCapped {
			capped += TruncationMarker
			logger.Debug("artifact capped",
				"artifact_id", ref.ID, "label", ref.Label, "limit", limit, "original_chars", original)
			sink.Emit(ctx, events.ArtifactCapped, map[string]any{
				"artifact_id":    ref.ID,
				"label":          ref.Label,
				"limit":          limit,
				"original_chars": original,
			})
		}

		blocks = append(blocks, Tag(ref)+"\n"+capped)
		content.Labels = append(content.Labels, ref.Label)
	}

	joined := strings.Join(blocks, BlockSeparator)
	content.OriginalChars = utf8.RuneCountInString(joined)
	content.Text, content.Truncated = cut(joined, opts.Budget)

	if content.Truncated {
		truncated := content.Chars()
		logger.Info("aggregated content truncated",
			"original_chars", content.OriginalChars, "truncated_chars", truncated, "budget", opts.Budget)
		sink.Emit(ctx, events.ContentTruncated, map[string]any{
			"original_chars":  content.OriginalChars,
			"truncated_chars": truncated,
		})
	}

	return content
}

// Tag renders the provenance line that precedes an artifact's text
func Tag(ref Ref) string {
	return fmt.Sprintf("[ARTIFACT: file=%q kind=%s id=%d]", ref.Label, ref.Kind, ref.ID)
}

// read loads one artifact and releases its handle before returning. When a cap
// is set only enough bytes to detect the overflow are read; original is then
// a lower bound.
func read(ref Ref, limit int) (text string, original int, err error) {
	rc, err := ref.Open()
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, int64(limit)*utf8.UTFMax+utf8.UTFMax)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}

	text = Decode(raw)
	return text, utf8.RuneCountInString(text), nil
}
