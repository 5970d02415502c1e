package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind tags where an artifact came from
type Kind string

// Artifact kinds
const (
	KindGrafanaSlice     Kind = "grafana_slice"
	KindK8sPods          Kind = "k8s_pods"
	KindK8sLogs          Kind = "k8s_logs"
	KindCustomJavaLog    Kind = "custom_java_log"
	KindCustomGC         Kind = "custom_gc"
	KindCustomThreadDump Kind = "custom_thread_dump"
	KindCustomHeapDump   Kind = "custom_heap_dump"
	KindCustomJVMOpts    Kind = "custom_jvm_opts"
	KindCustomJFR        Kind = "custom_jfr"
	KindCustomOther      Kind = "custom_other"
)

// CustomKinds lists the kinds an operator may upload by hand
var CustomKinds = []Kind{
	KindCustomJavaLog,
	KindCustomGC,
	KindCustomThreadDump,
	KindCustomHeapDump,
	KindCustomJVMOpts,
	KindCustomJFR,
	KindCustomOther,
}

// ParseKind validates a kind string
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	switch k {
	case KindGrafanaSlice, KindK8sPods, KindK8sLogs:
		return k, nil
	}
	for _, c := range CustomKinds {
		if k == c {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", s)
}

// IsCustom reports whether k is an operator-uploaded kind
func (k Kind) IsCustom() bool {
	return strings.HasPrefix(string(k), "custom_")
}

// Ref is one artifact handed to the aggregator. It is immutable; the content
// is only opened while it is being read.
type Ref struct {
	ID    int64
	Label string
	Kind  Kind

	open func() (io.ReadCloser, error)
}

// New creates a Ref whose content is produced by open
func New(id int64, label string, kind Kind, open func() (io.ReadCloser, error)) Ref {
	return Ref{ID: id, Label: label, Kind: kind, open: open}
}

// FromBytes creates a Ref over in-memory content
func FromBytes(id int64, label string, kind Kind, data []byte) Ref {
	return New(id, label, kind, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// FromFile creates a Ref over a file on disk. The label falls back to the
// file's base name when displayName is empty.
func FromFile(id int64, displayName string, kind Kind, path string) Ref {
	return New(id, LabelFor(id, displayName, path, kind), kind, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Open opens the artifact content. The caller must close it.
func (r Ref) Open() (io.ReadCloser, error) {
	if r.open == nil {
		return nil, fmt.Errorf("artifact %d has no content", r.ID)
	}
	return r.open()
}

// LabelFor picks the provenance label of an artifact: the display name, else
// the file's base name, else "<kind>_<id>".
func LabelFor(id int64, displayName, path string, kind Kind) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	if path != "" {
		if base := filepath.Base(path); base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	return fmt.Sprintf("%s_%d", kind, id)
}

// ReadError reports an artifact whose content could not be read
type ReadError struct {
	ID    int64
	Label string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("artifact %d (%s): %v", e.ID, e.Label, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
