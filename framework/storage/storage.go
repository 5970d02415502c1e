// Package storage keeps artifact files, snapshots and rendered reports on the
// local filesystem. Paths handed to callers are relative to the root so they
// survive a moved storage directory.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
)

// Directory names under the storage root
const (
	ArtifactsDir = "artifacts"
	ReportsDir   = "reports"
	SnapshotsDir = "grafana_snapshots"
)

const maxNameLength = 200

// Storage is a filesystem artifact store rooted at a directory
type Storage struct {
	root string
}

// New creates a storage rooted at dir, creating the layout directories
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", dir, err)
	}
	for _, sub := range []string{ArtifactsDir, ReportsDir, SnapshotsDir} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute storage root
func (s *Storage) Root() string {
	return s.root
}

// TestDir returns the relative artifact directory of a test
func TestDir(testID int64) string {
	return filepath.Join(ArtifactsDir, strconv.FormatInt(testID, 10))
}

// SnapshotDir returns the relative dashboard snapshot directory of a test
func SnapshotDir(testID int64) string {
	return filepath.Join(SnapshotsDir, strconv.FormatInt(testID, 10))
}

// ReportPath returns the relative path of a rendered report file
func ReportPath(testID int64, ext string) string {
	return filepath.Join(ReportsDir, fmt.Sprintf("test_%d_report%s", testID, ext))
}

// Resolve turns a stored path into an absolute one. Absolute paths are
// returned unchanged.
func (s *Storage) Resolve(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.root, rel)
}

// Exists reports whether a stored path points at a regular file
func (s *Storage) Exists(rel string) bool {
	if rel == "" {
		return false
	}
	info, err := os.Stat(s.Resolve(rel))
	return err == nil && info.Mode().IsRegular()
}

// Write stores content at a relative path, creating parent directories
func (s *Storage) Write(rel string, content []byte) error {
	abs := s.Resolve(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// SaveCustom stores an engineer-provided artifact under the test directory.
// An empty name gets a generated one. It returns the relative path and the
// metadata to record with the artifact.
func (s *Storage) SaveCustom(testID int64, kind artifact.Kind, name string, content io.Reader) (string, map[string]any, error) {
	if !kind.IsCustom() {
		return "", nil, fmt.Errorf("kind %s cannot be uploaded", kind)
	}
	base := name
	if strings.TrimSpace(base) == "" {
		base = fmt.Sprintf("%s_%s", kind, uuid.NewString()[:8])
	}
	rel := filepath.Join(TestDir(testID), SanitizeName(base)+ExtensionFor(kind))

	abs := s.Resolve(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create test directory: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create %s: %w", rel, err)
	}
	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(abs)
		return "", nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}

	meta := map[string]any{
		"kind": string(kind),
		"size": n,
	}
	if name != "" {
		meta["original_name"] = name
	}
	return rel, meta, nil
}

// ListTest returns the relative paths of all files stored for a test
func (s *Storage) ListTest(testID int64) ([]string, error) {
	var files []string
	for _, dir := range []string{TestDir(testID), SnapshotDir(testID)} {
		err := filepath.WalkDir(s.Resolve(dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return fs.SkipDir
				}
				return err
			}
			if d.Type().IsRegular() {
				rel, err := filepath.Rel(s.root, path)
				if err != nil {
					return err
				}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
	}
	return files, nil
}

// DeleteTest removes every file stored for a test, including its reports
func (s *Storage) DeleteTest(testID int64) error {
	for _, dir := range []string{TestDir(testID), SnapshotDir(testID)} {
		if err := os.RemoveAll(s.Resolve(dir)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	for _, ext := range []string{".txt", ".pdf"} {
		if err := os.Remove(s.Resolve(ReportPath(testID, ext))); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ExtensionFor returns the file extension used for a custom artifact kind
func ExtensionFor(kind artifact.Kind) string {
	switch kind {
	case artifact.KindCustomJavaLog, artifact.KindCustomGC:
		return ".log"
	case artifact.KindCustomThreadDump, artifact.KindCustomJVMOpts:
		return ".txt"
	case artifact.KindCustomHeapDump:
		return ".hprof"
	case artifact.KindCustomJFR:
		return ".jfr"
	default:
		return ".bin"
	}
}

// SanitizeName keeps letters, digits, '.', '-' and '_' and replaces
// everything else with '_'
func SanitizeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		n++
	}
	out := b.String()
	if out == "" || strings.Trim(out, ".") == "" {
		return "artifact"
	}
	return out
}
