package state

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

const (
	ProcessedFile = "processed_files.txt"
	HistoryFile   = "rotation_history.txt"
)

// FileStore keeps state as two newline-delimited identifier lists in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created on
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) processedPath() string { return filepath.Join(f.Dir, ProcessedFile) }
func (f *FileStore) historyPath() string   { return filepath.Join(f.Dir, HistoryFile) }

// Load reads both lists. A corrupt file yields an empty state together with
// an error wrapping ErrStateCorrupt.
func (f *FileStore) Load(ctx context.Context, memory int) (*model.SelectionState, error) {
	processed, err := readLines(f.processedPath())
	if err != nil {
		return model.NewSelectionState(), fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	history, err := readLines(f.historyPath())
	if err != nil {
		return model.NewSelectionState(), fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}

	st := model.Snapshot{Processed: processed, History: history}.State()
	st.Trim(memory)
	return st, nil
}

// Save writes both lists, each via write-to-temp-then-rename. Processed is
// written first so a crash between the renames still leaves Processed ⊇ History.
func (f *FileStore) Save(ctx context.Context, st *model.SelectionState) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := WriteFileAtomic(f.processedPath(), joinLines(st.ProcessedList())); err != nil {
		return fmt.Errorf("write processed: %w", err)
	}
	if err := WriteFileAtomic(f.historyPath(), joinLines(st.History)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func readLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !utf8.Valid(b) || bytes.IndexByte(b, 0) >= 0 {
		return nil, fmt.Errorf("%s: not a text identifier list", filepath.Base(path))
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}

func joinLines(ids []string) []byte {
	if len(ids) == 0 {
		return nil
	}
	return []byte(strings.Join(ids, "\n") + "\n")
}

// WriteFileAtomic writes data to a temp file beside path, syncs it and renames
// it over path so readers never observe a partial write.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return err
	}
	return os.Rename(name, path)
}
