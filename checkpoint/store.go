// Package checkpoint persists the growing list of answers of a batch run so
// an interrupted run can resume where it stopped.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/datar-psa/goeqa/api"
)

var (
	// ErrDuplicateAnswer is returned when appending an id that already has a record
	ErrDuplicateAnswer = errors.New("question already answered")
	// ErrCorruptCheckpoint is returned when an existing result file cannot be resumed from
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
)

// Store holds the answer records of a run and rewrites the result file after
// every append. It is safe for concurrent use; writes are serialized.
type Store struct {
	path string

	mu        sync.Mutex
	records   []api.AnswerRecord
	completed map[string]struct{}
}

// Open loads the result file at path if it exists, or starts an empty store.
// The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create result dir: %w", err)
	}

	s := &Store{
		path:      path,
		completed: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var records []api.AnswerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, path, err)
	}
	for i, rec := range records {
		if rec.QuestionID == "" {
			return nil, fmt.Errorf("%w: %s: record %d has no question_id", ErrCorruptCheckpoint, path, i)
		}
		if _, dup := s.completed[rec.QuestionID]; dup {
			return nil, fmt.Errorf("%w: %s: question %q appears twice", ErrCorruptCheckpoint, path, rec.QuestionID)
		}
		s.completed[rec.QuestionID] = struct{}{}
	}
	s.records = records
	return s, nil
}

// Path returns the result file location.
func (s *Store) Path() string {
	return s.path
}

// Completed reports whether id already has a record.
func (s *Store) Completed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completed[id]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the records in append order.
func (s *Store) Records() []api.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.AnswerRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Append adds rec and rewrites the whole result file before returning.
// The record only becomes visible once the write succeeded.
func (s *Store) Append(rec api.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.completed[rec.QuestionID]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateAnswer, rec.QuestionID)
	}

	next := make([]api.AnswerRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)
	if err := write(s.path, next); err != nil {
		return err
	}

	s.records = next
	s.completed[rec.QuestionID] = struct{}{}
	return nil
}

// write replaces path with records through a temp file and rename, so a crash
// mid-write leaves the previous file intact.
func write(path string, records []api.AnswerRecord) error {
	if records == nil {
		records = []api.AnswerRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", path, err)
	}
	return nil
}
