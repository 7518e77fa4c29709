package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/natefinch/atomic"
)

// Scores maps question ids to raw Likert scores and remembers the order in
// which ids were first added. That order drives category report order.
type Scores struct {
	ids    []string
	values map[string]float64
}

// NewScores returns an empty Scores.
func NewScores() *Scores {
	return &Scores{values: make(map[string]float64)}
}

// Set stores v for id. A new id goes to the end of the order.
func (s *Scores) Set(id string, v float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	if _, ok := s.values[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.values[id] = v
}

// Get returns the score of id.
func (s *Scores) Get(id string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.values[id]
	return v, ok
}

// Has reports whether id has a score.
func (s *Scores) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// IDs returns the ids in insertion order.
func (s *Scores) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of scored ids.
func (s *Scores) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// MarshalJSON writes the scores as a JSON object in insertion order.
// Non-numeric entries are written as null.
func (s *Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := s.values[id]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of id -> score, keeping file order.
// Values that are not numbers are kept as NaN so aggregation can report them
// per question instead of rejecting the whole file.
func (s *Scores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("scores must be a JSON object")
	}

	out := NewScores()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("score of %q: %w", id, err)
		}
		if out.Has(id) {
			return fmt.Errorf("question %q scored twice", id)
		}
		out.Set(id, parseScore(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = *out
	return nil
}

func parseScore(raw json.RawMessage) float64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return math.NaN()
	}
	v, err := n.Float64()
	if err != nil {
		return math.NaN()
	}
	return v
}

// LoadScores reads a metrics file written by the judge.
func LoadScores(path string) (*Scores, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	s := NewScores()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scores %s: %w", path, err)
	}
	return s, nil
}

// SaveScores replaces the file at path with s through a temp file and rename.
func SaveScores(path string, s *Scores) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write scores %s: %w", path, err)
	}
	return nil
}

// PathLengths maps question ids to navigation path lengths.
type PathLengths map[string]float64

// LoadPathLengths reads a JSON object of id -> path length.
func LoadPathLengths(path string) (PathLengths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read path lengths: %w", err)
	}
	var pl PathLengths
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("parse path lengths %s: %w", path, err)
	}
	return pl, nil
}
