// Package dataset loads benchmark questions and indexes them by id.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/chainguard-dev/clog"

	"github.com/datar-psa/goeqa/api"
)

// DryRunLimit caps the number of questions processed by a dry run
const DryRunLimit = 5

var (
	// ErrDuplicateQuestion is returned when two dataset records share a question id
	ErrDuplicateQuestion = errors.New("duplicate question id")
	// ErrExcluded is returned by Pick for an excluded id when WithRejectExcluded is set
	ErrExcluded = errors.New("question is excluded")
)

// Load reads an ordered JSON array of questions.
func Load(path string) ([]api.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var questions []api.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return questions, nil
}

// Index is an id -> Question lookup built once over the dataset.
// It keeps the dataset order for selection.
type Index struct {
	questions []api.Question
	byID      map[string]int

	excludedScenes   map[string]struct{}
	excludedVariants map[string]struct{}
	rejectExcluded   bool
}

// Option configures an Index
type Option func(*Index)

// WithExcludedScenes excludes questions whose scene matches one of scenes.
// Entries are matched on their suffix after the last '-', so both
// "00853-5cdEh9F2hJL" and "5cdEh9F2hJL" exclude the same scene.
func WithExcludedScenes(scenes ...string) Option {
	return func(idx *Index) {
		for _, s := range scenes {
			if s == "" {
				continue
			}
			idx.excludedScenes[api.SceneSuffix(s)] = struct{}{}
		}
	}
}

// WithExcludedVariants excludes questions from whole dataset variants (e.g. "hm3d-v0").
func WithExcludedVariants(variants ...string) Option {
	return func(idx *Index) {
		for _, v := range variants {
			if v == "" {
				continue
			}
			idx.excludedVariants[v] = struct{}{}
		}
	}
}

// WithRejectExcluded makes Pick fail on an explicitly requested excluded
// question instead of skipping it.
func WithRejectExcluded(reject bool) Option {
	return func(idx *Index) { idx.rejectExcluded = reject }
}

// NewIndex builds an Index over questions.
func NewIndex(questions []api.Question, opts ...Option) (*Index, error) {
	idx := &Index{
		questions:        questions,
		byID:             make(map[string]int, len(questions)),
		excludedScenes:   make(map[string]struct{}),
		excludedVariants: make(map[string]struct{}),
	}
	for i, q := range questions {
		if _, dup := idx.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateQuestion, q.ID)
		}
		idx.byID[q.ID] = i
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Len returns the number of indexed questions, excluded ones included.
func (idx *Index) Len() int {
	return len(idx.questions)
}

// Lookup returns the question with the given id.
// Excluded questions are still returned; the error for an unknown id
// matches api.ErrNotFound.
func (idx *Index) Lookup(id string) (api.Question, error) {
	i, ok := idx.byID[id]
	if !ok {
		return api.Question{}, &api.NotFoundError{Kind: "question", ID: id}
	}
	return idx.questions[i], nil
}

// Excluded reports whether q belongs to an excluded scene or variant.
func (idx *Index) Excluded(q api.Question) bool {
	if _, ok := idx.excludedVariants[q.Variant()]; ok {
		return true
	}
	_, ok := idx.excludedScenes[q.SceneSuffix()]
	return ok
}

// SelectOptions narrows the questions handed to a run.
type SelectOptions struct {
	// Subset, when positive, draws that many questions at random
	Subset int
	// Seed seeds the subset draw
	Seed int64
	// Limit, when positive, caps the number of questions returned
	Limit int
}

// Select returns the questions to process: dataset order without excluded
// questions, then an optional seeded random subset, then an optional cap.
func (idx *Index) Select(opts SelectOptions) []api.Question {
	pool := make([]api.Question, 0, len(idx.questions))
	for _, q := range idx.questions {
		if idx.Excluded(q) {
			continue
		}
		pool = append(pool, q)
	}

	if opts.Subset > 0 && opts.Subset < len(pool) {
		pool = sample(pool, opts.Subset, opts.Seed)
	}

	if opts.Limit > 0 && opts.Limit < len(pool) {
		pool = pool[:opts.Limit]
	}
	return pool
}

// Pick resolves an explicit list of ids in the given order. Unknown and
// repeated ids are logged and skipped. Excluded questions are skipped as in
// Select, or rejected with ErrExcluded under WithRejectExcluded.
func (idx *Index) Pick(ctx context.Context, ids []string) ([]api.Question, error) {
	log := clog.FromContext(ctx)
	picked := make([]api.Question, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			log.With("question_id", id).Warn("skipping repeated id")
			continue
		}
		seen[id] = struct{}{}
		q, err := idx.Lookup(id)
		if err != nil {
			log.With("question_id", id).Warnf("skipping: %v", err)
			continue
		}
		if idx.Excluded(q) {
			if idx.rejectExcluded {
				return nil, fmt.Errorf("%w: %q", ErrExcluded, id)
			}
			log.With("question_id", id).Warn("skipping excluded question")
			continue
		}
		picked = append(picked, q)
	}
	return picked, nil
}

// sample draws k questions without replacement, in draw order.
// The same seed always yields the same subset.
func sample(pool []api.Question, k int, seed int64) []api.Question {
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	shuffled := make([]api.Question, len(pool))
	copy(shuffled, pool)
	// Partial Fisher-Yates: only the first k positions are needed.
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:k]
}
