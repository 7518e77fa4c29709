package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/heuristic"
)

// Questions resolves question ids to their dataset entries.
type Questions interface {
	Lookup(id string) (api.Question, error)
	Excluded(q api.Question) bool
}

// Inputs are the static lookups shared by every aggregation pass.
type Inputs struct {
	Questions Questions
	// GroundTruth holds the shortest path length per question. Nil disables SPL.
	GroundTruth PathLengths
}

// Run is the output of one evaluated run: judge scores and the path lengths
// the agent travelled. PathLengths may be nil when SPL is not computed.
type Run struct {
	Scores      *Scores
	PathLengths PathLengths
}

// Options tune an aggregation pass.
type Options struct {
	// Limit caps the number of aggregated questions. 0 means no cap.
	Limit int
}

type aggregator struct {
	in      Inputs
	withSPL bool
	opts    Options
	buckets *Buckets
	skipped []Skip
}

func newAggregator(in Inputs, withSPL bool, opts Options) *aggregator {
	return &aggregator{
		in:      in,
		withSPL: withSPL,
		opts:    opts,
		buckets: NewBuckets(),
	}
}

func (a *aggregator) full() bool {
	return a.opts.Limit > 0 && a.buckets.Len() >= a.opts.Limit
}

func (a *aggregator) skip(ctx context.Context, id string, err error) {
	clog.FromContext(ctx).With("question_id", id).Warnf("Skipping question: %v", err)
	a.skipped = append(a.skipped, Skip{QuestionID: id, Reason: err.Error()})
}

// add scores one question; observed is ignored when SPL is disabled.
func (a *aggregator) add(q api.Question, raw float64, observed PathLengths) error {
	normalized, err := heuristic.NormalizeLikert(raw)
	if err != nil {
		return err
	}
	e := Entry{QuestionID: q.ID, Normalized: normalized, SPL: 1}
	if a.withSPL {
		gt, ok := a.in.GroundTruth[q.ID]
		if !ok {
			return &api.NotFoundError{Kind: "ground truth path length", ID: q.ID}
		}
		pl, ok := observed[q.ID]
		if !ok {
			return &api.NotFoundError{Kind: "path length", ID: q.ID}
		}
		if e.SPL, err = heuristic.SPL(pl, gt); err != nil {
			return err
		}
	}
	a.buckets.Add(q.Category, e)
	return nil
}

func (a *aggregator) summary() Summary {
	s := a.buckets.Summarize(a.withSPL)
	s.Skipped = a.skipped
	return s
}

// Aggregate scores a single run in score-file order. SPL is computed when
// both ground truth and the run's path lengths are present. Questions in an
// excluded scene are left out silently.
func Aggregate(ctx context.Context, in Inputs, run Run, opts Options) (Summary, error) {
	if in.Questions == nil || run.Scores == nil {
		return Summary{}, errors.New("aggregate: questions and scores are required")
	}
	a := newAggregator(in, in.GroundTruth != nil && run.PathLengths != nil, opts)

	for _, id := range run.Scores.IDs() {
		if a.full() {
			break
		}
		q, err := in.Questions.Lookup(id)
		if err != nil {
			a.skip(ctx, id, err)
			continue
		}
		if in.Questions.Excluded(q) {
			continue
		}
		raw, _ := run.Scores.Get(id)
		if err := a.add(q, raw, run.PathLengths); err != nil {
			a.skip(ctx, id, err)
		}
	}
	return a.summary(), nil
}

// Merge scores every question of the baseline run. When current has a score
// for the question, current's score and path length replace the baseline's.
// Questions scored only by current are ignored. Excluded scenes are skipped
// silently.
func Merge(ctx context.Context, in Inputs, baseline, current Run, opts Options) (Summary, error) {
	if in.Questions == nil || baseline.Scores == nil {
		return Summary{}, errors.New("merge: questions and baseline scores are required")
	}
	a := newAggregator(in, in.GroundTruth != nil && baseline.PathLengths != nil, opts)

	for _, id := range baseline.Scores.IDs() {
		if a.full() {
			break
		}
		q, err := in.Questions.Lookup(id)
		if err != nil {
			a.skip(ctx, id, err)
			continue
		}
		if in.Questions.Excluded(q) {
			continue
		}

		raw, _ := baseline.Scores.Get(id)
		observed := baseline.PathLengths
		if override, ok := current.Scores.Get(id); ok {
			raw, observed = override, current.PathLengths
			if a.withSPL && observed == nil {
				a.skip(ctx, id, fmt.Errorf("current run has no path lengths for overridden question %s", id))
				continue
			}
		}
		if err := a.add(q, raw, observed); err != nil {
			a.skip(ctx, id, err)
		}
	}
	return a.summary(), nil
}
