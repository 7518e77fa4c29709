package llmjudge

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/datar-psa/goeqa/aggregate"
	"github.com/datar-psa/goeqa/api"
)

// Questions resolves question ids to dataset entries.
type Questions interface {
	Lookup(id string) (api.Question, error)
}

// BatchOptions configures ScoreAnswers.
type BatchOptions struct {
	// Workers bounds concurrent judge calls; values below 1 mean 1
	Workers int
	// Persist is called with the full score map after every new score.
	// A Persist error stops the batch.
	Persist func(*aggregate.Scores) error
}

// BatchResult counts what ScoreAnswers did.
type BatchResult struct {
	Scored        int
	AlreadyScored int
	NoAnswer      int
	Failed        int
}

// ScoreAnswers grades every answer that has no score in scores yet and adds
// the raw 1 to 5 grade to scores. Null answers and judge failures are logged
// and skipped; they stay unscored so a later call retries them.
func ScoreAnswers(ctx context.Context, scorer api.Scorer, questions Questions, answers []api.AnswerRecord, scores *aggregate.Scores, opts BatchOptions) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
	)
	workers := max(opts.Workers, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rec := range answers {
		if gctx.Err() != nil {
			break
		}
		log := clog.FromContext(ctx).With("question_id", rec.QuestionID)

		q, ok := prepare(log, rec, questions, scores, &mu, &result)
		if !ok {
			continue
		}

		answer := *rec.Answer
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s := scorer.Score(gctx, api.ScoreInputs{Input: q.Text, Expected: q.Answer, Output: answer})

			mu.Lock()
			defer mu.Unlock()
			if s.Error != nil {
				log.Warnf("Scoring failed: %v", s.Error)
				result.Failed++
				return nil
			}
			raw, ok := s.Metadata["raw_score"].(int)
			if !ok {
				log.Warnf("Scorer %s reported no raw_score", s.Name)
				result.Failed++
				return nil
			}
			scores.Set(rec.QuestionID, float64(raw))
			result.Scored++
			if opts.Persist != nil {
				if err := opts.Persist(scores); err != nil {
					return fmt.Errorf("persist scores: %w", err)
				}
			}
			log.With("score", raw).Info("Scored answer")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, ctx.Err()
}

// prepare reports whether rec still needs a score and counts it otherwise.
func prepare(log *clog.Logger, rec api.AnswerRecord, questions Questions, scores *aggregate.Scores, mu *sync.Mutex, result *BatchResult) (api.Question, bool) {
	mu.Lock()
	defer mu.Unlock()

	if scores.Has(rec.QuestionID) {
		result.AlreadyScored++
		return api.Question{}, false
	}
	if rec.Answer == nil {
		log.Warn("Skipping question without an answer")
		result.NoAnswer++
		return api.Question{}, false
	}
	q, err := questions.Lookup(rec.QuestionID)
	if err != nil {
		log.Warnf("Skipping question: %v", err)
		result.Failed++
		return api.Question{}, false
	}
	return q, true
}
