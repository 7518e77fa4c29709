// Package driver runs a batch of questions through an answering backend and
// checkpoints every answer as soon as it is produced.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/checkpoint"
	"github.com/datar-psa/goeqa/frames"
	"github.com/datar-psa/goeqa/internal/retry"
	"github.com/datar-psa/goeqa/metrics"
)

const (
	// DefaultFrameCount is the number of frames sent with each question
	DefaultFrameCount = 15
	// DefaultImageSize is the longest image side, in pixels, sent to the backend
	DefaultImageSize = 512
)

// ErrPersist is matched by failures to write the result file. They stop the
// run even in force mode.
var ErrPersist = errors.New("persist answer")

// DefaultParams are the inference parameters used unless overridden.
func DefaultParams() api.InferenceParams {
	return api.InferenceParams{
		Model:       "gpt-4o",
		Seed:        1234,
		Temperature: 0.2,
		MaxTokens:   128,
		ImageSize:   DefaultImageSize,
	}
}

// Store is the durable answer list a run appends to.
type Store interface {
	Completed(id string) bool
	Append(rec api.AnswerRecord) error
}

// SceneResolver locates the frames of a scene.
type SceneResolver interface {
	Resolve(sceneID string) (*frames.Scene, error)
}

// Driver answers questions one by one (or with a bounded pool) and appends
// each answer to its Store.
type Driver struct {
	answerer api.Answerer
	store    Store
	resolver SceneResolver

	frameCount  int
	params      api.InferenceParams
	force       bool
	workers     int
	retry       retry.Config
	isRetryable retry.Classifier
	metrics     *metrics.Run
}

// Option configures a Driver.
type Option func(*Driver)

// WithFrameCount sets how many frames are sent per question. n <= 0 sends all.
func WithFrameCount(n int) Option {
	return func(d *Driver) { d.frameCount = n }
}

// WithParams sets the inference parameters.
func WithParams(p api.InferenceParams) Option {
	return func(d *Driver) { d.params = p }
}

// WithForce keeps the run going after an inference failure. The failed
// question gets no record, so a later run retries it.
func WithForce(force bool) Option {
	return func(d *Driver) { d.force = force }
}

// WithWorkers sets the number of questions answered concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRetry sets the backoff policy around each backend call.
func WithRetry(cfg retry.Config) Option {
	return func(d *Driver) { d.retry = cfg }
}

// WithRetryClassifier sets which backend errors are retried.
func WithRetryClassifier(c retry.Classifier) Option {
	return func(d *Driver) { d.isRetryable = c }
}

// WithMetrics records outcomes and latency on m.
func WithMetrics(m *metrics.Run) Option {
	return func(d *Driver) { d.metrics = m }
}

// New returns a Driver with default settings adjusted by opts.
func New(answerer api.Answerer, store Store, resolver SceneResolver, opts ...Option) *Driver {
	d := &Driver{
		answerer:    answerer,
		store:       store,
		resolver:    resolver,
		frameCount:  DefaultFrameCount,
		params:      DefaultParams(),
		workers:     1,
		retry:       retry.DefaultConfig(),
		isRetryable: retry.IsTransient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes questions in order. With one worker the dataset order is the
// answer order; with more, answers are appended as they complete.
//
// Without force, the first inference failure cancels the remaining questions
// and is returned as an *api.InferenceError. Answers persisted before the
// failure stay on disk. A repeated question id is answered once; its later
// occurrences report AlreadyDone.
func (d *Driver) Run(ctx context.Context, questions []api.Question) (Summary, error) {
	results := make([]Result, len(questions))
	seen := make(map[string]struct{}, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, q := range questions {
		if _, dup := seen[q.ID]; dup {
			clog.FromContext(ctx).With("question_id", q.ID).Warn("Skipping repeated question")
			results[i] = Result{QuestionID: q.ID, Outcome: AlreadyDone}
			continue
		}
		seen[q.ID] = struct{}{}
		if gctx.Err() != nil {
			results[i] = Result{QuestionID: q.ID, Outcome: Cancelled, Err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{QuestionID: q.ID, Outcome: Cancelled, Err: gctx.Err()}
				return nil
			}
			r := d.process(gctx, q)
			results[i] = r
			d.metrics.RecordOutcome(gctx, d.params.Model, r.Outcome.String())
			if r.Outcome == Failed && (!d.force || errors.Is(r.Err, ErrPersist)) {
				return r.Err
			}
			return nil
		})
	}
	err := g.Wait()

	summary := summarize(results)
	clog.FromContext(ctx).With("answered", summary.Answered).
		With("already_done", summary.AlreadyDone).
		With("missing_asset", summary.MissingAsset).
		With("failed", summary.Failed).
		With("cancelled", summary.Cancelled).
		Info("Inference run finished")

	if err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

func (d *Driver) process(ctx context.Context, q api.Question) Result {
	log := clog.FromContext(ctx).With("question_id", q.ID)

	if d.store.Completed(q.ID) {
		return Result{QuestionID: q.ID, Outcome: AlreadyDone}
	}

	scene, err := d.resolver.Resolve(q.SceneID())
	if err != nil {
		if errors.Is(err, api.ErrMissingAsset) {
			log.With("scene", q.SceneID()).Warnf("Skipping question: %v", err)
			return Result{QuestionID: q.ID, Outcome: MissingAsset, Err: err}
		}
		log.With("scene", q.SceneID()).Errorf("Resolving scene: %v", err)
		return Result{QuestionID: q.ID, Outcome: Failed, Err: fmt.Errorf("resolve scene of %s: %w", q.ID, err)}
	}
	images := scene.Frames(d.frameCount)

	start := time.Now()
	answer, err := retry.Do(ctx, d.retry, "answer "+q.ID, d.isRetryable, func(ctx context.Context) (string, error) {
		return d.answerer.Answer(ctx, q.Text, images, d.params)
	})
	d.metrics.RecordLatency(ctx, d.params.Model, time.Since(start), err != nil)
	if err != nil {
		if ctx.Err() != nil {
			return Result{QuestionID: q.ID, Outcome: Cancelled, Err: ctx.Err()}
		}
		ierr := &api.InferenceError{QuestionID: q.ID, Err: err}
		if d.force {
			log.Warnf("Inference failed, continuing: %v", err)
		}
		return Result{QuestionID: q.ID, Outcome: Failed, Err: ierr}
	}

	if err := d.store.Append(api.NewAnswerRecord(q.ID, answer)); err != nil {
		if errors.Is(err, checkpoint.ErrDuplicateAnswer) {
			log.Warn("Answer already recorded, keeping the stored one")
			return Result{QuestionID: q.ID, Outcome: AlreadyDone}
		}
		return Result{QuestionID: q.ID, Outcome: Failed, Err: fmt.Errorf("%w %s: %w", ErrPersist, q.ID, err)}
	}
	log.With("frames", len(images)).Infof("Answered: %s", answer)
	return Result{QuestionID: q.ID, Outcome: Answered, Answer: answer}
}
