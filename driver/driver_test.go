package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/checkpoint"
	"github.com/datar-psa/goeqa/frames"
	"github.com/datar-psa/goeqa/internal/retry"
)

// fakeAnswerer answers "answer-<question>" and fails for configured questions.
type fakeAnswerer struct {
	mu     sync.Mutex
	calls  []string
	images map[string][]string
	fail   map[string]error
}

func newFakeAnswerer() *fakeAnswerer {
	return &fakeAnswerer{images: map[string][]string{}, fail: map[string]error{}}
}

func (f *fakeAnswerer) Answer(_ context.Context, question string, images []string, _ api.InferenceParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, question)
	f.images[question] = images
	if err, ok := f.fail[question]; ok {
		return "", err
	}
	return "answer-" + question, nil
}

func (f *fakeAnswerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	root       string
	resultPath string
	questions  []api.Question
}

// newFixture lays out two scenes with four frames each; scene "003-hm3d-missing"
// is referenced but absent.
func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	for _, scene := range []string{"001-hm3d-AAA", "002-hm3d-BBB"} {
		dir := filepath.Join(root, scene)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, frames.DefaultImageSubdir), 0o755))
		meta := `{"f3.png": {}, "f1.png": {}, "f2.png": {}, "f0.png": {}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, frames.DefaultMetadataFile), []byte(meta), 0o644))
	}
	return fixture{
		root:       root,
		resultPath: filepath.Join(t.TempDir(), "out", "run.json"),
		questions: []api.Question{
			{ID: "q1", Text: "what color is the sofa", EpisodeHistory: "hm3d-v0/001-hm3d-AAA"},
			{ID: "q2", Text: "where is the fridge", EpisodeHistory: "hm3d-v0/001-hm3d-AAA"},
			{ID: "q3", Text: "how many chairs", EpisodeHistory: "hm3d-v0/002-hm3d-BBB"},
			{ID: "q4", Text: "is the door open", EpisodeHistory: "hm3d-v0/003-hm3d-missing"},
		},
	}
}

func (f fixture) driver(t *testing.T, answerer api.Answerer, opts ...Option) (*Driver, *checkpoint.Store) {
	t.Helper()
	store, err := checkpoint.Open(f.resultPath)
	require.NoError(t, err)
	opts = append([]Option{WithRetry(retry.Disabled())}, opts...)
	return New(answerer, store, frames.NewResolver(f.root), opts...), store
}

func recordIDs(records []api.AnswerRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.QuestionID)
	}
	return ids
}

func TestRun_AnswersAndSkipsMissingAssets(t *testing.T) {
	f := newFixture(t)
	answerer := newFakeAnswerer()
	d, store := f.driver(t, answerer, WithFrameCount(2))

	summary, err := d.Run(context.Background(), f.questions)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Answered)
	assert.Equal(t, 1, summary.MissingAsset)
	assert.Equal(t, MissingAsset, summary.Results[3].Outcome)
	assert.ErrorIs(t, summary.Results[3].Err, api.ErrMissingAsset)

	if diff := cmp.Diff([]string{"q1", "q2", "q3"}, recordIDs(store.Records())); diff != "" {
		t.Errorf("persisted ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "answer-what color is the sofa", *store.Records()[0].Answer)

	wantFrames := []string{
		filepath.Join(f.root, "001-hm3d-AAA", "results", "f0.png"),
		filepath.Join(f.root, "001-hm3d-AAA", "results", "f1.png"),
	}
	if diff := cmp.Diff(wantFrames, answerer.images["what color is the sofa"]); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)

	d, _ := f.driver(t, newFakeAnswerer())
	_, err := d.Run(context.Background(), f.questions)
	require.NoError(t, err)
	before, err := os.ReadFile(f.resultPath)
	require.NoError(t, err)

	answerer := newFakeAnswerer()
	d, _ = f.driver(t, answerer)
	summary, err := d.Run(context.Background(), f.questions)
	require.NoError(t, err)

	assert.Equal(t, 0, answerer.callCount())
	assert.Equal(t, 3, summary.AlreadyDone)
	after, err := os.ReadFile(f.resultPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRun_ResumesAfterPartialRun(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.resultPath), 0o755))
	require.NoError(t, os.WriteFile(f.resultPath, []byte(`[{"question_id": "q1", "answer": "earlier"}]`), 0o644))

	answerer := newFakeAnswerer()
	d, store := f.driver(t, answerer)
	summary, err := d.Run(context.Background(), f.questions)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.AlreadyDone)
	assert.Equal(t, 2, summary.Answered)
	assert.Equal(t, 2, answerer.callCount())
	records := store.Records()
	if diff := cmp.Diff([]string{"q1", "q2", "q3"}, recordIDs(records)); diff != "" {
		t.Errorf("persisted ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "earlier", *records[0].Answer)
}

func TestRun_FailureStopsWithoutForce(t *testing.T) {
	f := newFixture(t)
	answerer := newFakeAnswerer()
	answerer.fail["where is the fridge"] = errors.New("400 bad request")
	d, store := f.driver(t, answerer)

	summary, err := d.Run(context.Background(), f.questions)
	require.Error(t, err)

	var ierr *api.InferenceError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "q2", ierr.QuestionID)
	assert.ErrorIs(t, err, api.ErrInference)

	assert.Equal(t, 1, summary.Answered)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Cancelled)
	assert.Equal(t, 2, answerer.callCount())

	// q1 was durably written before the failure.
	reopened, err := checkpoint.Open(f.resultPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, recordIDs(reopened.Records()))
	assert.Equal(t, 1, store.Len())
}

func TestRun_ForceContinuesAndLeavesFailureUnrecorded(t *testing.T) {
	f := newFixture(t)
	answerer := newFakeAnswerer()
	answerer.fail["where is the fridge"] = errors.New("400 bad request")
	d, store := f.driver(t, answerer, WithForce(true))

	summary, err := d.Run(context.Background(), f.questions)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Answered)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"q1", "q3"}, recordIDs(store.Records()))
	assert.False(t, store.Completed("q2"))

	// A later run retries only the failed question.
	delete(answerer.fail, "where is the fridge")
	d, store = f.driver(t, answerer, WithForce(true))
	summary, err = d.Run(context.Background(), f.questions)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Answered)
	assert.Equal(t, []string{"q1", "q3", "q2"}, recordIDs(store.Records()))
}

func TestRun_RetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyAnswerer{failures: 2}
	cfg := retry.Config{MaxRetries: 3}
	d, store := f.driver(t, flaky, WithRetry(cfg))

	_, err := d.Run(context.Background(), f.questions[:1])
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, 1, store.Len())
}

type flakyAnswerer struct {
	failures int
	calls    int
}

func (f *flakyAnswerer) Answer(context.Context, string, []string, api.InferenceParams) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", fmt.Errorf("503 service unavailable")
	}
	return "ok", nil
}

func TestRun_Workers(t *testing.T) {
	f := newFixture(t)
	var questions []api.Question
	for i := range 20 {
		questions = append(questions, api.Question{
			ID:             fmt.Sprintf("w%02d", i),
			Text:           fmt.Sprintf("question %d", i),
			EpisodeHistory: "hm3d-v0/002-hm3d-BBB",
		})
	}
	answerer := newFakeAnswerer()
	d, store := f.driver(t, answerer, WithWorkers(4))

	summary, err := d.Run(context.Background(), questions)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Answered)
	assert.Equal(t, 20, store.Len())
	assert.Equal(t, 20, answerer.callCount())
	for i, r := range summary.Results {
		assert.Equal(t, questions[i].ID, r.QuestionID, "results keep input order")
	}
}

func TestRun_RepeatedIDAnsweredOnce(t *testing.T) {
	f := newFixture(t)
	answerer := newFakeAnswerer()
	d, store := f.driver(t, answerer, WithWorkers(2), WithForce(true))

	questions := []api.Question{f.questions[0], f.questions[0], f.questions[1]}
	summary, err := d.Run(context.Background(), questions)
	require.NoError(t, err)

	assert.Equal(t, 2, answerer.callCount())
	assert.Equal(t, 2, summary.Answered)
	assert.Equal(t, 1, summary.AlreadyDone)
	assert.Equal(t, AlreadyDone, summary.Results[1].Outcome)
	assert.ElementsMatch(t, []string{"q1", "q2"}, recordIDs(store.Records()))
}

// racingStore never reports a question as completed, so every Append after
// the first sees a duplicate, as when two workers pass the check together.
type racingStore struct {
	*checkpoint.Store
}

func (racingStore) Completed(string) bool { return false }

func TestRun_DuplicateAppendIsAlreadyDone(t *testing.T) {
	f := newFixture(t)
	store, err := checkpoint.Open(f.resultPath)
	require.NoError(t, err)
	require.NoError(t, store.Append(api.NewAnswerRecord("q1", "earlier")))

	d := New(newFakeAnswerer(), racingStore{store}, frames.NewResolver(f.root), WithRetry(retry.Disabled()))
	summary, err := d.Run(context.Background(), f.questions[:1])
	require.NoError(t, err)

	assert.Equal(t, AlreadyDone, summary.Results[0].Outcome)
	assert.NoError(t, summary.Results[0].Err)
	assert.Equal(t, "earlier", *store.Records()[0].Answer)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	answerer := newFakeAnswerer()
	d, store := f.driver(t, answerer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := d.Run(ctx, f.questions)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, summary.Cancelled)
	assert.Equal(t, 0, answerer.callCount())
	assert.Equal(t, 0, store.Len())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "already_done", AlreadyDone.String())
	assert.Equal(t, "answered", Answered.String())
	assert.Equal(t, "missing_asset", MissingAsset.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
