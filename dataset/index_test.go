package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datar-psa/goeqa/api"
)

func testQuestions() []api.Question {
	return []api.Question{
		{ID: "q1", Text: "What color is the sofa?", Category: "attribute recognition", EpisodeHistory: "hm3d-v0/000-hm3d-BFRyYbPCCPE"},
		{ID: "q2", Text: "Where is the kettle?", Category: "object localization", EpisodeHistory: "scannet-v0/002-scannet-scene0709_00"},
		{ID: "q3", Text: "Is the oven on?", Category: "object state recognition", EpisodeHistory: "hm3d-v0/853-hm3d-5cdEh9F2hJL"},
		{ID: "q4", Text: "How many chairs are there?", Category: "attribute recognition", EpisodeHistory: "scannet-v0/010-scannet-scene0025_00"},
		{ID: "q5", Text: "Can I sit by the window?", Category: "functional reasoning", EpisodeHistory: "scannet-v0/011-scannet-scene0030_00"},
		{ID: "q6", Text: "What is on the table?", Category: "object recognition", EpisodeHistory: "scannet-v0/012-scannet-scene0040_00"},
		{ID: "q7", Text: "Where did I leave my keys?", Category: "object localization", EpisodeHistory: "scannet-v0/013-scannet-scene0050_00"},
	}
}

func ids(questions []api.Question) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "open-eqa.json")
	payload := `[
  {"question_id": "q1", "question": "What color is the sofa?", "answer": "blue", "category": "attribute recognition", "episode_history": "hm3d-v0/000-hm3d-BFRyYbPCCPE"},
  {"question_id": "q2", "question": "Where is the kettle?", "category": "object localization", "episode_history": "scannet-v0/002-scannet-scene0709_00"}
]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	questions, err := Load(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "blue", questions[0].Answer)
	assert.Equal(t, "scannet-v0/002-scannet-scene0709_00", questions[1].EpisodeHistory)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "a list"}`), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestIndex_Lookup(t *testing.T) {
	idx, err := NewIndex(testQuestions())
	require.NoError(t, err)

	q, err := idx.Lookup("q2")
	require.NoError(t, err)
	assert.Equal(t, "Where is the kettle?", q.Text)

	_, err = idx.Lookup("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotFound), "error %v should match api.ErrNotFound", err)

	var nf *api.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ID)
}

func TestNewIndex_DuplicateID(t *testing.T) {
	questions := append(testQuestions(), api.Question{ID: "q1"})
	_, err := NewIndex(questions)
	assert.ErrorIs(t, err, ErrDuplicateQuestion)
}

func TestIndex_Exclusion(t *testing.T) {
	idx, err := NewIndex(testQuestions(),
		WithExcludedScenes("00853-5cdEh9F2hJL"),
		WithExcludedVariants("hm3d-v0"),
	)
	require.NoError(t, err)

	got := ids(idx.Select(SelectOptions{}))
	want := []string{"q2", "q4", "q5", "q6", "q7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}

	// Excluded questions stay resolvable.
	q, err := idx.Lookup("q3")
	require.NoError(t, err)
	assert.True(t, idx.Excluded(q))
}

func TestIndex_ExcludedSceneOnly(t *testing.T) {
	idx, err := NewIndex(testQuestions(), WithExcludedScenes("5cdEh9F2hJL"))
	require.NoError(t, err)

	got := ids(idx.Select(SelectOptions{}))
	want := []string{"q1", "q2", "q4", "q5", "q6", "q7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex_SelectSubset(t *testing.T) {
	idx, err := NewIndex(testQuestions())
	require.NoError(t, err)

	first := ids(idx.Select(SelectOptions{Subset: 3, Seed: 1234}))
	second := ids(idx.Select(SelectOptions{Subset: 3, Seed: 1234}))
	require.Len(t, first, 3)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different subsets (-first +second):\n%s", diff)
	}

	seen := map[string]bool{}
	for _, id := range first {
		assert.False(t, seen[id], "duplicate %s in subset", id)
		seen[id] = true
	}

	all := idx.Select(SelectOptions{Subset: 100, Seed: 1})
	assert.Len(t, all, len(testQuestions()))
}

func TestIndex_SelectLimit(t *testing.T) {
	idx, err := NewIndex(testQuestions())
	require.NoError(t, err)

	got := ids(idx.Select(SelectOptions{Limit: DryRunLimit}))
	want := []string{"q1", "q2", "q3", "q4", "q5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex_Pick(t *testing.T) {
	idx, err := NewIndex(testQuestions(), WithExcludedVariants("hm3d-v0"))
	require.NoError(t, err)

	picked, err := idx.Pick(context.Background(), []string{"q5", "nope", "q1", "q2", "q5", "q2"})
	require.NoError(t, err)
	want := []string{"q5", "q2"}
	if diff := cmp.Diff(want, ids(picked)); diff != "" {
		t.Errorf("Pick() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex_PickRejectsExcluded(t *testing.T) {
	idx, err := NewIndex(testQuestions(), WithExcludedVariants("hm3d-v0"), WithRejectExcluded(true))
	require.NoError(t, err)

	_, err = idx.Pick(context.Background(), []string{"q5", "q1"})
	assert.ErrorIs(t, err, ErrExcluded)

	picked, err := idx.Pick(context.Background(), []string{"q5", "q2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q5", "q2"}, ids(picked))

	// Select never rejects: excluded questions are simply not in the pool.
	assert.NotContains(t, ids(idx.Select(SelectOptions{})), "q1")
}
