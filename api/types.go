package api

import (
	"context"
	"strings"
)

// Question is a single benchmark item loaded from the dataset file.
type Question struct {
	ID       string `json:"question_id"`
	Text     string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Category string `json:"category"`
	// EpisodeHistory encodes the dataset variant and the scene,
	// e.g. "hm3d-v0/000-hm3d-BFRyYbPCCPE".
	EpisodeHistory string `json:"episode_history"`
}

// Variant returns the dataset variant segment of the episode history ("hm3d-v0").
func (q Question) Variant() string {
	variant, _, _ := strings.Cut(q.EpisodeHistory, "/")
	return variant
}

// SceneID returns the scene segment of the episode history, or "" when the
// history has no scene segment.
func (q Question) SceneID() string {
	parts := strings.Split(q.EpisodeHistory, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// SceneSuffix returns the text after the last '-' of the episode history.
// Scene exclusion lists are matched against it.
func (q Question) SceneSuffix() string {
	return SceneSuffix(q.EpisodeHistory)
}

// SceneSuffix normalizes a scene reference ("00853-5cdEh9F2hJL",
// "hm3d-v0/000-hm3d-5cdEh9F2hJL") to its trailing identifier ("5cdEh9F2hJL").
func SceneSuffix(ref string) string {
	if i := strings.LastIndex(ref, "-"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// AnswerRecord is one entry of the result artifact.
// Answer is nil for records written by tools that stored failed calls as null.
type AnswerRecord struct {
	QuestionID string  `json:"question_id"`
	Answer     *string `json:"answer"`
}

// NewAnswerRecord returns a record holding answer.
func NewAnswerRecord(questionID, answer string) AnswerRecord {
	return AnswerRecord{QuestionID: questionID, Answer: &answer}
}

// InferenceParams are the model parameters passed with every inference call.
type InferenceParams struct {
	Model       string
	Seed        int64
	Temperature float64
	MaxTokens   int
	// ImageSize is the longest side, in pixels, images are scaled to before upload.
	ImageSize int
}

// Answerer answers a question about an ordered list of images.
// Implementations are provided in the gpt and gemini subpackages.
type Answerer interface {
	// Answer returns the model's answer text or an error
	Answer(ctx context.Context, question string, images []string, params InferenceParams) (string, error)
}

// LLMGenerator is an interface for generating text using an LLM
// This interface must be implemented by library consumers
// Gemini and OpenAI implementations are provided in the gemini and gpt subpackages
type LLMGenerator interface {
	// Generate generates text based on the provided prompt
	// Returns the generated text or an error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Score represents the result of an evaluation
type Score struct {
	// Name identifies the scorer that produced this result
	Name string
	// Score is a value between 0 and 1, where 1 is the best possible score
	Score float64
	// Metadata contains additional information about the scoring process
	Metadata map[string]any
	// Error contains any error that occurred during scoring
	Error error
}

// ScoreInputs carries inputs for scoring across different scorers.
//
// Fields usage conventions:
// - Output:   the answer produced by the model under evaluation
// - Expected: the reference answer
// - Input:    the question given to the model
type ScoreInputs struct {
	Output   string
	Expected string
	Input    string
}

// Scorer evaluates the quality of an output
type Scorer interface {
	// Score evaluates the output and returns a score
	// in: container for output/expected/input depending on scorer needs
	Score(ctx context.Context, in ScoreInputs) Score
}
