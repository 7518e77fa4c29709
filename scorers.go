package goeqa

import (
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/gemini"
	"github.com/datar-psa/goeqa/gpt"
	"github.com/datar-psa/goeqa/heuristic"
	"github.com/datar-psa/goeqa/llmjudge"
	"github.com/datar-psa/goeqa/metrics"
)

type Score = api.Score
type ScoreInputs = api.ScoreInputs
type Scorer = api.Scorer

// LLMJudge wraps an LLM generator and exposes convenient constructors for LLM-as-a-judge scorers.
type LLMJudge struct {
	llm api.LLMGenerator
}

// LLMJudgeOptions configures LLMJudge creation
type LLMJudgeOptions struct {
	llm api.LLMGenerator
}

// WithLLMGenerator sets the LLM generator for the judge
func WithLLMGenerator(llm api.LLMGenerator) func(*LLMJudgeOptions) {
	return func(opts *LLMJudgeOptions) {
		opts.llm = llm
	}
}

// NewLLMJudge creates a new Judge wrapper using functional options.
func NewLLMJudge(opts ...func(*LLMJudgeOptions)) *LLMJudge {
	options := &LLMJudgeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &LLMJudge{llm: options.llm}
}

// BackendOptions selects the client, model and metrics of a provider backed helper.
type BackendOptions struct {
	genaiClient  *genai.Client
	openaiClient *openai.Client
	modelName    string
	metrics      *metrics.Run
}

// WithGenaiClient sets the Gemini client
func WithGenaiClient(client *genai.Client) func(*BackendOptions) {
	return func(opts *BackendOptions) {
		opts.genaiClient = client
	}
}

// WithOpenAIClient sets the OpenAI client
func WithOpenAIClient(client openai.Client) func(*BackendOptions) {
	return func(opts *BackendOptions) {
		opts.openaiClient = &client
	}
}

// WithModelName sets the model name used by judges
func WithModelName(modelName string) func(*BackendOptions) {
	return func(opts *BackendOptions) {
		opts.modelName = modelName
	}
}

// WithMetrics records token usage of answerers on m
func WithMetrics(m *metrics.Run) func(*BackendOptions) {
	return func(opts *BackendOptions) {
		opts.metrics = m
	}
}

func backendOptions(opts []func(*BackendOptions)) *BackendOptions {
	options := &BackendOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// NewGeminiLLMJudge creates a Judge using Gemini client and model name.
// Example model: "publishers/google/models/gemini-2.5-flash".
func NewGeminiLLMJudge(opts ...func(*BackendOptions)) *LLMJudge {
	options := backendOptions(opts)
	if options.genaiClient == nil || options.modelName == "" {
		return NewLLMJudge()
	}
	return NewLLMJudge(WithLLMGenerator(gemini.NewGenerator(options.genaiClient, options.modelName)))
}

// NewOpenAILLMJudge creates a Judge using an OpenAI client and model name.
// Example model: "gpt-4o-mini".
func NewOpenAILLMJudge(opts ...func(*BackendOptions)) *LLMJudge {
	options := backendOptions(opts)
	if options.openaiClient == nil || options.modelName == "" {
		return NewLLMJudge()
	}
	return NewLLMJudge(WithLLMGenerator(gpt.NewGenerator(*options.openaiClient, options.modelName)))
}

type MatchOptions = llmjudge.MatchOptions

// Match returns a scorer that grades Output against Expected on a 1 to 5 scale.
func (j *LLMJudge) Match(opts MatchOptions) api.Scorer {
	return llmjudge.Match(j.llm, opts)
}

// NewGeminiAnswerer returns an Answerer backed by a multimodal Gemini model.
// It returns nil without a client.
func NewGeminiAnswerer(opts ...func(*BackendOptions)) api.Answerer {
	options := backendOptions(opts)
	if options.genaiClient == nil {
		return nil
	}
	return gemini.NewAnswerer(options.genaiClient, options.metrics)
}

// NewOpenAIAnswerer returns an Answerer backed by an OpenAI vision model.
// It returns nil without a client.
func NewOpenAIAnswerer(opts ...func(*BackendOptions)) api.Answerer {
	options := backendOptions(opts)
	if options.openaiClient == nil {
		return nil
	}
	return gpt.NewAnswerer(*options.openaiClient, options.metrics)
}

// Heuristic exposes the score normalization helpers.
type Heuristic struct{}

// NewHeuristic creates a new Heuristic.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// NormalizeLikert maps a 1 to 5 grade to [0, 100].
func (h *Heuristic) NormalizeLikert(raw float64) (float64, error) {
	return heuristic.NormalizeLikert(raw)
}

// SPL returns the path efficiency coefficient of an observed path.
func (h *Heuristic) SPL(observed, groundTruth float64) (float64, error) {
	return heuristic.SPL(observed, groundTruth)
}
