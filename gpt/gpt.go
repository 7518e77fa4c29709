// Package gpt implements the answering and text generation interfaces on
// top of the OpenAI chat completions API.
package gpt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/internal/imageprep"
	"github.com/datar-psa/goeqa/internal/retry"
	"github.com/datar-psa/goeqa/metrics"
	"github.com/datar-psa/goeqa/prompt"
)

// NewClient returns an OpenAI client for apiKey. The client's own retries
// are disabled; callers wrap calls with internal/retry instead.
func NewClient(apiKey string, opts ...option.RequestOption) openai.Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return openai.NewClient(opts...)
}

// Answerer answers questions about images with a vision capable chat model.
type Answerer struct {
	client  openai.Client
	metrics *metrics.Run
}

// NewAnswerer creates an Answerer. m may be nil.
func NewAnswerer(client openai.Client, m *metrics.Run) *Answerer {
	return &Answerer{client: client, metrics: m}
}

// Answer implements api.Answerer. Images are scaled to params.ImageSize and
// sent between the prompt instructions and the user query.
func (a *Answerer) Answer(ctx context.Context, question string, images []string, params api.InferenceParams) (string, error) {
	prefix, suffix := prompt.Answer(question)

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+2)
	parts = append(parts, openai.TextContentPart(prefix))
	for _, path := range images {
		url, err := imageprep.DataURL(path, params.ImageSize)
		if err != nil {
			return "", err
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    url,
			Detail: "auto",
		}))
	}
	parts = append(parts, openai.TextContentPart(suffix))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(params.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		Seed:        openai.Int(params.Seed),
		Temperature: openai.Float(params.Temperature),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	a.metrics.RecordTokens(ctx, params.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return firstChoice(resp)
}

// Generator implements api.LLMGenerator with a text-only chat model.
type Generator struct {
	client    openai.Client
	modelName string
}

// NewGenerator creates a new OpenAI generator
// modelName: the model to use (e.g., "gpt-4o-mini")
func NewGenerator(client openai.Client, modelName string) *Generator {
	return &Generator{client: client, modelName: modelName}
}

// Generate implements LLMGenerator.Generate
func (g *Generator) Generate(ctx context.Context, text string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.modelName),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(text)},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return firstChoice(resp)
}

func firstChoice(resp *openai.ChatCompletion) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsRetryable reports whether err is a rate limit or server side failure.
// Other API errors, such as invalid requests, are final.
func IsRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return retry.IsTransient(err)
}

var (
	_ api.Answerer     = (*Answerer)(nil)
	_ api.LLMGenerator = (*Generator)(nil)
)
