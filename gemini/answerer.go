package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/genai"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/internal/imageprep"
	"github.com/datar-psa/goeqa/metrics"
	"github.com/datar-psa/goeqa/prompt"
)

// ErrSeedOutOfRange is returned for seeds the Gemini API cannot carry in its int32 field.
var ErrSeedOutOfRange = errors.New("seed out of int32 range")

// Answerer answers questions about images with a multimodal Gemini model.
type Answerer struct {
	client  *genai.Client
	metrics *metrics.Run
}

// NewAnswerer creates an Answerer. m may be nil.
func NewAnswerer(client *genai.Client, m *metrics.Run) *Answerer {
	return &Answerer{client: client, metrics: m}
}

// Answer implements api.Answerer. Images are sent inline as JPEG between the
// prompt instructions and the user query.
func (a *Answerer) Answer(ctx context.Context, question string, images []string, params api.InferenceParams) (string, error) {
	if params.Seed < math.MinInt32 || params.Seed > math.MaxInt32 {
		return "", fmt.Errorf("%w: %d", ErrSeedOutOfRange, params.Seed)
	}
	prefix, suffix := prompt.Answer(question)

	parts := make([]*genai.Part, 0, len(images)+2)
	parts = append(parts, &genai.Part{Text: prefix})
	for _, path := range images {
		data, err := imageprep.Load(path, params.ImageSize)
		if err != nil {
			return "", err
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: imageprep.MIMEType, Data: data}})
	}
	parts = append(parts, &genai.Part{Text: suffix})

	seed := int32(params.Seed)
	resp, err := a.client.Models.GenerateContent(
		ctx,
		params.Model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(params.Temperature)),
			MaxOutputTokens: int32(params.MaxTokens),
			Seed:            &seed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if usage := resp.UsageMetadata; usage != nil {
		a.metrics.RecordTokens(ctx, params.Model, int64(usage.PromptTokenCount), int64(usage.CandidatesTokenCount))
	}
	return firstText(resp)
}

var _ api.Answerer = (*Answerer)(nil)
