package main

import (
	"context"
	"fmt"

	"github.com/datar-psa/goeqa"
	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/config"
	"github.com/datar-psa/goeqa/dataset"
	"github.com/datar-psa/goeqa/gemini"
	"github.com/datar-psa/goeqa/gpt"
	"github.com/datar-psa/goeqa/internal/retry"
	"github.com/datar-psa/goeqa/metrics"
)

// backend bundles the client options and retry classifier of one provider.
type backend struct {
	opts      []func(*goeqa.BackendOptions)
	retryable retry.Classifier
}

func newBackend(ctx context.Context, provider string, m *metrics.Run) (backend, error) {
	if err := env.RequireCredentials(provider); err != nil {
		return backend{}, err
	}
	switch provider {
	case config.ProviderOpenAI:
		return backend{
			opts:      []func(*goeqa.BackendOptions){goeqa.WithOpenAIClient(gpt.NewClient(env.OpenAIAPIKey)), goeqa.WithMetrics(m)},
			retryable: gpt.IsRetryable,
		}, nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.ClientConfig{
			Project:  env.GoogleProjectID,
			Location: env.GoogleRegion,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{
			opts:      []func(*goeqa.BackendOptions){goeqa.WithGenaiClient(client), goeqa.WithMetrics(m)},
			retryable: gemini.IsRetryable,
		}, nil
	}
	return backend{}, fmt.Errorf("unknown provider %q", provider)
}

func (b backend) answerer(provider string) api.Answerer {
	if provider == config.ProviderGemini {
		return goeqa.NewGeminiAnswerer(b.opts...)
	}
	return goeqa.NewOpenAIAnswerer(b.opts...)
}

func (b backend) judge(provider, model string) *goeqa.LLMJudge {
	opts := append(b.opts, goeqa.WithModelName(model))
	if provider == config.ProviderGemini {
		return goeqa.NewGeminiLLMJudge(opts...)
	}
	return goeqa.NewOpenAILLMJudge(opts...)
}

// loadIndex reads the dataset with the configured exclusions.
func loadIndex(c config.Config) (*dataset.Index, error) {
	questions, err := dataset.Load(c.Dataset)
	if err != nil {
		return nil, err
	}
	return dataset.NewIndex(questions,
		dataset.WithExcludedScenes(c.ExcludedScenes...),
		dataset.WithExcludedVariants(c.ExcludedVariants...),
		dataset.WithRejectExcluded(c.RejectExcluded),
	)
}

// selectQuestions applies the explicit id list, the random subset and the
// dry-run cap.
func selectQuestions(ctx context.Context, idx *dataset.Index, c config.Config) ([]api.Question, error) {
	var questions []api.Question
	if len(c.OnlyIDs) > 0 {
		var err error
		if questions, err = idx.Pick(ctx, c.OnlyIDs); err != nil {
			return nil, err
		}
	} else {
		questions = idx.Select(dataset.SelectOptions{Subset: c.RandomSubset, Seed: c.Seed})
	}
	if c.DryRun && len(questions) > dataset.DryRunLimit {
		questions = questions[:dataset.DryRunLimit]
	}
	return questions, nil
}
