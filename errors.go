package goeqa

import "github.com/datar-psa/goeqa/api"

var (
	// ErrNotFound is matched by lookups of unknown question ids
	ErrNotFound = api.ErrNotFound
	// ErrMissingAsset is matched when a scene folder or its metadata document is absent
	ErrMissingAsset = api.ErrMissingAsset
	// ErrInference is matched by failures of the inference capability
	ErrInference = api.ErrInference
	// ErrNoExpectedValue is returned when an expected value is required but not provided
	ErrNoExpectedValue = api.ErrNoExpectedValue
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = api.ErrLLMGenerationFailed
)
