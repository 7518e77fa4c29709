package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by lookups of unknown question ids
	ErrNotFound = errors.New("not found")
	// ErrMissingAsset is matched when a scene folder or its metadata document is absent
	ErrMissingAsset = errors.New("missing scene asset")
	// ErrInference is matched by failures of the inference capability
	ErrInference = errors.New("inference failed")
	// ErrNoExpectedValue is returned when an expected value is required but not provided
	ErrNoExpectedValue = errors.New("expected value is required for this scorer")
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = errors.New("LLM generation failed")
)

// NotFoundError reports a lookup of an id that is not indexed.
type NotFoundError struct {
	// Kind names what was looked up ("question", "ground truth path length", ...)
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MissingAssetError reports a scene folder or metadata document that does not exist.
type MissingAssetError struct {
	Scene string
	Path  string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("scene %s: %s not found", e.Scene, e.Path)
}

func (e *MissingAssetError) Is(target error) bool { return target == ErrMissingAsset }

// InferenceError wraps a failed inference call for one question.
type InferenceError struct {
	QuestionID string
	Err        error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("answering %s: %v", e.QuestionID, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }
