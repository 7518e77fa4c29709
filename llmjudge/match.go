package llmjudge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/heuristic"
)

// MatchOptions configures the Match scorer
type MatchOptions struct {
	// Name overrides the scorer name reported in api.Score; defaults to "LLMMatch"
	Name string
}

// Match returns a scorer that asks an LLM to grade a candidate answer against
// the reference answer on a 1 to 5 scale. Score.Score is the grade mapped to
// [0, 1]; the grade itself is in Metadata["raw_score"].
func Match(llm api.LLMGenerator, opts MatchOptions) api.Scorer {
	if opts.Name == "" {
		opts.Name = "LLMMatch"
	}
	return &matchScorer{llm: llm, opts: opts}
}

type matchScorer struct {
	llm  api.LLMGenerator
	opts MatchOptions
}

const matchPromptTemplate = `You are an AI assistant who will help me to evaluate the response given the question and the correct answer.
To mark a response, you should output a single integer between 1 and 5 (including 1, 5).
5 means that the response perfectly matches the answer.
1 means that the response is completely different from the answer.

Example 1:
Question: Is it overcast?
Answer: no
Response: yes
Your mark: 1

Example 2:
Question: Who is standing at the table?
Answer: woman
Response: Jessica
Your mark: 3

Example 3:
Question: Are there drapes to the right of the bed?
Answer: yes
Response: yes
Your mark: 5

Your Turn:
Question: %s
Answer: %s
Response: %s

Explain your reasoning briefly, then end your response with: "SCORE: X" where X is your mark.`

var scorePattern = regexp.MustCompile(`SCORE:\s*(\d+)`)

// ErrNoScore is returned when the judge response carries no usable grade
var ErrNoScore = errors.New("no score in judge response")

func (s *matchScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     s.opts.Name,
		Metadata: make(map[string]any),
	}

	if in.Expected == "" {
		result.Error = api.ErrNoExpectedValue
		return result
	}
	if s.llm == nil {
		result.Error = errors.New("LLM generator is required")
		return result
	}

	response, err := s.llm.Generate(ctx, fmt.Sprintf(matchPromptTemplate, in.Input, in.Expected, in.Output))
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", api.ErrLLMGenerationFailed, err)
		return result
	}
	result.Metadata["raw_response"] = response

	grade, reasoning, err := extractGrade(response)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract score: %w", err)
		return result
	}

	normalized, err := heuristic.NormalizeLikert(float64(grade))
	if err != nil {
		result.Error = fmt.Errorf("failed to extract score: %w", err)
		return result
	}
	result.Score = normalized / 100
	result.Metadata["raw_score"] = grade
	result.Metadata["reasoning"] = reasoning
	return result
}

// extractGrade returns the last "SCORE: N" grade of response and the text
// before it.
func extractGrade(response string) (int, string, error) {
	all := scorePattern.FindAllStringSubmatchIndex(response, -1)
	if len(all) == 0 {
		return 0, "", ErrNoScore
	}
	m := all[len(all)-1]
	grade, err := strconv.Atoi(response[m[2]:m[3]])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrNoScore, err)
	}
	return grade, strings.TrimSpace(response[:m[0]]), nil
}
