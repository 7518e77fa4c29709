package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/datar-psa/goeqa/aggregate"
	"github.com/datar-psa/goeqa/checkpoint"
	"github.com/datar-psa/goeqa/llmjudge"
	"github.com/datar-psa/goeqa/metrics"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Grade stored answers with an LLM judge",
	Long: "score grades every answer of the result file against the reference\n" +
		"answer on a 1 to 5 scale and writes the grades to the metrics file.\n" +
		"Answers already graded are kept.",
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&flagValues.Judge.Provider, "judge-provider", flagValues.Judge.Provider, "judge provider (openai, gemini)")
	f.StringVar(&flagValues.Judge.Model, "judge-model", flagValues.Judge.Model, "judge model id; defaults per judge provider")
	f.IntVar(&flagValues.Judge.Workers, "judge-workers", flagValues.Judge.Workers, "concurrent judge calls")
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	store, err := checkpoint.Open(cfg.OutputPath())
	if err != nil {
		return err
	}

	metricsPath := cfg.MetricsPath()
	scores, err := aggregate.LoadScores(metricsPath)
	if errors.Is(err, fs.ErrNotExist) {
		scores, err = aggregate.NewScores(), nil
	}
	if err != nil {
		return err
	}
	clog.FromContext(ctx).Infof("grading %d answers from %s (%d already graded)", store.Len(), store.Path(), scores.Len())

	b, err := newBackend(ctx, cfg.Judge.Provider, metrics.New(metrics.MeterName))
	if err != nil {
		return err
	}
	scorer := b.judge(cfg.Judge.Provider, cfg.Judge.ModelName()).Match(llmjudge.MatchOptions{})

	result, err := llmjudge.ScoreAnswers(ctx, scorer, idx, store.Records(), scores, llmjudge.BatchOptions{
		Workers: cfg.Judge.Workers,
		Persist: func(s *aggregate.Scores) error {
			return aggregate.SaveScores(metricsPath, s)
		},
	})
	fmt.Fprintf(cmd.OutOrStdout(), "scored=%d already_scored=%d no_answer=%d failed=%d\n",
		result.Scored, result.AlreadyScored, result.NoAnswer, result.Failed)
	return err
}
