package main

import (
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/datar-psa/goeqa/api"
	"github.com/datar-psa/goeqa/checkpoint"
	"github.com/datar-psa/goeqa/driver"
	"github.com/datar-psa/goeqa/frames"
	"github.com/datar-psa/goeqa/metrics"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer the benchmark questions with a vision language model",
	Long: "answer sends every pending question with frames of its scene to the\n" +
		"configured model and appends each answer to the result file. Questions\n" +
		"already present in the result file are not sent again.",
	Args: cobra.NoArgs,
	RunE: runAnswer,
}

func init() {
	f := answerCmd.Flags()
	f.StringVar(&flagValues.FramesDir, "frames-dir", "", "directory with one folder per scene")
	f.StringVar(&flagValues.Provider, "provider", flagValues.Provider, "answering provider (openai, gemini)")
	f.IntVar(&flagValues.FrameCount, "num-frames", flagValues.FrameCount, "frames sent per question; 0 sends all")
	f.IntVar(&flagValues.ImageSize, "image-size", flagValues.ImageSize, "longest image side in pixels; 0 keeps the original")
	f.Float64Var(&flagValues.Temperature, "temperature", flagValues.Temperature, "sampling temperature")
	f.IntVar(&flagValues.MaxTokens, "max-tokens", flagValues.MaxTokens, "answer token cap")
	f.BoolVar(&flagValues.Force, "force", false, "log failed questions and continue")
	f.BoolVar(&flagValues.DryRun, "dry-run", false, "process only the first few questions")
	f.IntVar(&flagValues.RandomSubset, "random-subset", 0, "answer a seeded random subset of this size")
	f.StringSliceVar(&flagValues.OnlyIDs, "only", nil, "answer only these question ids")
	f.BoolVar(&flagValues.RejectExcluded, "reject-excluded", false, "fail when --only names an excluded question")
	f.IntVar(&flagValues.Workers, "workers", flagValues.Workers, "concurrent model calls")
	f.StringVar(&flagValues.MetadataFile, "metadata-file", flagValues.MetadataFile, "frame metadata file in each scene folder")
	f.StringVar(&flagValues.ImageSubdir, "image-subdir", flagValues.ImageSubdir, "image folder in each scene folder")
	f.IntVar(&flagValues.Retry.MaxRetries, "max-retries", flagValues.Retry.MaxRetries, "retries of a transient model error")
}

func runAnswer(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	if cfg.FramesDir == "" {
		return errors.New("frames dir is required")
	}

	idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	questions, err := selectQuestions(ctx, idx, cfg)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.OutputPath())
	if err != nil {
		return err
	}
	log.Infof("answering %d questions into %s (%d already stored)", len(questions), store.Path(), store.Len())

	resolver := frames.NewResolver(cfg.FramesDir)
	resolver.MetadataFile = cfg.MetadataFile
	resolver.ImageSubdir = cfg.ImageSubdir

	m := metrics.New(metrics.MeterName)
	b, err := newBackend(ctx, cfg.Provider, m)
	if err != nil {
		return err
	}

	d := driver.New(b.answerer(cfg.Provider), store, resolver,
		driver.WithFrameCount(cfg.FrameCount),
		driver.WithParams(api.InferenceParams{
			Model:       cfg.Model,
			Seed:        cfg.Seed,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			ImageSize:   cfg.ImageSize,
		}),
		driver.WithForce(cfg.Force),
		driver.WithWorkers(cfg.Workers),
		driver.WithRetry(cfg.Retry),
		driver.WithRetryClassifier(b.retryable),
		driver.WithMetrics(m),
	)

	summary, err := d.Run(ctx, questions)
	fmt.Fprintf(cmd.OutOrStdout(), "answered=%d already_done=%d missing_asset=%d failed=%d cancelled=%d total=%d\n",
		summary.Answered, summary.AlreadyDone, summary.MissingAsset, summary.Failed, summary.Cancelled, summary.Total)
	return err
}
