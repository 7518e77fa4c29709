package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/datar-psa/goeqa/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	logLevel   string

	// flagValues receives flag values; only flags the user set are copied
	// over the loaded configuration.
	flagValues = config.Default()

	cfg config.Config
	env config.Env
)

var rootCmd = &cobra.Command{
	Use:   "goeqa",
	Short: "Embodied question answering evaluation",
	Long: "goeqa runs a vision language model over an embodied QA benchmark with\n" +
		"resumable checkpoints, grades answers with an LLM judge and reports\n" +
		"per-category and SPL weighted scores.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if env, err = config.LoadEnv(cmd.Context()); err != nil {
			return err
		}

		level := env.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
		cmd.SetContext(clog.WithLogger(cmd.Context(), logger))

		cfg = config.Default()
		if configPath != "" {
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
		}
		applyFlags(cmd, &cfg)
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML run file; flags override its values")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error); defaults to GOEQA_LOG_LEVEL")

	f := rootCmd.PersistentFlags()
	f.StringVar(&flagValues.Dataset, "dataset", "", "question file")
	f.StringVar(&flagValues.OutputDir, "output-dir", flagValues.OutputDir, "directory of result and metrics files")
	f.StringVar(&flagValues.RunID, "run-id", "", "run identifier used in output file names")
	f.StringVar(&flagValues.Model, "model", flagValues.Model, "answering model id")
	f.Int64Var(&flagValues.Seed, "seed", flagValues.Seed, "model and subset seed")
	f.StringSliceVar(&flagValues.ExcludedScenes, "exclude-scene", nil, "scene to leave out; matched on the suffix after the last '-'")
	f.StringSliceVar(&flagValues.ExcludedVariants, "exclude-variant", nil, "dataset variant to leave out (e.g. hm3d-v0)")

	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

// flagSetters copy a changed flag from flagValues into the configuration.
var flagSetters = map[string]func(*config.Config){
	"dataset":         func(c *config.Config) { c.Dataset = flagValues.Dataset },
	"output-dir":      func(c *config.Config) { c.OutputDir = flagValues.OutputDir },
	"run-id":          func(c *config.Config) { c.RunID = flagValues.RunID },
	"model":           func(c *config.Config) { c.Model = flagValues.Model },
	"seed":            func(c *config.Config) { c.Seed = flagValues.Seed },
	"exclude-scene":   func(c *config.Config) { c.ExcludedScenes = flagValues.ExcludedScenes },
	"exclude-variant": func(c *config.Config) { c.ExcludedVariants = flagValues.ExcludedVariants },

	"frames-dir":    func(c *config.Config) { c.FramesDir = flagValues.FramesDir },
	"provider":      func(c *config.Config) { c.Provider = flagValues.Provider },
	"num-frames":    func(c *config.Config) { c.FrameCount = flagValues.FrameCount },
	"image-size":    func(c *config.Config) { c.ImageSize = flagValues.ImageSize },
	"temperature":   func(c *config.Config) { c.Temperature = flagValues.Temperature },
	"max-tokens":    func(c *config.Config) { c.MaxTokens = flagValues.MaxTokens },
	"force":         func(c *config.Config) { c.Force = flagValues.Force },
	"dry-run":       func(c *config.Config) { c.DryRun = flagValues.DryRun },
	"random-subset": func(c *config.Config) { c.RandomSubset = flagValues.RandomSubset },
	"only":          func(c *config.Config) { c.OnlyIDs = flagValues.OnlyIDs },
	"workers":       func(c *config.Config) { c.Workers = flagValues.Workers },
	"metadata-file": func(c *config.Config) { c.MetadataFile = flagValues.MetadataFile },
	"image-subdir":  func(c *config.Config) { c.ImageSubdir = flagValues.ImageSubdir },
	"max-retries":   func(c *config.Config) { c.Retry.MaxRetries = flagValues.Retry.MaxRetries },

	"reject-excluded": func(c *config.Config) { c.RejectExcluded = flagValues.RejectExcluded },

	"judge-provider": func(c *config.Config) { c.Judge.Provider = flagValues.Judge.Provider },
	"judge-model":    func(c *config.Config) { c.Judge.Model = flagValues.Judge.Model },
	"judge-workers":  func(c *config.Config) { c.Judge.Workers = flagValues.Judge.Workers },

	"scores":                func(c *config.Config) { c.Report.Scores = flagValues.Report.Scores },
	"gt-path-lengths":       func(c *config.Config) { c.Report.GroundTruthPathLengths = flagValues.Report.GroundTruthPathLengths },
	"path-lengths":          func(c *config.Config) { c.Report.PathLengths = flagValues.Report.PathLengths },
	"baseline-scores":       func(c *config.Config) { c.Report.BaselineScores = flagValues.Report.BaselineScores },
	"baseline-path-lengths": func(c *config.Config) { c.Report.BaselinePathLengths = flagValues.Report.BaselinePathLengths },
	"limit":                 func(c *config.Config) { c.Report.Limit = flagValues.Report.Limit },
	"format":                func(c *config.Config) { c.Report.Format = flagValues.Report.Format },
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	for name, set := range flagSetters {
		if cmd.Flags().Changed(name) {
			set(c)
		}
	}
}
