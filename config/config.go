// Package config holds the run configuration shared by the goeqa commands:
// defaults, an optional YAML run file and credentials from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/datar-psa/goeqa/frames"
	"github.com/datar-psa/goeqa/internal/retry"
)

// Providers accepted for answering and judging.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config describes one evaluation run.
type Config struct {
	// Dataset is the question file
	Dataset string `yaml:"dataset"`
	// FramesDir holds one folder per scene
	FramesDir string `yaml:"frames_dir"`
	// OutputDir receives the result and metrics files
	OutputDir string `yaml:"output_dir"`
	RunID     string `yaml:"run_id"`

	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	FrameCount  int     `yaml:"frame_count"`
	ImageSize   int     `yaml:"image_size"`
	Seed        int64   `yaml:"seed"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	Force            bool     `yaml:"force"`
	DryRun           bool     `yaml:"dry_run"`
	RandomSubset     int      `yaml:"random_subset"`
	ExcludedScenes   []string `yaml:"excluded_scenes"`
	ExcludedVariants []string `yaml:"excluded_variants"`
	OnlyIDs          []string `yaml:"only_ids"`
	Workers          int      `yaml:"workers"`
	// RejectExcluded fails a run whose explicit ids name an excluded question
	RejectExcluded bool `yaml:"reject_excluded"`

	MetadataFile string `yaml:"metadata_file"`
	ImageSubdir  string `yaml:"image_subdir"`

	Retry  retry.Config `yaml:"retry"`
	Judge  Judge        `yaml:"judge"`
	Report Report       `yaml:"report"`
}

// Default judge models per provider, used when Judge.Model is empty.
const (
	DefaultGeminiJudgeModel = "gemini-2.5-flash"
	DefaultOpenAIJudgeModel = "gpt-4o-mini"
)

// Judge configures the LLM-match scoring step.
type Judge struct {
	Provider string `yaml:"provider"`
	// Model defaults to the provider's judge model
	Model   string `yaml:"model"`
	Workers int    `yaml:"workers"`
}

// ModelName returns Model, or the default judge model of Provider.
func (j Judge) ModelName() string {
	if j.Model != "" {
		return j.Model
	}
	if j.Provider == ProviderOpenAI {
		return DefaultOpenAIJudgeModel
	}
	return DefaultGeminiJudgeModel
}

// Report points at the inputs of the aggregation step.
type Report struct {
	// Scores overrides the metrics file derived from the run settings
	Scores string `yaml:"scores"`
	// GroundTruthPathLengths enables SPL when set together with PathLengths
	GroundTruthPathLengths string `yaml:"ground_truth_path_lengths"`
	PathLengths            string `yaml:"path_lengths"`
	// BaselineScores switches to merge mode
	BaselineScores      string `yaml:"baseline_scores"`
	BaselinePathLengths string `yaml:"baseline_path_lengths"`
	Limit               int    `yaml:"limit"`
	Format              string `yaml:"format"`
}

// Default returns the settings used when neither a run file nor flags say otherwise.
func Default() Config {
	return Config{
		OutputDir:    filepath.Join("data", "results"),
		Provider:     ProviderOpenAI,
		Model:        "gpt-4o",
		FrameCount:   15,
		ImageSize:    512,
		Seed:         1234,
		Temperature:  0.2,
		MaxTokens:    128,
		Workers:      1,
		MetadataFile: frames.DefaultMetadataFile,
		ImageSubdir:  frames.DefaultImageSubdir,
		Retry:        retry.DefaultConfig(),
		Judge: Judge{
			Provider: ProviderGemini,
			Workers:  4,
		},
		Report: Report{Format: "text"},
	}
}

// Load reads the YAML run file at path over the defaults. Keys absent from
// the file keep their default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	var errs []error
	if c.Dataset == "" {
		errs = append(errs, errors.New("dataset is required"))
	}
	if c.Provider != ProviderOpenAI && c.Provider != ProviderGemini {
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.FrameCount < 0 {
		errs = append(errs, errors.New("frame count cannot be negative"))
	}
	if c.ImageSize < 0 {
		errs = append(errs, errors.New("image size cannot be negative"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v outside [0, 2]", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("max tokens must be positive"))
	}
	if c.Provider == ProviderGemini && (c.Seed < math.MinInt32 || c.Seed > math.MaxInt32) {
		errs = append(errs, fmt.Errorf("seed %d does not fit the gemini int32 seed", c.Seed))
	}
	if c.RandomSubset < 0 {
		errs = append(errs, errors.New("random subset cannot be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.Judge.Provider != ProviderOpenAI && c.Judge.Provider != ProviderGemini {
		errs = append(errs, fmt.Errorf("unknown judge provider %q", c.Judge.Provider))
	}
	if c.Report.Format != "text" && c.Report.Format != "table" {
		errs = append(errs, fmt.Errorf("unknown report format %q", c.Report.Format))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	return errors.Join(errs...)
}

// Stem returns the dataset file name without directory and extension.
func (c Config) Stem() string {
	base := filepath.Base(c.Dataset)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath returns the result file of the run:
// <output dir>/<dataset stem>-prediction-<run id>-<model>-<seed>.json.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.runName()+".json")
}

// MetricsPath returns the judge score file next to the result file.
func (c Config) MetricsPath() string {
	return filepath.Join(c.OutputDir, c.runName()+"-metrics.json")
}

func (c Config) runName() string {
	// Model ids such as "publishers/google/models/gemini-2.5-flash" must not create directories.
	model := strings.ReplaceAll(c.Model, "/", "_")
	return fmt.Sprintf("%s-prediction-%s-%s-%d", c.Stem(), c.RunID, model, c.Seed)
}

// Env holds credentials and process settings read from the environment.
type Env struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GoogleProjectID string `env:"GOOGLE_PROJECT_ID"`
	GoogleRegion    string `env:"GOOGLE_REGION,default=us-central1"`
	LogLevel        string `env:"GOEQA_LOG_LEVEL,default=info"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv(ctx context.Context) (Env, error) {
	return loadEnv(ctx, envconfig.OsLookuper())
}

func loadEnv(ctx context.Context, lookuper envconfig.Lookuper) (Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

// RequireCredentials checks that the environment can reach provider.
func (e Env) RequireCredentials(provider string) error {
	switch provider {
	case ProviderOpenAI:
		if e.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is not set")
		}
	case ProviderGemini:
		if e.GoogleProjectID == "" {
			return errors.New("GOOGLE_PROJECT_ID is not set")
		}
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}
