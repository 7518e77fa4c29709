package main

import (
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/datar-psa/goeqa/aggregate"
	"github.com/datar-psa/goeqa/config"
	"github.com/datar-psa/goeqa/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print per-category and total scores",
	Long: "report normalizes judge grades to 0..100 and prints the mean per\n" +
		"category and over all questions. With ground-truth path lengths it also\n" +
		"prints SPL weighted scores. With baseline scores it replaces baseline\n" +
		"entries by the entries of the current run before aggregating.",
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&flagValues.Report.Scores, "scores", "", "metrics file; defaults to the one of the configured run")
	f.StringVar(&flagValues.Report.GroundTruthPathLengths, "gt-path-lengths", "", "shortest path length per question; enables SPL")
	f.StringVar(&flagValues.Report.PathLengths, "path-lengths", "", "path length travelled per question")
	f.StringVar(&flagValues.Report.BaselineScores, "baseline-scores", "", "baseline metrics file; enables merge mode")
	f.StringVar(&flagValues.Report.BaselinePathLengths, "baseline-path-lengths", "", "path lengths of the baseline run")
	f.IntVar(&flagValues.Report.Limit, "limit", 0, "aggregate at most this many questions")
	f.StringVar(&flagValues.Report.Format, "format", flagValues.Report.Format, "output format (text, table)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rc := cfg.Report

	idx, err := loadIndex(cfg)
	if err != nil {
		return err
	}
	in := aggregate.Inputs{Questions: idx}
	if rc.GroundTruthPathLengths != "" {
		if in.GroundTruth, err = aggregate.LoadPathLengths(rc.GroundTruthPathLengths); err != nil {
			return err
		}
	}

	scoresPath := rc.Scores
	if scoresPath == "" {
		scoresPath = cfg.MetricsPath()
	}
	current, err := loadRun(scoresPath, rc.PathLengths)
	if err != nil {
		return err
	}

	opts := aggregate.Options{Limit: rc.Limit}
	var summary aggregate.Summary
	if rc.BaselineScores != "" {
		baseline, err := loadRun(rc.BaselineScores, rc.BaselinePathLengths)
		if err != nil {
			return err
		}
		if reason := splDisabled(in, baseline, true); reason != "" {
			clog.FromContext(ctx).Warn(reason)
		}
		summary, err = aggregate.Merge(ctx, in, baseline, current, opts)
		if err != nil {
			return err
		}
	} else {
		if reason := splDisabled(in, current, false); reason != "" {
			clog.FromContext(ctx).Warn(reason)
		}
		if summary, err = aggregate.Aggregate(ctx, in, current, opts); err != nil {
			return err
		}
	}

	return writeReport(cmd, rc, summary)
}

// splDisabled explains why ground truth was given but SPL will not be
// computed. The path lengths that matter are the baseline's in merge mode.
func splDisabled(in aggregate.Inputs, run aggregate.Run, merge bool) string {
	if in.GroundTruth == nil || run.PathLengths != nil {
		return ""
	}
	if merge {
		return "ground-truth path lengths given without baseline path lengths; SPL disabled"
	}
	return "ground-truth path lengths given without run path lengths; SPL disabled"
}

func loadRun(scoresPath, pathLengthsPath string) (aggregate.Run, error) {
	scores, err := aggregate.LoadScores(scoresPath)
	if err != nil {
		return aggregate.Run{}, err
	}
	run := aggregate.Run{Scores: scores}
	if pathLengthsPath != "" {
		if run.PathLengths, err = aggregate.LoadPathLengths(pathLengthsPath); err != nil {
			return aggregate.Run{}, err
		}
	}
	return run, nil
}

func writeReport(cmd *cobra.Command, rc config.Report, s aggregate.Summary) error {
	if rc.Format == "table" {
		return report.Table(cmd.OutOrStdout(), s)
	}
	return report.Text(cmd.OutOrStdout(), s)
}
