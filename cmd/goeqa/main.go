// goeqa answers embodied question answering benchmarks with vision language
// models, grades the answers and reports per-category scores.
//
// Usage:
//
//	goeqa answer --dataset=<questions.json> --frames-dir=<scenes> [--run-id=<id>] [--force] [--dry-run]
//	goeqa score  --dataset=<questions.json> [--run-id=<id>]
//	goeqa report --dataset=<questions.json> [--scores=<metrics.json>] [--baseline-scores=<metrics.json>]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
