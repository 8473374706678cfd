package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradescript/internal/repository"
)

// Sweeper fans every enabled activation out to the coordinator on a bounded
// worker pool. One panicking tuple never takes a sweep down.
type Sweeper struct {
	Repo        repository.Repository
	Coordinator *Coordinator
	Logger      *zap.Logger

	Concurrency int
}

// RunSweep evaluates every enabled (user, script, timeframe) tuple once and
// returns the aggregate report. Tuple order is not significant; outcomes are
// independent by construction.
func (s *Sweeper) RunSweep(ctx context.Context, dryRun bool) (*SweepReport, error) {
	report := &SweepReport{StartedAt: time.Now().UTC()}

	activations, err := s.Repo.ListEnabledActivations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled activations: %w", err)
	}
	if len(activations) == 0 {
		report.Duration = time.Since(report.StartedAt)
		return report, nil
	}

	workers := s.Concurrency
	if workers <= 0 {
		workers = 8
	}
	if workers > len(activations) {
		workers = len(activations)
	}

	tuples := make(chan Tuple)
	results := make(chan Outcome, len(activations))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tuple := range tuples {
				results <- s.runOne(ctx, tuple, dryRun)
			}
		}()
	}

	for _, a := range activations {
		tuples <- Tuple{UserID: a.UserID, ScriptID: a.ScriptID, Timeframe: a.Timeframe}
	}
	close(tuples)
	wg.Wait()
	close(results)

	for outcome := range results {
		report.add(outcome)
	}
	report.Duration = time.Since(report.StartedAt)

	if s.Logger != nil {
		s.Logger.Info("sweep finished",
			zap.Int("total", report.Total),
			zap.Int("executed", report.Executed),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
			zap.Duration("duration", report.Duration),
			zap.Bool("dry_run", dryRun))
	}
	return report, nil
}

func (s *Sweeper) runOne(ctx context.Context, tuple Tuple, dryRun bool) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			if s.Logger != nil {
				s.Logger.Error("tuple panicked",
					zap.Uint64("user_id", tuple.UserID),
					zap.Uint64("script_id", tuple.ScriptID),
					zap.String("timeframe", tuple.Timeframe),
					zap.Any("panic", r))
			}
			out = Outcome{Tuple: tuple, Status: StatusFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return s.Coordinator.Run(ctx, tuple, dryRun)
}
