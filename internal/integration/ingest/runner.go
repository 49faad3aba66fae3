package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	updateTimeout = 10 * time.Second
	waitDelay     = 5 * time.Second
)

var ErrRunnerClosed = errors.New("ingestion runner is closed")

// JobUpdater persists job state transitions.
type JobUpdater interface {
	UpdateJob(ctx context.Context, job *entity.IngestionJob) error
}

// Runner executes the ingestion script for queued jobs in the background.
// At most MaxConcurrent scripts run at once and each is killed after Timeout.
type Runner struct {
	cfg    config.IngestConfig
	jobs   JobUpdater
	sem    *semaphore.Weighted
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRunner(cfg config.IngestConfig, jobs JobUpdater, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:    cfg,
		jobs:   jobs,
		sem:    semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue schedules job, which must already be stored as queued. The runner
// works on its own copy.
func (r *Runner) Enqueue(job *entity.IngestionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}

	owned := *job
	r.wg.Add(1)
	go r.run(&owned)

	return nil
}

// Close cancels running scripts and waits for every job goroutine to record
// its final state, or for ctx to expire.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ingestion jobs: %w", ctx.Err())
	}
}

func (r *Runner) run(job *entity.IngestionJob) {
	defer r.wg.Done()

	logger := r.logger.With(
		zap.String("job_id", job.ID),
		zap.String("index", job.Corpus.Index),
		zap.String("container", job.Corpus.Container),
	)

	if job.DataDir != "" {
		defer func() {
			if err := os.RemoveAll(job.DataDir); err != nil {
				logger.Warn("failed to remove staging directory", zap.String("dir", job.DataDir), zap.Error(err))
			}
		}()
	}

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.finish(logger, job, fmt.Errorf("%w: %w", entity.ErrIngestionFailed, ErrRunnerClosed))
		return
	}
	defer r.sem.Release(1)

	now := time.Now().UTC()
	job.Status = entity.JobStatusRunning
	job.StartedAt = &now
	r.update(logger, job)

	metrics.IngestionJobsRunning.Inc()
	err := r.execute(logger, job)
	metrics.IngestionJobsRunning.Dec()

	r.finish(logger, job, err)
}

func (r *Runner) execute(logger *zap.Logger, job *entity.IngestionJob) error {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Shell, r.cfg.ScriptPath, job.Corpus.Index, job.Corpus.Container)
	cmd.Env = os.Environ()
	if job.DataDir != "" {
		cmd.Env = append(cmd.Env, "DATA_DIR="+job.DataDir)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("starting ingestion script", zap.String("script", r.cfg.ScriptPath))
	start := time.Now()

	err := cmd.Run()

	logger.Info("ingestion script output",
		zap.String("stdout", stdout.String()),
		zap.Duration("duration", time.Since(start)),
	)

	if err == nil {
		return nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out after %s", entity.ErrIngestionFailed, r.cfg.Timeout)
	case errors.Is(r.ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", entity.ErrIngestionFailed, ErrRunnerClosed)
	}

	if detail := strings.TrimSpace(stderr.String()); detail != "" {
		return fmt.Errorf("%w: %s", entity.ErrIngestionFailed, detail)
	}
	return fmt.Errorf("%w: %w", entity.ErrIngestionFailed, err)
}

func (r *Runner) finish(logger *zap.Logger, job *entity.IngestionJob, err error) {
	now := time.Now().UTC()
	job.FinishedAt = &now

	if err != nil {
		job.Status = entity.JobStatusFailed
		job.Error = err.Error()
		logger.Error("ingestion job failed", zap.Error(err))
	} else {
		job.Status = entity.JobStatusSucceeded
		logger.Info("ingestion job succeeded")
	}

	metrics.IngestionJobsTotal.WithLabelValues(string(job.Status)).Inc()
	r.update(logger, job)
}

func (r *Runner) update(logger *zap.Logger, job *entity.IngestionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	if err := r.jobs.UpdateJob(ctx, job); err != nil {
		logger.Error("failed to persist ingestion job state",
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
}
