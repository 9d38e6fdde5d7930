package embedworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/embeddings"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/spawn"
)

const defaultBaseBackoff = 1 * time.Second

// Worker fills in vectors for messages the store recorded with a NULL
// vector column, one chunk at a time, until none remain.
type Worker struct {
	repos  *repository.Repositories
	client *embeddings.Client
	cfg    config.WorkerConfig
	dbPath string
	logger *logging.Logger
}

// New builds a Worker. dbPath locates the progress sentinel beside the
// database it is embedding into.
func New(repos *repository.Repositories, client *embeddings.Client, cfg config.WorkerConfig, dbPath string, logger *logging.Logger) *Worker {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.NewDefaultConfig())
	}
	return &Worker{repos: repos, client: client, cfg: cfg, dbPath: dbPath, logger: logger}
}

// Run drives the worker to completion: it keeps pulling unembedded batches
// and writing vectors back until the pending count reaches zero, the
// embeddings endpoint fails unrecoverably, or ctx is canceled (SIGTERM).
// A canceled context is not an error: the NULL-vector scan means the next
// invocation picks up exactly where this one left off.
func (w *Worker) Run(ctx context.Context) error {
	started := time.Now().UTC()
	progressPath := spawn.ProgressFile(w.dbPath)

	if ctx.Err() != nil {
		return spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusIdle, StartedAt: &started})
	}

	total, err := w.repos.Messages.CountUnembedded(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		return spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusDone, StartedAt: &started, CompletedAt: timePtr(time.Now().UTC())})
	}

	if err := spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusEmbedding, Total: total, StartedAt: &started}); err != nil {
		w.logger.Warn(ctx, "embedworker: failed to write initial progress", zap.Error(err))
	}

	completed := 0
	chunkSize := w.cfg.BatchSize * w.cfg.Concurrency
	if chunkSize <= 0 {
		chunkSize = w.cfg.BatchSize
	}

	for {
		if ctx.Err() != nil {
			w.logger.Info(ctx, "embedworker: stopping on context cancellation", zap.Int("completed", completed), zap.Int("total", total))
			return spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusIdle, Total: total, Completed: completed, StartedAt: &started})
		}

		batch, err := w.repos.Messages.UnembeddedBatch(ctx, chunkSize)
		if err != nil {
			w.fail(ctx, progressPath, total, completed, started, err)
			return err
		}
		if len(batch) == 0 {
			break
		}

		if err := w.embedChunk(ctx, batch); err != nil {
			w.fail(ctx, progressPath, total, completed, started, err)
			return err
		}

		completed += len(batch)
		if err := spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusEmbedding, Total: total, Completed: completed, StartedAt: &started}); err != nil {
			w.logger.Warn(ctx, "embedworker: failed to write progress", zap.Error(err))
		}
	}

	w.logger.Info(ctx, "embedworker: done", zap.Int("completed", completed))
	return spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusDone, Total: total, Completed: completed, StartedAt: &started, CompletedAt: timePtr(time.Now().UTC())})
}

// embedChunk splits batch into sub-batches of BatchSize and embeds them
// with bounded concurrency, each sub-batch retried independently.
func (w *Worker) embedChunk(ctx context.Context, batch []model.Message) error {
	batchSize := w.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(batch)
	}
	var subBatches [][]model.Message
	for i := 0; i < len(batch); i += batchSize {
		end := i + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		subBatches = append(subBatches, batch[i:end])
	}

	concurrency := w.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, sub := range subBatches {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub []model.Message) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := w.embedWithRetry(ctx, sub); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()
	return firstErr
}

// embedWithRetry embeds one sub-batch and writes its vectors back,
// retrying transient failures with exponential backoff bounded by
// cfg.MaxRetries.
func (w *Worker) embedWithRetry(ctx context.Context, batch []model.Message) error {
	texts := make([]string, len(batch))
	for i, m := range batch {
		texts[i] = m.Content
	}

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if w.cfg.BatchTimeoutSeconds > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(w.cfg.BatchTimeoutSeconds)*time.Second)
		}
		vectors, err := w.client.EmbedDocuments(callCtx, texts)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return w.writeVectors(ctx, batch, vectors)
		}
		lastErr = err
		w.logger.Warn(ctx, "embedworker: batch embedding attempt failed", zap.Int("attempt", attempt), zap.Int("batch_size", len(batch)), zap.Error(err))
	}
	return fmt.Errorf("%w: %v", dexerr.ErrEmbeddingUnavailable, lastErr)
}

func (w *Worker) writeVectors(ctx context.Context, batch []model.Message, vectors [][]float32) error {
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: expected %d vectors, got %d", dexerr.ErrEmbeddingUnavailable, len(batch), len(vectors))
	}
	for i, m := range batch {
		if err := w.repos.Messages.SetVector(ctx, m.ID, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, progressPath string, total, completed int, started time.Time, err error) {
	w.logger.Error(ctx, "embedworker: failed", zap.Error(err), zap.Int("completed", completed), zap.Int("total", total))
	if werr := spawn.WriteProgress(progressPath, spawn.Progress{Status: spawn.StatusError, Total: total, Completed: completed, StartedAt: &started, Error: err.Error()}); werr != nil {
		w.logger.Warn(ctx, "embedworker: failed to write error progress", zap.Error(werr))
	}
}

func timePtr(t time.Time) *time.Time { return &t }
