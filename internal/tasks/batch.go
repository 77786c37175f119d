package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/sparkify/internal/files"
	"github.com/desertthunder/sparkify/internal/repositories"
)

// Process discovers every input file under root and loads each one in its own transaction.
//
// Files are processed in lexicographic order. A file whose loader or commit fails is rolled back,
// logged and counted in [BatchResult.Failures]; processing continues with the next file.
// Discovery errors and context cancellation end the batch and are returned with the partial result.
func (e *Engine) Process(ctx context.Context, root string, loader Loader, progress chan<- ProgressUpdate) (*BatchResult, error) {
	started := time.Now()
	logger := e.logger.With("root", root, "phase", loader.Phase)

	result := &BatchResult{Phase: loader.Phase, Root: root, Failures: []FileResult{}}

	found, err := files.Discover(root, e.extension)
	if err != nil {
		result.Err = fmt.Errorf("failed to discover files: %w", err)
		return result, result.Err
	}
	for _, s := range found.Skipped {
		logger.Warn("skipping unreadable path", "path", s.Path, "err", s.Err)
	}
	result.Skipped = found.Skipped
	result.FilesFound = len(found.Files)

	fmt.Fprintln(e.output, filesFoundMessage(result.FilesFound, root))
	e.sendProgress(progress, discoveredUpdate(loader.Phase, result.FilesFound, root))

	for i, path := range found.Files {
		if err := ctx.Err(); err != nil {
			result.Err = err
			result.Elapsed = time.Since(started)
			return result, err
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				result.Err = err
				result.Elapsed = time.Since(started)
				return result, err
			}
		}

		res := e.processFile(ctx, logger, loader, path)
		if res.Failed() {
			result.FilesFailed++
			result.Failures = append(result.Failures, res)
		} else {
			result.FilesProcessed++
			result.Rows.Add(res.Stats.Rows)
		}

		fmt.Fprintln(e.output, filesProcessedMessage(i+1, result.FilesFound))
		e.sendProgress(progress, fileProcessedUpdate(loader.Phase, i+1, result.FilesFound, res))
	}

	result.Elapsed = time.Since(started)
	logger.Info("batch complete",
		"files", result.FilesFound,
		"processed", result.FilesProcessed,
		"failed", result.FilesFailed,
		"rows", result.Rows.Written(),
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	e.sendProgress(progress, batchCompleteUpdate(loader.Phase, result))
	return result, nil
}

// processFile runs loader over path inside one transaction.
func (e *Engine) processFile(ctx context.Context, logger *log.Logger, loader Loader, path string) FileResult {
	started := time.Now()
	res := FileResult{Path: path}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(started)
		logger.Error("failed to start file transaction", "file", path, "err", err)
		return res
	}

	var w repositories.Writer = tx
	var cache *repositories.LookupCache
	if loader.CacheLookups {
		cache = repositories.NewLookupCache()
		w = cache.Wrap(tx)
	}

	stats, err := loader.Load(ctx, w, path)
	res.Stats = stats
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error("failed to roll back file", "file", path, "err", rbErr)
		}
		res.Err = err
		logger.Warn("failed to load file", "file", path, "err", err)
	}

	if cache != nil && cache.Hits() > 0 {
		logger.Debug("lookup cache", "file", path, "keys", cache.Len(), "hits", cache.Hits())
	}
	res.Duration = time.Since(started)
	return res
}

// Finish reports the end of a run over one or more batches on progress.
func (e *Engine) Finish(progress chan<- ProgressUpdate, results ...*BatchResult) {
	update := completeUpdate(results)
	e.logger.Debug("run complete", "files", update.Total, "attempted", update.Step)
	e.sendProgress(progress, update)
}
