// Package dataset fetches the upstream enforcement and reference extracts
// and writes them as normalized CSV artifacts under the data directory.
package dataset

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

// Engine orchestrates dataset fetch runs.
type Engine struct {
	fetcher fetcher.Fetcher
	reg     *Registry
	dataDir string
}

// RunOpts configures which datasets to fetch and how.
type RunOpts struct {
	Datasets []string // restrict to specific dataset names
	Force    bool     // ignore ShouldRun() scheduling
}

// NewEngine creates a new fetch engine writing artifacts into dataDir.
func NewEngine(f fetcher.Fetcher, reg *Registry, dataDir string) *Engine {
	return &Engine{fetcher: f, reg: reg, dataDir: dataDir}
}

// LastFetch reports when a dataset's artifact was last written, from the
// artifact's mtime. Returns nil if the artifact does not exist.
func (e *Engine) LastFetch(d Dataset) *time.Time {
	info, err := os.Stat(filepath.Join(e.dataDir, d.File()))
	if err != nil {
		return nil
	}
	t := info.ModTime().UTC()
	return &t
}

// Run iterates over the selected datasets, checks if each is due, and
// fetches it. A failed dataset does not stop the remaining ones.
func (e *Engine) Run(ctx context.Context, opts RunOpts) error {
	log := zap.L().With(zap.String("component", "dataset.engine"))
	now := time.Now().UTC()

	datasets, err := e.reg.Select(opts.Datasets)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create data dir %s", e.dataDir)
	}

	var fetched, skipped, failed int

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dsLog := log.With(zap.String("dataset", ds.Name()))

		if !opts.Force && !ds.ShouldRun(now, e.LastFetch(ds)) {
			dsLog.Debug("skipping (not due)")
			skipped++
			continue
		}

		dsLog.Info("starting fetch")
		start := time.Now()
		result, err := ds.Fetch(ctx, e.fetcher, e.dataDir)
		elapsed := time.Since(start)

		if err != nil {
			dsLog.Error("fetch failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			failed++
			continue
		}

		dsLog.Info("fetch complete",
			zap.Int64("rows", result.Rows),
			zap.String("path", result.Path),
			zap.Duration("elapsed", elapsed),
		)
		fetched++
	}

	log.Info("engine run complete",
		zap.Int("fetched", fetched),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}
