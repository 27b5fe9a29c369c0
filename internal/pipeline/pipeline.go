// Package pipeline runs the fetch, dedupe, and build stages as a file-based
// dependency graph: a stage reruns when an output is missing, an input is
// newer than an output, or an input's recorded content hash changed.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Stage is one node of the pipeline. Inputs and Outputs are artifact paths;
// Run produces every output or fails.
type Stage struct {
	Name    string
	Inputs  []string
	Outputs []string
	Run     func(ctx context.Context) error
}

// StageStatus describes one stage for status reporting.
type StageStatus struct {
	Name    string
	Stale   bool
	Reason  string
	Outputs []string
}

// Runner executes stages in order, recording artifact state in the manifest
// after each success. The first failure stops the run.
type Runner struct {
	dataDir string
	stages  []Stage
}

// NewRunner creates a Runner over the given stages. Stage order is
// dependency order; the runner does not reorder.
func NewRunner(dataDir string, stages []Stage) *Runner {
	return &Runner{dataDir: dataDir, stages: stages}
}

func (r *Runner) manifestPath() string {
	return filepath.Join(r.dataDir, ManifestName)
}

// Run executes every stage that is stale (or all of them when force is set).
func (r *Runner) Run(ctx context.Context, force bool) error {
	log := zap.L().With(zap.String("component", "pipeline"))

	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create data dir")
	}
	manifest, err := LoadManifest(r.manifestPath())
	if err != nil {
		return err
	}

	for _, stage := range r.stages {
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "pipeline: cancelled")
		default:
		}

		stale, reason, err := r.stale(manifest, stage)
		if err != nil {
			return err
		}
		if !force && !stale {
			log.Info("stage up to date", zap.String("stage", stage.Name))
			continue
		}

		log.Info("running stage", zap.String("stage", stage.Name), zap.String("reason", reason))
		start := time.Now()
		if err := stage.Run(ctx); err != nil {
			return eris.Wrapf(err, "pipeline: stage %s", stage.Name)
		}

		for _, out := range stage.Outputs {
			if _, err := os.Stat(out); err != nil {
				return eris.Errorf("pipeline: stage %s did not produce %s", stage.Name, out)
			}
		}
		if err := manifest.Record(stage.Name, stage.Outputs); err != nil {
			return err
		}
		if err := manifest.Save(r.manifestPath()); err != nil {
			return err
		}
		log.Info("stage complete", zap.String("stage", stage.Name), zap.Duration("elapsed", time.Since(start)))
	}

	return nil
}

// Status reports the staleness of every stage without running anything.
func (r *Runner) Status() ([]StageStatus, error) {
	manifest, err := LoadManifest(r.manifestPath())
	if err != nil {
		return nil, err
	}

	out := make([]StageStatus, 0, len(r.stages))
	for _, stage := range r.stages {
		stale, reason, err := r.stale(manifest, stage)
		if err != nil {
			return nil, err
		}
		out = append(out, StageStatus{
			Name:    stage.Name,
			Stale:   stale,
			Reason:  reason,
			Outputs: stage.Outputs,
		})
	}
	return out, nil
}

// stale decides whether a stage needs to run, and why.
func (r *Runner) stale(m *Manifest, stage Stage) (bool, string, error) {
	var oldestOutput time.Time
	for _, out := range stage.Outputs {
		info, err := os.Stat(out)
		if os.IsNotExist(err) {
			return true, "output missing: " + filepath.Base(out), nil
		}
		if err != nil {
			return false, "", eris.Wrapf(err, "pipeline: stat %s", out)
		}
		if oldestOutput.IsZero() || info.ModTime().Before(oldestOutput) {
			oldestOutput = info.ModTime()
		}
	}

	for _, in := range stage.Inputs {
		info, err := os.Stat(in)
		if os.IsNotExist(err) {
			// An upstream stage will produce it; treat as stale so this
			// stage runs after it on the same pass.
			return true, "input missing: " + filepath.Base(in), nil
		}
		if err != nil {
			return false, "", eris.Wrapf(err, "pipeline: stat %s", in)
		}
		if info.ModTime().After(oldestOutput) {
			return true, "input newer: " + filepath.Base(in), nil
		}
		changed, err := m.Changed(in)
		if err != nil {
			return false, "", err
		}
		if changed {
			return true, "input content changed: " + filepath.Base(in), nil
		}
	}

	return false, "", nil
}
