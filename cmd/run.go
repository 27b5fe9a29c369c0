package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lbd-works/gazetteer-cli/internal/dataset"
	"github.com/lbd-works/gazetteer-cli/internal/dedupe"
	"github.com/lbd-works/gazetteer-cli/internal/pipeline"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, dedupe, build",
	Long: `Runs every pipeline stage that is out of date. A stage reruns when an
output artifact is missing, an input is newer than an output, or an
input's recorded content hash changed. Use --force to rerun everything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stages, err := pipelineStages()
		if err != nil {
			return err
		}
		runner := pipeline.NewRunner(cfg.Pipeline.DataDir, stages)
		if err := runner.Run(cmd.Context(), runForce); err != nil {
			return err
		}
		fmt.Println("Pipeline complete")
		return nil
	},
}

// pipelineStages wires the dataset fetchers, the deduplicator, and the store
// assembly into one dependency-ordered stage list over the data directory.
func pipelineStages() ([]pipeline.Stage, error) {
	dataDir := cfg.Pipeline.DataDir
	reg := dataset.NewRegistry(cfg)
	f := newFetcher()

	var stages []pipeline.Stage
	for _, name := range reg.AllNames() {
		ds, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, pipeline.Stage{
			Name:    "fetch-" + ds.Name(),
			Outputs: []string{filepath.Join(dataDir, ds.File())},
			Run: func(ctx context.Context) error {
				_, err := ds.Fetch(ctx, f, dataDir)
				return err
			},
		})
	}

	whdPath := filepath.Join(dataDir, "whd.csv")
	dedupedPath := filepath.Join(dataDir, "deduped.csv")
	stages = append(stages, pipeline.Stage{
		Name:    "dedupe",
		Inputs:  []string{whdPath},
		Outputs: []string{dedupedPath},
		Run: func(ctx context.Context) error {
			in, err := os.Open(whdPath)
			if err != nil {
				return eris.Wrapf(err, "dedupe: open %s", whdPath)
			}
			defer in.Close()
			header, records, err := dedupe.ReadRecords(in)
			if err != nil {
				return err
			}
			results, err := dedupe.New(dedupe.Options{
				Threshold: cfg.Dedupe.Threshold,
				Workers:   cfg.Dedupe.Workers,
			}).Run(ctx, records)
			if err != nil {
				return err
			}
			return dedupe.WriteOutput(dedupedPath, header, records, results)
		},
	})

	stages = append(stages, pipeline.Stage{
		Name:   "build",
		Inputs: []string{dedupedPath, filepath.Join(dataDir, "naics.csv")},
		Outputs: []string{
			filepath.Join(dataDir, "canonical.csv"),
			filepath.Join(dataDir, "entity_map.csv"),
		},
		Run: runBuild,
	})

	return stages, nil
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "rerun every stage regardless of staleness")
	rootCmd.AddCommand(runCmd)
}
