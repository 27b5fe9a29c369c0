package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/dataset"
)

var (
	fetchDatasets []string
	fetchForce    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch upstream dataset extracts",
	Long: `Fetch the upstream extracts (whd, osha, naics) into the data directory.

By default, fetches every dataset that is due per its upstream cadence.
Use --dataset to restrict to specific datasets, --force to fetch regardless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "fetch"))

		reg := dataset.NewRegistry(cfg)
		engine := dataset.NewEngine(newFetcher(), reg, cfg.Pipeline.DataDir)

		log.Info("starting fetch",
			zap.Strings("datasets", fetchDatasets),
			zap.Bool("force", fetchForce),
		)

		if err := engine.Run(ctx, dataset.RunOpts{Datasets: fetchDatasets, Force: fetchForce}); err != nil {
			return eris.Wrap(err, "fetch")
		}

		fmt.Println("Fetch complete")
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchDatasets, "dataset", nil, "datasets to fetch (default: all due)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "fetch even when not due")
	rootCmd.AddCommand(fetchCmd)
}
