package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/dedupe"
)

var (
	dedupeThreshold float64
	dedupeWorkers   int
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <input.csv> <output.csv>",
	Short: "Deduplicate establishment records into canonical entities",
	Long: `Reads establishment records from input.csv, groups records that refer
to the same establishment, and writes output.csv with three appended
columns: entity_id (stable entity identifier shared by the group),
confidence_score, and id (surrogate row id).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "dedupe"))

		inPath, outPath := args[0], args[1]

		in, err := os.Open(inPath)
		if err != nil {
			return eris.Wrapf(err, "dedupe: open %s", inPath)
		}
		defer in.Close()

		header, records, err := dedupe.ReadRecords(in)
		if err != nil {
			return err
		}
		log.Info("input read", zap.String("path", inPath), zap.Int("records", len(records)))

		threshold := dedupeThreshold
		if threshold == 0 {
			threshold = cfg.Dedupe.Threshold
		}
		workers := dedupeWorkers
		if workers == 0 {
			workers = cfg.Dedupe.Workers
		}

		results, err := dedupe.New(dedupe.Options{Threshold: threshold, Workers: workers}).Run(ctx, records)
		if err != nil {
			return err
		}

		if err := dedupe.WriteOutput(outPath, header, records, results); err != nil {
			return err
		}

		fmt.Printf("Deduplicated %d records -> %s\n", len(records), outPath)
		return nil
	},
}

func init() {
	dedupeCmd.Flags().Float64Var(&dedupeThreshold, "threshold", 0, "similarity threshold (default from config)")
	dedupeCmd.Flags().IntVar(&dedupeWorkers, "workers", 0, "scoring workers (default: GOMAXPROCS)")
	rootCmd.AddCommand(dedupeCmd)
}
