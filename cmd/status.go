package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
	"github.com/lbd-works/gazetteer-cli/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline artifact and store status",
	Long:  "Displays per-stage staleness for the pipeline and row counts for the assembled gazetteer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stages, err := pipelineStages()
		if err != nil {
			return err
		}
		statuses, err := pipeline.NewRunner(cfg.Pipeline.DataDir, stages).Status()
		if err != nil {
			return err
		}
		formatStageStatuses(os.Stdout, statuses)

		store, err := gazetteer.Open(ctx, cfg)
		if err != nil {
			zap.L().Warn("store unavailable", zap.Error(err))
			return nil
		}
		defer store.Close()

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Println()
		formatStoreStats(os.Stdout, stats)
		return nil
	},
}

// formatStageStatuses writes a tabular representation of stage staleness to w.
func formatStageStatuses(out io.Writer, statuses []pipeline.StageStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tSTATE\tREASON\tOUTPUTS")
	_, _ = fmt.Fprintln(w, "-----\t-----\t------\t-------")

	for _, s := range statuses {
		state := "up to date"
		if s.Stale {
			state = "stale"
		}
		outs := make([]string, len(s.Outputs))
		for i, o := range s.Outputs {
			outs[i] = filepath.Base(o)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, state, s.Reason, strings.Join(outs, ", "))
	}
	_ = w.Flush()
}

func formatStoreStats(out io.Writer, stats *gazetteer.Stats) {
	if !stats.Assembled {
		fmt.Fprintln(out, "Store: not assembled, run 'gazetteer build' first")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tROWS")
	_, _ = fmt.Fprintln(w, "-----\t----")
	_, _ = fmt.Fprintf(w, "canonical\t%d\n", stats.Canonical)
	_, _ = fmt.Fprintf(w, "entity_map\t%d\n", stats.EntityMap)
	_, _ = fmt.Fprintf(w, "entities\t%d\n", stats.Entities)
	_, _ = fmt.Fprintf(w, "block keys\t%d\n", stats.BlockKeys)
	_, _ = fmt.Fprintf(w, "naics codes\t%d\n", stats.NAICSCodes)
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
