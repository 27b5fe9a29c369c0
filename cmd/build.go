package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble the gazetteer database from the deduplicated artifact",
	Long: `Projects the deduplicated establishment file into canonical and
entity_map tables and loads them, along with NAICS code titles and the
blocking index, into the configured store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context())
	},
}

func runBuild(ctx context.Context) error {
	log := zap.L().With(zap.String("command", "build"))
	dataDir := cfg.Pipeline.DataDir

	dedupedPath := filepath.Join(dataDir, "deduped.csv")
	in, err := os.Open(dedupedPath)
	if err != nil {
		return eris.Wrapf(err, "build: open %s", dedupedPath)
	}
	defer in.Close()

	proj, err := gazetteer.Project(in)
	if err != nil {
		return err
	}
	if err := proj.WriteArtifacts(dataDir); err != nil {
		return err
	}
	log.Info("projection written",
		zap.Int("canonical", len(proj.Canonical)),
		zap.Int("entity_map", len(proj.EntityMap)))

	store, err := gazetteer.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Assemble(ctx, proj); err != nil {
		return err
	}

	naicsPath := filepath.Join(dataDir, "naics.csv")
	if nf, err := os.Open(naicsPath); err == nil {
		codes, err := gazetteer.ReadNAICSCSV(nf)
		nf.Close()
		if err != nil {
			return err
		}
		if err := store.LoadNAICS(ctx, codes); err != nil {
			return err
		}
		log.Info("naics loaded", zap.Int("codes", len(codes)))
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "build: open %s", naicsPath)
	}

	fmt.Printf("Assembled gazetteer from %d records\n", len(proj.Canonical))
	return nil
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
