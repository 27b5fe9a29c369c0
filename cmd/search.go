package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
)

var (
	searchIdentifier string
	searchOutput     string
)

var searchCmd = &cobra.Command{
	Use:   "search <messy.csv>",
	Short: "Link records in a CSV against the assembled gazetteer",
	Long: `Matches each record in the input CSV against the canonical
establishments and writes identifier, establishment_identifier, and
confidence rows, one per matched entity, to stdout or --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "search"))

		store, err := gazetteer.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		in, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "search: open %s", args[0])
		}
		defer in.Close()

		out := os.Stdout
		if searchOutput != "" {
			out, err = os.Create(searchOutput)
			if err != nil {
				return eris.Wrapf(err, "search: create %s", searchOutput)
			}
			defer out.Close()
		}

		searcher := gazetteer.NewSearcher(store, cfg.Dedupe.Threshold, cfg.Serve.MaxMatches)
		n, err := searcher.LinkCSV(ctx, in, out, searchIdentifier)
		if err != nil {
			return err
		}
		log.Info("link complete", zap.Int64("links", n))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchIdentifier, "identifier", "case_id", "identifier column carried into the output")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "write links to this file instead of stdout")
	rootCmd.AddCommand(searchCmd)
}
