package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"geoform/internal/config"
	"geoform/internal/masters"
)

func newSeedCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load state, district and block CSV masters into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("masters") {
				_ = config.Set(config.KeyBackendMastersDir, dir)
			}
			mastersDir := strings.TrimSpace(config.GetString(config.KeyBackendMastersDir))
			if mastersDir == "" {
				return errors.New("seed: missing --masters")
			}

			ctx := cmd.Context()
			store, err := masters.Open(ctx, config.GetString(config.KeyBackendDatabase))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := store.Seed(ctx, mastersDir, a.logs.Logger("seed"))
			if err != nil {
				return err
			}
			counts, err := store.Counts(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"inserted %d states, %d districts, %d blocks (%d skipped)\ntotal %d states, %d districts, %d blocks in %s\n",
				report.States, report.Districts, report.Blocks, report.Skipped,
				counts.States, counts.Districts, counts.Blocks, store.Path())
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "masters", "", "Directory holding state.csv, district.csv and block.csv")
	return cmd
}
