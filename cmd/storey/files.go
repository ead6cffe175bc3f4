package main

import (
	"fmt"

	"Storey/internal/calc/reformat"
	"Storey/internal/engine/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) reformatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reformat FILE",
		Short: "Append a DCR-ranked drift sheet to an exported story drift workbook",
		Long: `Read the story drift table on the first sheet of FILE, keep the drift
combinations, compute DCR against a drift of 0.01 and append the rows,
largest DCR first, as a new sheet. The workbook is saved in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := reformat.ReformatFile(args[0])
			if err != nil {
				return err
			}
			a.log.Info("drift table reformatted", zap.String("file", args[0]), zap.String("sheet", sheet))
			fmt.Fprintf(cmd.OutOrStdout(), "added sheet %q to %s\n", sheet, args[0])
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import SNAPSHOT",
		Short: "Store a result snapshot in the result database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			if a.model != "" {
				snap.Model = a.model
			}
			db, err := a.openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Import(cmd.Context(), snap); err != nil {
				return err
			}
			a.log.Info("snapshot imported", zap.String("model", snap.Model),
				zap.Int("combinations", len(snap.Combinations)),
				zap.Int("story_drifts", len(snap.StoryDrifts)),
				zap.Int("joint_drifts", len(snap.JointDrifts)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported model %q (%d combinations)\n", snap.Model, len(snap.Combinations))
			return nil
		},
	}
}

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models stored in the result database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			models, err := db.Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}
