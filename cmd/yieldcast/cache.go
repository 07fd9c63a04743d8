package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/cli"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached AI recommendations",
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached recommendations older than a given age",
		RunE: func(cmd *cobra.Command, _ []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.PruneCache(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed %d cached recommendations", n)))
			return nil
		},
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "age threshold")

	cmd.AddCommand(prune)
	return cmd
}
