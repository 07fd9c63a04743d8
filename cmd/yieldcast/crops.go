package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/resources"
)

func cropsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crops [crop...]",
		Short: "Show the planting calendar",
		Long:  "Show planting and harvest seasons, growing days, climate needs and regions for each crop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := resources.DefaultCatalog()
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = catalog.Crops()
			}

			entries := make([]resources.CalendarEntry, 0, len(names))
			for _, name := range names {
				entry, err := catalog.Calendar(name)
				if err != nil {
					return inputError(err)
				}
				entries = append(entries, entry)
			}

			fmt.Fprint(cmd.OutOrStdout(), cli.RenderCalendar(names, entries))
			return nil
		},
	}
}
