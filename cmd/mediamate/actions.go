package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediamate/mediamate/pkg/service/actions"
)

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the registered action types",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := actions.NewRegistry()
			if err := actions.RegisterBuiltins(registry); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tNAME\tDESCRIPTION")
			for _, d := range registry.Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Type, d.Name, d.Description)
			}
			return tw.Flush()
		},
	}
}
