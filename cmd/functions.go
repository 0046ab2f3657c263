package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/retail-sim/internal/enrich"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the treatment functions available to enrich",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := enrich.NewRegistry().List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}
