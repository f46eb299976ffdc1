package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rundemo/rundemo/pkg/stress"
)

func newStressCmd(configPath *string) *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run the CPU workload locally and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("iterations") {
				iterations = cfg.Stress.DefaultIterations
			}
			if iterations <= 0 || iterations > cfg.Stress.MaxIterations {
				return fmt.Errorf("iterations must be between 1 and %d", cfg.Stress.MaxIterations)
			}

			res := stress.New(nil).Run(iterations)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", stress.DefaultIterations, "number of loop iterations")
	return cmd
}
