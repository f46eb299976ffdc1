package main

import (
	"github.com/spf13/cobra"

	"github.com/rundemo/rundemo/pkg/hostinfo"
)

func newInfoCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print deployment and host information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hostinfo.New(cfg.Deployment, cfg.Project).Snapshot())
		},
	}
}
