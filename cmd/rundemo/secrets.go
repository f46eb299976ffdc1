package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rundemo/rundemo/pkg/config"
	"github.com/rundemo/rundemo/pkg/secretstore"
)

func newSecretsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Read or create secrets in Secret Manager",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get NAME",
			Short: "Print the latest version of a secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				gw, err := openGateway(*configPath)
				if err != nil {
					return err
				}
				defer func() { _ = gw.Close() }()

				v, err := gw.Access(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"secretName":  args[0],
					"secretValue": v.Payload,
					"version":     v.Version,
					"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
				})
			},
		},
		&cobra.Command{
			Use:   "create NAME VALUE",
			Short: "Create a secret with automatic replication and a first version",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				gw, err := openGateway(*configPath)
				if err != nil {
					return err
				}
				defer func() { _ = gw.Close() }()

				created, err := gw.Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"secretName":  created.SecretName,
					"versionName": created.VersionName,
				})
			},
		},
	)
	return cmd
}

func openGateway(configPath string) (*secretstore.Gateway, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newGateway(cfg, newLogger(cfg.LogLevel)), nil
}

func newGateway(cfg *config.Config, logger zerolog.Logger) *secretstore.Gateway {
	return secretstore.New(secretstore.Config{
		Project:         cfg.Project,
		CredentialsFile: cfg.Secrets.CredentialsFile,
		Endpoint:        cfg.Secrets.Endpoint,
	}, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
