package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rundemo/rundemo/pkg/chat"
	"github.com/rundemo/rundemo/pkg/hostinfo"
	"github.com/rundemo/rundemo/pkg/secretcache"
	"github.com/rundemo/rundemo/pkg/server"
	"github.com/rundemo/rundemo/pkg/stress"
	"github.com/rundemo/rundemo/pkg/telemetry"
	"github.com/rundemo/rundemo/pkg/tracker"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName, version, cfg.Telemetry.Insecure)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					logger.Warn().Err(err).Msg("telemetry shutdown")
				}
			}()

			instruments, err := telemetry.NewInstruments(nil)
			if err != nil {
				return err
			}

			gw := newGateway(cfg, logger)
			defer func() { _ = gw.Close() }()

			deps := server.Deps{
				Secrets: gw,
				Chat: chat.New(chat.Config{
					URL:          cfg.Chat.URL,
					Model:        cfg.Chat.Model,
					MaxTokens:    cfg.Chat.MaxTokens,
					Temperature:  cfg.Chat.Temperature,
					SystemPrompt: cfg.Chat.SystemPrompt,
				}, nil),
				Keys:        secretcache.New(cfg.Secrets.CacheTTL),
				Info:        hostinfo.New(cfg.Deployment, cfg.Project),
				Stress:      stress.New(nil),
				Instruments: instruments,
				Logger:      logger,
			}

			if cfg.Usage.Enabled {
				tr, err := tracker.New(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("init tracker: %w", err)
				}
				defer func() { _ = tr.Close() }()
				deps.Tracker = tr
			}

			srv, err := server.New(cfg, deps)
			if err != nil {
				return err
			}

			logger.Info().
				Str("version", version).
				Str("service", cfg.Deployment.Service).
				Str("revision", cfg.Deployment.Revision).
				Str("project", cfg.Project).
				Bool("usage_tracking", cfg.Usage.Enabled).
				Msg("starting rundemo")
			return srv.ListenAndServe(ctx)
		},
	}
}
