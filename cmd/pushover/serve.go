package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bark-labs/pushover-cli/internal/crypto"
	"github.com/bark-labs/pushover-cli/internal/server"
	"github.com/bark-labs/pushover-cli/internal/service"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay in front of the Pushover API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := cfg.CheckRelayAuth(); err != nil {
				return err
			}
			client, err := newClient(cfg, log, nil)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			authSvc, err := service.NewAuthService(cfg)
			if err != nil {
				return fmt.Errorf("init auth: %w", err)
			}
			notifySvc := service.NewNotifyService(client, store, log)
			logSvc := service.NewDeliveryLogService(store)
			srv := server.New(cfg, notifySvc, logSvc, authSvc, log)
			log.Info("relay configured",
				zap.String("app_token", crypto.Mask(cfg.API.AppToken)),
				zap.String("user_token", crypto.Mask(cfg.API.UserToken)),
				zap.Bool("auth", authSvc.Enabled()),
				zap.Bool("history", store != nil),
			)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case <-cmd.Context().Done():
			}

			log.Info("shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn("shutdown error", zap.Error(err))
			}
			return nil
		},
	}
}
