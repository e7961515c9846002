package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bark-labs/pushover-cli/internal/config"
	"github.com/bark-labs/pushover-cli/internal/crypto"
	"github.com/bark-labs/pushover-cli/internal/logger"
	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/pushover"
	"github.com/bark-labs/pushover-cli/internal/service"
	"github.com/bark-labs/pushover-cli/internal/storage"
	"github.com/bark-labs/pushover-cli/internal/storage/bolt"
)

var (
	errTokensRequired = errors.New("user and application tokens are required for this request")
	errActionFailed   = errors.New("an error occurred, use the '--echo' flag and rerun the command for more information")
)

type rootOptions struct {
	configPath   string
	listSounds   bool
	notification model.NotificationRequest
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pushover",
		Short:         "Send push notifications through Pushover",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts, stdout)
		},
	}
	cmd.SetOut(stdout)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "pushover.yaml", "Path to config file")
	pf.String("app-token", "", "App token for Pushover service")
	pf.String("user-token", "", "User token for Pushover service")
	pf.BoolP("echo", "e", false, "Turn command line echo on")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("history-db", "", "Path to the delivery history database, empty disables history")
	pf.String("base-url", pushover.DefaultBaseURL, "Pushover API base URL")
	_ = pf.MarkHidden("base-url")

	f := cmd.Flags()
	f.BoolVar(&opts.listSounds, "list-sounds", false, "Get a current list of supported sounds from Pushover")
	f.StringVarP(&opts.notification.Message, "message", "m", "", "Body of the notification, max 1024 characters")
	f.StringVarP(&opts.notification.Device, "device", "d", "", "Device to notify, default is all registered devices")
	f.IntVarP(&opts.notification.Priority, "priority", "p", model.PriorityNormal, "Notification priority: -1 low, 0 normal, 1 high")
	f.StringVarP(&opts.notification.Sound, "sound", "s", "", "Notification sound, \"none\" for silent")
	f.StringVarP(&opts.notification.Title, "title", "t", "", "Notification title")
	f.StringVarP(&opts.notification.URL, "url", "u", "", "URL attached to the notification")
	f.StringVarP(&opts.notification.URLTitle, "url-title", "l", "", "Title for the attached URL")
	f.BoolVar(&opts.notification.HTML, "enable-html", false, "Enable HTML formatting")

	cmd.AddCommand(newServeCmd(&opts.configPath), newHistoryCmd(&opts.configPath, stdout))
	return cmd
}

func runRoot(cmd *cobra.Command, opts *rootOptions, stdout io.Writer) error {
	cfg, log, err := bootstrap(cmd, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := newClient(cfg, log, stdout)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if opts.listSounds {
		sounds, err := client.ListSounds(ctx)
		if err != nil {
			log.Debug("list sounds failed", zap.Error(err))
			return errActionFailed
		}
		for _, s := range sounds {
			fmt.Fprintf(stdout, "%s\t%s\n", s.ID, s.Name)
		}
		return nil
	}

	if cfg.API.AppToken == "" || cfg.API.UserToken == "" {
		return errTokensRequired
	}
	if p := opts.notification.Priority; p < model.PriorityLow || p > model.PriorityHigh {
		return fmt.Errorf("priority must be -1, 0 or 1, got %d", p)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewNotifyService(client, store, log)
	if _, err := svc.Send(ctx, opts.notification); err != nil {
		log.Debug("send failed", zap.Error(err))
		return errActionFailed
	}
	return nil
}

func bootstrap(cmd *cobra.Command, configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newClient(cfg *config.Config, log *zap.Logger, stdout io.Writer) (*pushover.Client, error) {
	opts := []pushover.Option{pushover.WithLogger(log)}
	if cfg.API.Echo {
		opts = append(opts, pushover.WithEcho(stdout))
	}
	client, err := pushover.New(cfg.API.BaseURL, cfg.API.AppToken, cfg.API.UserToken, cfg.API.RequestTimeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("init pushover client: %w", err)
	}
	log.Debug("pushover client ready",
		zap.String("base_url", client.BaseURL()),
		zap.String("app_token", crypto.Mask(cfg.API.AppToken)),
		zap.String("user_token", crypto.Mask(cfg.API.UserToken)),
	)
	return client, nil
}

// openStore opens the delivery history when a path is configured. The
// returned store is nil otherwise.
func openStore(cfg *config.Config) (storage.Store, func(), error) {
	if cfg.Storage.Path == "" {
		return nil, func() {}, nil
	}
	store, err := bolt.New(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
