package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/pushover"
	"github.com/bark-labs/pushover-cli/internal/storage"
)

// Notifier is the subset of the Pushover client the services rely on.
type Notifier interface {
	ValidateAndSend(ctx context.Context, req model.NotificationRequest) error
	ListSounds(ctx context.Context) ([]model.Sound, error)
}

var _ Notifier = (*pushover.Client)(nil)

// ErrClientNotConfigured is returned when no Notifier was supplied.
var ErrClientNotConfigured = errors.New("pushover client not configured")

// NotifyService sends notifications and records the outcome when a store is
// configured.
type NotifyService struct {
	client Notifier
	store  storage.Store
	logger *zap.Logger
}

// NewNotifyService builds NotifyService. store may be nil.
func NewNotifyService(client Notifier, store storage.Store, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyService{client: client, store: store, logger: logger.Named("notify")}
}

// Send validates the device, sends the notification and records the attempt.
// The returned error is the client's error, unchanged.
func (s *NotifyService) Send(ctx context.Context, req model.NotificationRequest) (model.DeliveryResult, error) {
	if s.client == nil {
		return model.DeliveryResult{}, ErrClientNotConfigured
	}
	result := model.DeliveryResult{
		Device: req.Device,
		Status: model.DeliveryStatusSuccess,
	}
	err := s.client.ValidateAndSend(ctx, req)
	if err != nil {
		result.Status = model.DeliveryStatusFailed
		result.Message = err.Error()
		result.Diagnostics = pushover.Diagnostics(err)
		s.logger.Info("notification not delivered", zap.String("device", req.Device), zap.Error(err))
	} else {
		s.logger.Info("notification delivered", zap.String("device", req.Device))
	}
	s.appendLog(ctx, req, result)
	return result, err
}

// Sounds lists the alert tones supported by the service.
func (s *NotifyService) Sounds(ctx context.Context) ([]model.Sound, error) {
	if s.client == nil {
		return nil, ErrClientNotConfigured
	}
	sounds, err := s.client.ListSounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sounds: %w", err)
	}
	return sounds, nil
}

func (s *NotifyService) appendLog(ctx context.Context, req model.NotificationRequest, result model.DeliveryResult) {
	if s.store == nil {
		return
	}
	entry := &model.DeliveryLog{
		Device:   req.Device,
		Title:    pushover.Trim(req.Title, pushover.TitleLimit),
		Message:  pushover.Trim(req.Message, pushover.MessageLimit),
		Priority: req.Priority,
		Sound:    req.Sound,
		Result:   result.Message,
		Status:   result.Status,
	}
	if err := s.store.AppendDeliveryLog(ctx, entry); err != nil {
		s.logger.Warn("append delivery log failed", zap.Error(err))
	}
}
