package storage

import (
	"context"

	"github.com/bark-labs/pushover-cli/internal/model"
)

// Store abstracts delivery history persistence.
type Store interface {
	AppendDeliveryLog(ctx context.Context, log *model.DeliveryLog) error
	GetDeliveryLog(ctx context.Context, id uint64) (*model.DeliveryLog, error)
	ListDeliveryLogs(ctx context.Context) ([]*model.DeliveryLog, error)
	Close() error
}
