package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/storage"
)

// ErrHistoryDisabled is returned when no store was configured.
var ErrHistoryDisabled = errors.New("delivery history is disabled")

const allDevices = "*"

// DeliveryLogService provides filtering and statistics over delivery logs.
type DeliveryLogService struct {
	store storage.Store
}

// NewDeliveryLogService builds the delivery log service.
func NewDeliveryLogService(store storage.Store) *DeliveryLogService {
	return &DeliveryLogService{store: store}
}

// Query returns paginated logs, newest first.
func (s *DeliveryLogService) Query(ctx context.Context, filter model.DeliveryLogFilter) (*model.DeliveryLogPage, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := len(logs)
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	return &model.DeliveryLogPage{
		Data:     logs[start:end],
		Total:    total,
		Pages:    (total + filter.PageSize - 1) / filter.PageSize,
		PageNum:  filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Get returns a single delivery log. storage.ErrNotFound is returned for
// unknown IDs.
func (s *DeliveryLogService) Get(ctx context.Context, id uint64) (*model.DeliveryLog, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.GetDeliveryLog(ctx, id)
}

// CountByDate aggregates logs per day, month or year.
func (s *DeliveryLogService) CountByDate(ctx context.Context, dateType string, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.DeliveryLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	switch strings.ToLower(dateType) {
	case "year":
		layout = "2006"
	case "month":
		layout = "2006-01"
	}

	counter := make(map[string]int)
	for _, log := range logs {
		counter[log.CreatedAt.Format(layout)]++
	}
	return mapToKV(counter, "date"), nil
}

// CountByStatus aggregates by delivery status.
func (s *DeliveryLogService) CountByStatus(ctx context.Context, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.DeliveryLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}
	counter := make(map[string]int)
	for _, log := range logs {
		status := log.Status
		if status == "" {
			status = "UNKNOWN"
		}
		counter[status]++
	}
	return mapToKV(counter, "status"), nil
}

// CountByDevice aggregates by target device and splits each device's count
// into delivered and failed attempts. Sends without a device went to every
// device of the user and are counted under "*".
func (s *DeliveryLogService) CountByDevice(ctx context.Context, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.DeliveryLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}
	type tally struct{ success, failed int }
	counter := make(map[string]*tally)
	for _, log := range logs {
		device := strings.ToLower(strings.TrimSpace(log.Device))
		if device == "" {
			device = allDevices
		}
		t, ok := counter[device]
		if !ok {
			t = &tally{}
			counter[device] = t
		}
		if log.Status == model.DeliveryStatusSuccess {
			t.success++
		} else {
			t.failed++
		}
	}
	result := make([]map[string]any, 0, len(counter))
	for device, t := range counter {
		result = append(result, map[string]any{
			"device":  device,
			"count":   t.success + t.failed,
			"success": t.success,
			"failed":  t.failed,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["device"].(string) < result[j]["device"].(string)
	})
	return result, nil
}

func (s *DeliveryLogService) filteredLogs(ctx context.Context, filter model.DeliveryLogFilter) ([]*model.DeliveryLog, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	all, err := s.store.ListDeliveryLogs(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]*model.DeliveryLog, 0, len(all))
	for _, log := range all {
		if filter.Device != "" && !strings.EqualFold(log.Device, filter.Device) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(log.Status, filter.Status) {
			continue
		}
		if filter.BeginTime != nil && log.CreatedAt.Before(filter.BeginTime.UTC()) {
			continue
		}
		if filter.EndTime != nil && log.CreatedAt.After(filter.EndTime.UTC()) {
			continue
		}
		matches = append(matches, log)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func mapToKV(counter map[string]int, key string) []map[string]any {
	result := make([]map[string]any, 0, len(counter))
	for k, v := range counter {
		result = append(result, map[string]any{
			key:     k,
			"count": v,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][key].(string) < result[j][key].(string)
	})
	return result
}
