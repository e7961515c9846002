package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var bucketDeliveryLog = []byte("delivery_logs")

// Store is a BoltDB-backed Store implementation.
type Store struct {
	db *bolt.DB
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeliveryLog)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendDeliveryLog stores a send attempt and assigns its ID.
func (s *Store) AppendDeliveryLog(ctx context.Context, log *model.DeliveryLog) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketDeliveryLog)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		log.ID = id
		payload, err := json.Marshal(log)
		if err != nil {
			return err
		}
		return bkt.Put(itob(id), payload)
	})
}

// GetDeliveryLog fetches a single log entry by ID.
func (s *Store) GetDeliveryLog(ctx context.Context, id uint64) (*model.DeliveryLog, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var result *model.DeliveryLog
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDeliveryLog).Get(itob(id))
		if v == nil {
			return storage.ErrNotFound
		}
		var log model.DeliveryLog
		if err := json.Unmarshal(v, &log); err != nil {
			return err
		}
		result = &log
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListDeliveryLogs returns all delivery logs in insertion order.
func (s *Store) ListDeliveryLogs(ctx context.Context) ([]*model.DeliveryLog, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var logs []*model.DeliveryLog
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketDeliveryLog)
		return bkt.ForEach(func(_, v []byte) error {
			var log model.DeliveryLog
			if err := json.Unmarshal(v, &log); err != nil {
				return err
			}
			copied := log
			logs = append(logs, &copied)
			return nil
		})
	})
	return logs, err
}

func itob(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
