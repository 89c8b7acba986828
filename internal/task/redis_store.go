package task

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/seiggy/lucia/internal/config"
)

// RedisStore is the production Store backend: camelCase JSON records keyed
// by lucia:task:{id}, TTL refreshed on every write. Grounded on
// internal/skills/redis_cache.go's Get/Set-with-TTL pattern in the teacher
// repo.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore builds a RedisStore from cfg. Returns an error if the
// initial ping fails.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", ErrStorageUnavailable, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetTask(ctx context.Context, id string) (*Task, error) {
	val, err := s.client.Get(ctx, TaskKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		log.Debug().Err(err).Str("task_id", id).Msg("task_store_get_error")
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var t Task
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("%w: unmarshal task: %v", ErrStorageUnavailable, err)
	}
	return &t, nil
}

func (s *RedisStore) SetTask(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.client.Set(ctx, TaskKey(t.ID), data, TTL).Err(); err != nil {
		log.Debug().Err(err).Str("task_id", t.ID).Msg("task_store_set_error")
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, id string, next Status, message *Turn) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTaskNotFound
	}
	t.Status.State = next
	t.Status.Message = message
	t.Status.Timestamp = time.Now().UTC()
	return s.SetTask(ctx, t)
}

func (s *RedisStore) GetPushNotification(ctx context.Context, id, cfgID string) ([]byte, error) {
	val, err := s.client.Get(ctx, PushNotificationKey(id, cfgID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return val, nil
}

func (s *RedisStore) SetPushNotificationConfig(ctx context.Context, id, cfgID string, data []byte) error {
	if err := s.client.Set(ctx, PushNotificationKey(id, cfgID), data, TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ListPushNotifications(ctx context.Context, id string) ([][]byte, error) {
	pattern := PushNotificationKey(id, "*")
	var out [][]byte
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		out = append(out, val)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
