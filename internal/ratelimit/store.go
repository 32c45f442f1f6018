package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/astrobyab/consult-backend/internal/logger"
)

const keyPrefix = "astrobyab:ratelimit"

// Store счётчик запросов и функция освобождения его ресурсов.
type Store struct {
	limiter.Store
	Shared bool
	close  func() error
}

// Close освобождает соединение с Redis, если оно есть.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStore выбирает хранилище счётчиков: Redis, если задан redisURL, иначе память процесса.
// Общий Redis нужен, когда запущено несколько инстансов.
func NewStore(ctx context.Context, redisURL string) (*Store, error) {
	if redisURL == "" {
		return &Store{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          keyPrefix,
			CleanUpInterval: time.Minute,
		})}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   keyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}

	logger.Entry(logrus.Fields{"addr": opts.Addr}).Info("Rate limit counters stored in Redis")
	return &Store{Store: store, Shared: true, close: client.Close}, nil
}
