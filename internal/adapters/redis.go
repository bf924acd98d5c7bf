package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

const snapshotKey = "faultwatch:snapshot"

// RedisAdapter mirrors the current snapshot and the latest quotes into
// Redis. The serving path reads only the in-process store; Redis exists
// so a restarted instance warm-starts with the last published snapshot
// instead of an empty dashboard.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(cfg config.RedisConfig) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisAdapter{client: client, ttl: ttl}, nil
}

func (r *RedisAdapter) StoreSnapshot(ctx context.Context, snapshot *domain.DashboardSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, snapshotKey, data, r.ttl).Err()
}

func (r *RedisAdapter) LoadSnapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, err
	}
	var snapshot domain.DashboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *RedisAdapter) SetLatestQuote(ctx context.Context, quote domain.PriceQuote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("faultwatch:quote:%s", quote.Symbol)
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisAdapter) GetLatestQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	key := fmt.Sprintf("faultwatch:quote:%s", symbol)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var quote domain.PriceQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
