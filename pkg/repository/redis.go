package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrCacheMiss is returned by cache reads when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// RedisSessions issues anonymous session tokens. A token stays valid for ttl
// after its last use.
type RedisSessions struct {
	repo *RedisRepository
	ttl  time.Duration
}

func NewRedisSessions(repo *RedisRepository, ttl time.Duration) *RedisSessions {
	return &RedisSessions{repo: repo, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisSessions) Mint(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		token := uuid.NewString()
		ok, err := s.repo.client.SetNX(ctx, sessionKey(token), time.Now().Unix(), s.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}
	return "", errors.New("could not mint a unique session token")
}

// Valid reports whether token is live and extends its expiry if so.
func (s *RedisSessions) Valid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.repo.client.Expire(ctx, sessionKey(token), s.ttl).Result()
}

func (s *RedisSessions) Forget(ctx context.Context, token string) error {
	return s.repo.client.Del(ctx, sessionKey(token)).Err()
}

// OrderCache keeps read-only copies of orders for the order lookup endpoint.
type OrderCache struct {
	repo *RedisRepository
	ttl  time.Duration
}

func NewOrderCache(repo *RedisRepository, ttl time.Duration) *OrderCache {
	return &OrderCache{repo: repo, ttl: ttl}
}

func orderKey(id uint) string {
	return fmt.Sprintf("order:%d", id)
}

func (c *OrderCache) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := c.repo.GetJSON(ctx, orderKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderCache) Set(ctx context.Context, order *models.Order) error {
	return c.repo.SetJSON(ctx, orderKey(order.ID), order, c.ttl)
}

func (c *OrderCache) Invalidate(ctx context.Context, id uint) error {
	return c.repo.client.Del(ctx, orderKey(id)).Err()
}
