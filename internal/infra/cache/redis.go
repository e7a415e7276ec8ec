package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

const (
	tokenKey          = "dramabox:token"
	deliveryKeyPrefix = "dramabox:deliveries:"
)

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect создаёт клиента Redis и проверяет соединение.
func Connect(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisTokenStore делит токен API между экземплярами бота.
type RedisTokenStore struct {
	client *redis.Client
}

var _ domain.TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore создаёт хранилище токена.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// Load возвращает токен, если он есть.
func (s *RedisTokenStore) Load(ctx context.Context) (string, bool, error) {
	start := time.Now()
	token, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", "token", start, nil)
		return "", false, nil
	}
	metrics.ObserveNetworkRequest("redis", "get", "token", start, err)
	if err != nil {
		return "", false, err
	}
	return token, token != "", nil
}

// Save сохраняет токен.
func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	start := time.Now()
	err := s.client.Set(ctx, tokenKey, token, 0).Err()
	metrics.ObserveNetworkRequest("redis", "set", "token", start, err)
	return err
}

// CompareAndClear атомарно удаляет токен, если он равен expected.
func (s *RedisTokenStore) CompareAndClear(ctx context.Context, expected string) (bool, error) {
	start := time.Now()
	deleted, err := compareAndDelete.Run(ctx, s.client, []string{tokenKey}, expected).Int()
	metrics.ObserveNetworkRequest("redis", "compare_and_delete", "token", start, err)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// RedisDeliveryCounter считает доставки через INCR.
type RedisDeliveryCounter struct {
	client *redis.Client
}

var _ domain.DeliveryCounter = (*RedisDeliveryCounter)(nil)

// NewRedisDeliveryCounter создаёт счётчик.
func NewRedisDeliveryCounter(client *redis.Client) *RedisDeliveryCounter {
	return &RedisDeliveryCounter{client: client}
}

// Increment увеличивает счётчик чата и возвращает новое значение.
func (c *RedisDeliveryCounter) Increment(ctx context.Context, chatID int64) (int64, error) {
	start := time.Now()
	n, err := c.client.Incr(ctx, deliveryKeyPrefix+strconv.FormatInt(chatID, 10)).Result()
	metrics.ObserveNetworkRequest("redis", "incr", "deliveries", start, err)
	return n, err
}
