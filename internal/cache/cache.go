package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss сигнализирует об отсутствии ключа в кеше
var ErrCacheMiss = errors.New("cache: key not found")

// Cache абстрагирует TTL key-value хранилище (Redis в продакшене).
// Кеш не является источником истины: все вызывающие обязаны уметь
// работать при его недоступности.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// LinkKey возвращает ключ кеша для короткой ссылки
func LinkKey(code string) string {
	return fmt.Sprintf("link:%s", code)
}

// RateLimitKey возвращает ключ кеша для окна лимитера по IP
func RateLimitKey(ip string) string {
	return fmt.Sprintf("rate_limit:%s", ip)
}
