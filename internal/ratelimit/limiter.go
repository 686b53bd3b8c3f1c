package ratelimit

import (
	"MinLink-Backend/internal/cache"
	"MinLink-Backend/internal/config"
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of an admission-control check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// windowState is the payload stored in the cache per IP.
type windowState struct {
	Count     int       `json:"count"`
	ResetTime time.Time `json:"resetTime"`
}

// Limiter enforces a fixed window of at most MaxRequests link creations per
// client IP. The cache is the fast path; every decision is mirrored to the
// database so a cache flush does not reset windows. When the cache is
// unavailable the same window logic runs against the database alone, and when
// the database is also unavailable the limiter fails open: availability is
// preferred over strict enforcement for this control.
//
// The cache read-modify-write is not serialized across concurrent requests
// from one IP. Two in-flight requests may observe the same count and both be
// admitted; that undercounting is an accepted approximation.
type Limiter struct {
	cache   cache.Cache
	storage repository.Storage
	cfg     *config.RateLimit
	log     *zap.Logger
}

func New(c cache.Cache, storage repository.Storage, cfg *config.RateLimit, log *zap.Logger) *Limiter {
	return &Limiter{
		cache:   c,
		storage: storage,
		cfg:     cfg,
		log:     log,
	}
}

// MaxRequests returns the configured per-window request cap.
func (l *Limiter) MaxRequests() int {
	return l.cfg.MaxRequests
}

// Check decides whether a request from the given IP may proceed. The literal
// value "unknown" is a valid key that pools all unattributable clients.
func (l *Limiter) Check(ctx context.Context, ip string) Result {
	now := time.Now()
	key := cache.RateLimitKey(ip)

	raw, err := l.cache.Get(ctx, key)
	switch {
	case err == nil:
		var state windowState
		if jsonErr := json.Unmarshal([]byte(raw), &state); jsonErr != nil {
			// Corrupt payload: discard and start a fresh window.
			l.log.Warn("corrupt rate limit cache entry", zap.String("ip", ip), zap.Error(jsonErr))
			l.deleteCacheEntry(ctx, key, ip)
			return l.startWindow(ctx, ip, key, now)
		}

		if now.Before(state.ResetTime) {
			if state.Count >= l.cfg.MaxRequests {
				return Result{Allowed: false, Remaining: 0, ResetTime: state.ResetTime}
			}
			return l.incrementWindow(ctx, ip, key, state)
		}

		// Window expired, clear the stale entry before opening a new one.
		l.deleteCacheEntry(ctx, key, ip)
		return l.startWindow(ctx, ip, key, now)

	case errors.Is(err, cache.ErrCacheMiss):
		return l.startWindow(ctx, ip, key, now)

	default:
		l.log.Warn("rate limit cache unavailable, falling back to database",
			zap.String("ip", ip), zap.Error(err))
		return l.checkDatabase(ctx, ip, now)
	}
}

// incrementWindow advances the counter of a live window in cache and mirrors
// the new count to the database.
func (l *Limiter) incrementWindow(ctx context.Context, ip, key string, state windowState) Result {
	state.Count++

	// TTL is the remaining window time, so the cache entry never outlives
	// its logical window.
	l.writeCacheEntry(ctx, ip, key, state, time.Until(state.ResetTime))
	l.mirrorToDatabase(ctx, ip, state)

	return Result{
		Allowed:   true,
		Remaining: l.cfg.MaxRequests - state.Count,
		ResetTime: state.ResetTime,
	}
}

// startWindow opens a fresh window with count=1 in both stores.
func (l *Limiter) startWindow(ctx context.Context, ip, key string, now time.Time) Result {
	state := windowState{Count: 1, ResetTime: now.Add(l.cfg.Window)}

	l.writeCacheEntry(ctx, ip, key, state, l.cfg.Window)
	l.mirrorToDatabase(ctx, ip, state)

	return Result{
		Allowed:   true,
		Remaining: l.cfg.MaxRequests - 1,
		ResetTime: state.ResetTime,
	}
}

// checkDatabase re-implements the window logic against durable storage when
// the cache is unreachable.
func (l *Limiter) checkDatabase(ctx context.Context, ip string, now time.Time) Result {
	record, err := l.storage.GetRateLimit(ctx, ip)
	if err != nil && !errors.Is(err, repository.ErrRateLimitNotFound) {
		// Both stores are down: fail open rather than deny all service.
		l.log.Error("rate limit database fallback failed, allowing request",
			zap.String("ip", ip), zap.Error(err))
		return Result{
			Allowed:   true,
			Remaining: l.cfg.MaxRequests - 1,
			ResetTime: now.Add(l.cfg.Window),
		}
	}

	if record != nil && now.Before(record.ResetTime) {
		if record.Count >= l.cfg.MaxRequests {
			return Result{Allowed: false, Remaining: 0, ResetTime: record.ResetTime}
		}

		record.Count++
		if err := l.storage.UpsertRateLimit(ctx, record); err != nil {
			l.log.Error("failed to update rate limit record", zap.String("ip", ip), zap.Error(err))
		}

		return Result{
			Allowed:   true,
			Remaining: l.cfg.MaxRequests - record.Count,
			ResetTime: record.ResetTime,
		}
	}

	// Absent or expired: open a fresh window in the database.
	fresh := &domain.RateLimitRecord{
		IP:        ip,
		Count:     1,
		ResetTime: now.Add(l.cfg.Window),
	}
	if err := l.storage.UpsertRateLimit(ctx, fresh); err != nil {
		l.log.Error("failed to create rate limit record", zap.String("ip", ip), zap.Error(err))
	}

	return Result{
		Allowed:   true,
		Remaining: l.cfg.MaxRequests - 1,
		ResetTime: fresh.ResetTime,
	}
}

func (l *Limiter) writeCacheEntry(ctx context.Context, ip, key string, state windowState, ttl time.Duration) {
	payload, err := json.Marshal(state)
	if err != nil {
		l.log.Error("failed to marshal rate limit state", zap.String("ip", ip), zap.Error(err))
		return
	}
	if err := l.cache.Set(ctx, key, string(payload), ttl); err != nil {
		l.log.Warn("failed to write rate limit cache entry", zap.String("ip", ip), zap.Error(err))
	}
}

func (l *Limiter) deleteCacheEntry(ctx context.Context, key, ip string) {
	if err := l.cache.Del(ctx, key); err != nil {
		l.log.Warn("failed to delete rate limit cache entry", zap.String("ip", ip), zap.Error(err))
	}
}

func (l *Limiter) mirrorToDatabase(ctx context.Context, ip string, state windowState) {
	record := &domain.RateLimitRecord{
		IP:        ip,
		Count:     state.Count,
		ResetTime: state.ResetTime,
	}
	if err := l.storage.UpsertRateLimit(ctx, record); err != nil {
		l.log.Warn("failed to mirror rate limit to database", zap.String("ip", ip), zap.Error(err))
	}
}
