package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimitStore counts hits for a key inside a fixed window and reports the
// count including the current hit together with the time left in the window.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

type bucket struct {
	count int
	until time.Time
}

// MemoryStore keeps fixed-window counters in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket), now: time.Now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.until) {
		b = &bucket{until: now.Add(window)}
		s.buckets[key] = b
		s.sweep(now)
	}
	b.count++
	return b.count, b.until.Sub(now), nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, b := range s.buckets {
		if !now.Before(b.until) {
			delete(s.buckets, k)
		}
	}
}

// RedisStore shares counters across gateway replicas.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Hit increments the counter and reads its TTL. A key without a TTL, either
// fresh or left behind by a failed EXPIRE, gets the window applied again so it
// can never count forever.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	fullKey := s.prefix + key
	count, err := s.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	left, err := s.client.PTTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit pttl: %w", err)
	}
	if left < 0 {
		if err := s.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("rate limit expire: %w", err)
		}
		left = window
	}
	return int(count), left, nil
}

// RateLimit rejects POST requests beyond limit per window and client IP with
// 429. Other methods pass through. A limit of zero or less disables it. Store
// errors fail open.
func RateLimit(store RateLimitStore, limit int, per time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIPForRateLimit(r)
			count, left, err := store.Hit(r.Context(), ip, per)
			if err != nil {
				logger.Warn().Err(err).Str("ip", ip).Msg("rate limit store unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				secs := int(left.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit keys on the connection address only. Forwarding headers
// are honoured upstream by chi's RealIP when the router is configured to trust
// a proxy.
func clientIPForRateLimit(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
