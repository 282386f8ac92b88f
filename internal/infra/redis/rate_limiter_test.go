//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

var _ RedisClient = (*fakeRedis)(nil)

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) { return "", errors.New("miss") }
func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expires[key] = expiration
	return nil
}
func (f *fakeRedis) Del(ctx context.Context, keys ...string) error { return nil }
func (f *fakeRedis) Close() error                                   { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	key := ActionKey("initiate", "254712345678")

	t.Run("allows up to the limit then refuses", func(t *testing.T) {
		// --- Arrange ---
		fr := newFakeRedis()
		rl := NewRateLimiter(fr)

		// --- Act ---
		var allowed int
		for i := 0; i < 5; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				allowed++
			}
		}

		// --- Assert ---
		if allowed != 3 {
			t.Errorf("expected 3 allowed calls, got %d", allowed)
		}
		if fr.expires[key] != time.Minute {
			t.Errorf("expected window to be set on first hit, got %v", fr.expires[key])
		}
	})

	t.Run("propagates redis errors", func(t *testing.T) {
		fr := newFakeRedis()
		fr.incrErr = errors.New("conn refused")
		ok, err := NewRateLimiter(fr).Allow(ctx, key, 3, time.Minute)
		if err == nil || ok {
			t.Fatalf("expected error and refusal, got ok=%v err=%v", ok, err)
		}
	})
}

func TestActionKey(t *testing.T) {
	if got := ActionKey("initiate", "254700000000"); got != "rate_limit:initiate:254700000000" {
		t.Fatalf("unexpected key %q", got)
	}
}
