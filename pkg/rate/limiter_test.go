package rate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/mylxsw/festival-server/pkg/rate"
	"github.com/stretchr/testify/assert"
)

type countingAllower struct {
	counts map[string]int
	err    error
}

func (c *countingAllower) Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if c.err != nil {
		return nil, c.err
	}

	c.counts[key]++
	if c.counts[key] > limit.Burst {
		return &redis_rate.Result{Limit: limit, Allowed: 0}, nil
	}

	return &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: limit.Burst - c.counts[key]}, nil
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := rate.NewWithAllower(&countingAllower{counts: map[string]int{}})
	limit := rate.MaxRequestsInPeriod(2, time.Minute)
	key := rate.ClientKey("generate", "127.0.0.1")

	assert.NoError(t, rl.Allow(context.TODO(), key, limit))
	assert.NoError(t, rl.Allow(context.TODO(), key, limit))
	assert.ErrorIs(t, rl.Allow(context.TODO(), key, limit), rate.ErrRateLimitExceeded)

	assert.NoError(t, rl.Allow(context.TODO(), rate.ClientKey("generate", "10.0.0.1"), limit))
}

func TestRateLimiter_AllowError(t *testing.T) {
	rl := rate.NewWithAllower(&countingAllower{err: errors.New("redis down")})
	err := rl.Allow(context.TODO(), "k", rate.MaxRequestsInPeriod(1, time.Second))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, rate.ErrRateLimitExceeded)
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "festival:rate:generate:1.2.3.4", rate.ClientKey("generate", "1.2.3.4"))
}
