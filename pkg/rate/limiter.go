package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimitExceeded = errors.New("请求频率过高，请稍后再试")

func NewLimiter(rdb *redis.Client) *redis_rate.Limiter {
	return redis_rate.NewLimiter(rdb)
}

func MaxRequestsInPeriod(count int, period time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: count, Burst: count, Period: period}
}

// Allower 限流器
type Allower interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

type RateLimiter struct {
	limiter Allower
}

func New(limiter *redis_rate.Limiter) *RateLimiter {
	return &RateLimiter{limiter: limiter}
}

func NewWithAllower(limiter Allower) *RateLimiter {
	return &RateLimiter{limiter: limiter}
}

// Allow 检查是否允许访问
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := rl.limiter.Allow(ctx, key, limit)
	if err != nil {
		return err
	}

	if res.Allowed <= 0 {
		return ErrRateLimitExceeded
	}

	return nil
}

// ClientKey 基于客户端 IP 的限流 key，scope 用于区分不同类型的接口
func ClientKey(scope, clientIP string) string {
	return fmt.Sprintf("festival:rate:%s:%s", scope, clientIP)
}
