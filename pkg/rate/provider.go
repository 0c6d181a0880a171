package rate

import (
	"github.com/go-redis/redis_rate/v10"
	"github.com/mylxsw/glacier/infra"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(NewLimiter)
	binder.MustSingleton(func(limiter *redis_rate.Limiter) *RateLimiter {
		return New(limiter)
	})
}
