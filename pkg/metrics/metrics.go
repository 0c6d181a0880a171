package metrics

import (
	"fmt"
	"sync"

	"github.com/mylxsw/asteria/log"
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "festival"

var counterVecs = make(map[string]*prometheus.CounterVec)
var lock sync.Mutex

// BuildCounterVec 创建并注册 Counter，相同的 namespace/name 只会注册一次
func BuildCounterVec(namespace, name, help string, tags []string) *prometheus.CounterVec {
	lock.Lock()
	defer lock.Unlock()

	cacheKey := fmt.Sprintf("%s:%s", namespace, name)
	if sv, ok := counterVecs[cacheKey]; ok {
		return sv
	}

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, tags)

	if err := prometheus.Register(counterVec); err != nil {
		log.Errorf("register prometheus metric failed: %v", err)
	}

	counterVecs[cacheKey] = counterVec

	return counterVec
}
