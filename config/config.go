package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mylxsw/glacier/infra"
	"github.com/mylxsw/glacier/starter/app"
)

type Config struct {
	// Listen 监听地址
	Listen string `json:"listen" yaml:"listen"`
	// BaseURL 对外访问地址，用于生成分享链接
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Prometheus 监控访问密钥
	PrometheusToken string `json:"-" yaml:"prometheus_token"`
	// 是否启用跨域支持
	EnableCORS bool `json:"enable_cors" yaml:"enable_cors"`

	// DBURI 数据库连接地址
	DBURI string `json:"db_uri" yaml:"db_uri"`
	// Redis
	RedisHost     string `json:"redis_host" yaml:"redis_host"`
	RedisPort     int    `json:"redis_port" yaml:"redis_port"`
	RedisPassword string `json:"-" yaml:"redis_password"`

	// EnableRateLimit 是否启用基于客户端 IP 的请求限流
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`
	// RateLimitPerMinute 生成类接口每个 IP 每分钟最多请求次数
	RateLimitPerMinute int `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	// 七牛云存储
	StorageAppKey    string `json:"storage_appkey" yaml:"storage_appkey"`
	StorageAppSecret string `json:"-" yaml:"storage_secret"`
	StorageBucket    string `json:"storage_bucket" yaml:"storage_bucket"`
	StorageDomain    string `json:"storage_domain" yaml:"storage_domain"`
	StorageRegion    string `json:"storage_region" yaml:"storage_region"`
	StorageCodec     string `json:"storage_codec" yaml:"storage_codec"`
	// StorageMaxAge 存储空间的缓存时间（秒），0 表示不修改
	StorageMaxAge int64 `json:"storage_max_age" yaml:"storage_max_age"`

	// 豆包 Seedream 图片生成
	SeedreamServer  string        `json:"seedream_server" yaml:"seedream_server"`
	SeedreamKey     string        `json:"-" yaml:"seedream_key"`
	SeedreamModel   string        `json:"seedream_model" yaml:"seedream_model"`
	SeedreamTimeout time.Duration `json:"seedream_timeout" yaml:"seedream_timeout"`

	// 诗词生成使用的大语言模型（OpenAI 兼容接口）
	EnableLLM bool   `json:"enable_llm" yaml:"enable_llm"`
	LLMServer string `json:"llm_server" yaml:"llm_server"`
	LLMKey    string `json:"-" yaml:"llm_key"`
	LLMModel  string `json:"llm_model" yaml:"llm_model"`

	// 图片处理流水线
	FetchTimeout        time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`
	SignedURLExpireDays int           `json:"signed_url_expire_days" yaml:"signed_url_expire_days"`
	BatchConcurrency    int           `json:"batch_concurrency" yaml:"batch_concurrency"`
	SupplementDelay     time.Duration `json:"supplement_delay" yaml:"supplement_delay"`

	// FontPath 诗词卡片使用的字体文件
	FontPath string `json:"font_path" yaml:"font_path"`
}

func (conf *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", conf.RedisHost, conf.RedisPort)
}

// StorageEnabled 是否配置了对象存储
func (conf *Config) StorageEnabled() bool {
	return conf.StorageAppKey != "" && conf.StorageAppSecret != "" && conf.StorageBucket != ""
}

func Register(ins *app.App) {
	initCmdFlags(ins)

	ins.Singleton(func(ctx infra.FlagContext) *Config {
		return &Config{
			Listen:          ctx.String("listen"),
			BaseURL:         strings.TrimRight(ctx.String("base-url"), "/"),
			PrometheusToken: ctx.String("prometheus-token"),
			EnableCORS:      ctx.Bool("enable-cors"),

			DBURI: ctx.String("db-uri"),

			RedisHost:     ctx.String("redis-host"),
			RedisPort:     ctx.Int("redis-port"),
			RedisPassword: ctx.String("redis-password"),

			EnableRateLimit:    ctx.Bool("enable-rate-limit"),
			RateLimitPerMinute: ctx.Int("rate-limit-per-minute"),

			StorageAppKey:    ctx.String("storage-appkey"),
			StorageAppSecret: ctx.String("storage-secret"),
			StorageBucket:    ctx.String("storage-bucket"),
			StorageDomain:    strings.TrimRight(ctx.String("storage-domain"), "/"),
			StorageRegion:    ctx.String("storage-region"),
			StorageCodec:     strings.ToLower(ctx.String("storage-codec")),
			StorageMaxAge:    int64(ctx.Int("storage-max-age")),

			SeedreamServer:  strings.TrimRight(ctx.String("seedream-server"), "/"),
			SeedreamKey:     ctx.String("seedream-key"),
			SeedreamModel:   ctx.String("seedream-model"),
			SeedreamTimeout: time.Duration(ctx.Int("seedream-timeout")) * time.Second,

			EnableLLM: ctx.Bool("enable-llm"),
			LLMServer: ctx.String("llm-server"),
			LLMKey:    ctx.String("llm-key"),
			LLMModel:  ctx.String("llm-model"),

			FetchTimeout:        time.Duration(ctx.Int("fetch-timeout")) * time.Second,
			SignedURLExpireDays: ctx.Int("signed-url-expire-days"),
			BatchConcurrency:    ctx.Int("batch-concurrency"),
			SupplementDelay:     time.Duration(ctx.Int("supplement-delay-ms")) * time.Millisecond,

			FontPath: ctx.String("font-path"),
		}
	})
}
