package config

import (
	"github.com/mylxsw/glacier/starter/app"
)

func initCmdFlags(ins *app.App) {
	ins.AddStringFlag("listen", ":8080", "Web 服务监听地址")
	ins.AddStringFlag("base-url", "", "Web 服务的基础 URL，用于生成分享链接，例如 https://festival.example.com")
	ins.AddBoolFlag("enable-migrate", "是否启用迁移，启用后，当数据结构有更新时，会自动更新数据库")
	ins.AddBoolFlag("enable-cors", "是否启用跨域请求支持")
	ins.AddStringFlag("prometheus-token", "", "Prometheus 监控指标访问密钥")
	ins.AddStringFlag("log-path", "", "日志文件存储目录，留空则写入到标准输出")

	ins.AddStringFlag("db-uri", "root:12345@tcp(127.0.0.1:3306)/festival?charset=utf8mb4&parseTime=True&loc=Local", "database url")

	ins.AddStringFlag("redis-host", "127.0.0.1", "redis host")
	ins.AddIntFlag("redis-port", 6379, "redis port")
	ins.AddStringFlag("redis-password", "", "redis password")

	ins.AddBoolFlag("enable-rate-limit", "是否启用基于客户端 IP 的请求限流（依赖 Redis）")
	ins.AddIntFlag("rate-limit-per-minute", 10, "生成类接口每个 IP 每分钟最多请求次数")

	ins.AddStringFlag("storage-appkey", "", "七牛云 APP KEY")
	ins.AddFlags(app.StringEnvFlag("storage-secret", "", "七牛云 APP SECRET", "QINIU_SECRET_KEY"))
	ins.AddStringFlag("storage-bucket", "festival", "七牛云存储 Bucket 名称（私有空间）")
	ins.AddStringFlag("storage-domain", "", "七牛云存储资源访问域名（也可以用 CDN 域名），例如 https://cdn.example.com")
	ins.AddStringFlag("storage-region", "z0", "七牛云存储区域 ID")
	ins.AddStringFlag("storage-codec", "webp", "生成图片的存储格式，支持 webp/jpeg/png")
	ins.AddIntFlag("storage-max-age", 31536000, "启动时设置存储空间的 Cache-Control max-age（秒），0 表示不设置")

	ins.AddStringFlag("seedream-server", "https://ark.cn-beijing.volces.com/api/v3", "豆包 Seedream 服务地址")
	ins.AddFlags(app.StringEnvFlag("seedream-key", "", "豆包 Seedream API Key", "ARK_API_KEY"))
	ins.AddStringFlag("seedream-model", "doubao-seedream-4-0-250828", "豆包 Seedream 模型 ID")
	ins.AddIntFlag("seedream-timeout", 180, "调用 Seedream 接口的超时时间（秒）")

	ins.AddBoolFlag("enable-llm", "是否启用大语言模型生成诗词，不启用则使用内置模板")
	ins.AddStringFlag("llm-server", "https://ark.cn-beijing.volces.com/api/v3", "大语言模型服务地址（OpenAI 兼容接口）")
	ins.AddFlags(app.StringEnvFlag("llm-key", "", "大语言模型 API Key", "LLM_API_KEY"))
	ins.AddStringFlag("llm-model", "doubao-seed-1-6-250615", "大语言模型 ID")

	ins.AddIntFlag("fetch-timeout", 60, "下载远程图片的超时时间（秒）")
	ins.AddIntFlag("signed-url-expire-days", 30, "签名访问地址有效期（天）")
	ins.AddIntFlag("batch-concurrency", 3, "批量处理图片时每批并发数")
	ins.AddIntFlag("supplement-delay-ms", 1000, "补充生成请求之间的间隔（毫秒）")

	ins.AddStringFlag("font-path", "", "诗词卡片使用的字体文件路径，留空则不渲染文字")
}
