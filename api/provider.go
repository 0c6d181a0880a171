package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/api/controllers"
	"github.com/mylxsw/festival-server/api/controllers/common"
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/festival-server/pkg/metrics"
	"github.com/mylxsw/festival-server/pkg/rate"
	"github.com/mylxsw/glacier/infra"
	"github.com/mylxsw/glacier/listener"
	"github.com/mylxsw/glacier/web"
	"github.com/mylxsw/go-utils/str"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// limitedPrefix 需要限流的接口，这些接口会调用图片生成服务
var limitedPrefix = []string{
	"/v1/images/generate",
	"/v1/restorations",
	"/v1/poems",
}

type Provider struct{}

// Aggregates 实现 infra.ProviderAggregate 接口
func (Provider) Aggregates() []infra.Provider {
	return []infra.Provider{
		web.Provider(
			listener.FlagContext("listen"),
			web.SetRouteHandlerOption(routes),
			web.SetMuxRouteHandlerOption(muxRoutes),
			web.SetExceptionHandlerOption(exceptionHandler),
			web.SetIgnoreLastSlashOption(true),
		),
	}
}

// Register 实现 infra.Provider 接口
func (Provider) Register(binder infra.Binder) {}

// exceptionHandler 异常处理器
func exceptionHandler(ctx web.Context, err interface{}) web.Response {
	log.Errorf("request %s failed: %v", ctx.Request().Raw().URL.Path, err)
	return ctx.JSONWithCode(web.M{"error": fmt.Sprintf("%v", err)}, http.StatusInternalServerError)
}

// routes 注册路由规则
func routes(resolver infra.Resolver, router web.Router, mw web.RequestMiddleware) {
	mws := make([]web.HandlerDecorator, 0)

	// Prometheus 监控指标
	reqCounterMetric := metrics.BuildCounterVec(
		metrics.Namespace,
		"http_request_count",
		"http request counts",
		[]string{"method", "path", "code"},
	)

	resolver.MustResolve(func(conf *config.Config) {
		mws = append(mws, mw.BeforeInterceptor(func(webCtx web.Context) web.Response {
			// 跨域请求处理
			if conf.EnableCORS && webCtx.Method() == http.MethodOptions {
				return webCtx.JSON(web.M{})
			}

			return nil
		}))

		if conf.EnableRateLimit {
			limiter := resolver.MustGet((*rate.RateLimiter)(nil)).(*rate.RateLimiter)
			mws = append(mws, mw.BeforeInterceptor(rateLimitInterceptor(limiter, conf.RateLimitPerMinute)))
		}

		mws = append(mws, mw.CustomAccessLog(func(cal web.CustomAccessLog) {
			path, _ := cal.Context.CurrentRoute().GetPathTemplate()
			reqCounterMetric.WithLabelValues(cal.Method, path, strconv.Itoa(cal.ResponseCode)).Inc()

			log.F(log.M{
				"method": cal.Method,
				"url":    cal.URL,
				"code":   cal.ResponseCode,
				"elapse": cal.Elapse.Milliseconds(),
				"ip":     cal.Context.Header("X-Real-IP"),
			}).Debug("request")
		}))
	})

	r := router.WithMiddleware(mws...)
	r.Controllers(
		"/v1",
		controllers.NewImageController(resolver),
		controllers.NewCreativeController(resolver),
	)
}

// rateLimitInterceptor 基于客户端 IP 的限流，没有 IP 信息时不限流
func rateLimitInterceptor(limiter *rate.RateLimiter, perMinute int) func(webCtx web.Context) web.Response {
	return func(webCtx web.Context) web.Response {
		if !str.HasPrefixes(webCtx.Request().Raw().URL.Path, limitedPrefix) {
			return nil
		}

		clientIP := webCtx.Header("X-Real-IP")
		if clientIP == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := limiter.Allow(ctx, rate.ClientKey("generate", clientIP), rate.MaxRequestsInPeriod(perMinute, time.Minute)); err != nil {
			if err == rate.ErrRateLimitExceeded {
				log.WithFields(log.Fields{"ip": clientIP}).Warningf("client request too frequently")
			}

			return common.Error(webCtx, err)
		}

		return nil
	}
}

func muxRoutes(resolver infra.Resolver, router *mux.Router) {
	resolver.MustResolve(func(conf *config.Config) {
		// 添加 prometheus metrics 支持
		router.PathPrefix("/metrics").Handler(PrometheusHandler{token: conf.PrometheusToken})
		// 添加健康检查接口支持
		router.PathPrefix("/health").Handler(HealthCheck{})
	})
}

type PrometheusHandler struct {
	token string
}

func (h PrometheusHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	authHeader := request.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		writer.WriteHeader(http.StatusUnauthorized)
		return
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if h.token != "" && tokenStr != h.token {
		writer.WriteHeader(http.StatusUnauthorized)
		return
	}

	promhttp.Handler().ServeHTTP(writer, request)
}

type HealthCheck struct{}

func (h HealthCheck) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Add("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte(`{"status": "UP"}`))
}
