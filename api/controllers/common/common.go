package common

import (
	"errors"
	"net/http"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/rate"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/mylxsw/glacier/web"
)

const (
	ErrInvalidRequest = "请求参数错误"
	ErrInternalError  = "服务器故障，请稍后再试"
	ErrNotFound       = "资源不存在"
	ErrProviderFailed = "图片生成服务暂时不可用，请稍后再试"
	ErrAllFailed      = "图片处理失败，请稍后再试"
)

// StatusCode 根据错误类型确定响应状态码
func StatusCode(err error) int {
	var ve *creative.ValidationError
	var pe *seedream.ProviderError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, rate.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &pe), errors.Is(err, creative.ErrNoImageGenerated):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message 返回给客户端的错误信息，参数错误时直接返回具体原因
func Message(err error) string {
	var ve *creative.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	switch {
	case errors.Is(err, rate.ErrRateLimitExceeded):
		return err.Error()
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, creative.ErrAllImagesFailed):
		return ErrAllFailed
	}

	if StatusCode(err) == http.StatusBadGateway {
		return ErrProviderFailed
	}

	return ErrInternalError
}

// Error 输出错误响应，服务端错误会记录日志
func Error(webCtx web.Context, err error) web.Response {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		log.F(log.M{"path": webCtx.Request().Raw().URL.Path, "code": code}).Errorf("request failed: %v", err)
	}

	return webCtx.JSONError(Message(err), code)
}

// Result 带有部分结果的错误响应，例如生成失败时仍返回失败详情
func Result(webCtx web.Context, data any, err error) web.Response {
	if err == nil {
		return webCtx.JSON(data)
	}

	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		log.F(log.M{"path": webCtx.Request().Raw().URL.Path, "code": code}).Errorf("request failed: %v", err)
	}

	return webCtx.JSONWithCode(web.M{"error": Message(err), "data": data}, code)
}
