package seedream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/misc"
	"gopkg.in/resty.v1"
)

const (
	// SequentialAuto 由服务端决定单次请求是否返回多张图片
	SequentialAuto     = "auto"
	SequentialDisabled = "disabled"

	ResponseFormatURL = "url"
)

// ProviderError 图片生成服务返回的错误
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("seedream request failed [%d %s]: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("seedream request failed [%d]: %s", e.StatusCode, e.Message)
}

type Seedream struct {
	server string
	key    string
	model  string
	resty  *resty.Client
}

// New 创建 Seedream 客户端，请求失败时不自动重试，补充生成由调用方控制
func New(server, key, model string, timeout time.Duration) *Seedream {
	client := misc.RestyClient(0)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return NewWithResty(server, key, model, client)
}

func NewWithResty(server, key, model string, client *resty.Client) *Seedream {
	return &Seedream{server: strings.TrimRight(server, "/"), key: key, model: model, resty: client}
}

type SequentialOptions struct {
	MaxImages int `json:"max_images,omitempty"`
}

type ImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	// Images 参考图，一张时以字符串形式发送，多张时以数组形式发送
	Images []string `json:"-"`
	// Size 2K/4K 或者 宽x高
	Size                      string             `json:"size,omitempty"`
	NumImages                 int                `json:"num_images,omitempty"`
	SequentialImageGeneration string             `json:"sequential_image_generation,omitempty"`
	SequentialOptions         *SequentialOptions `json:"sequential_image_generation_options,omitempty"`
	Stream                    bool               `json:"stream"`
	ResponseFormat            string             `json:"response_format,omitempty"`
	Watermark                 bool               `json:"watermark"`
	Seed                      *int64             `json:"seed,omitempty"`
	Quality                   string             `json:"quality,omitempty"`
}

func (req ImageRequest) MarshalJSON() ([]byte, error) {
	type alias ImageRequest
	body := struct {
		alias
		Image any `json:"image,omitempty"`
	}{alias: alias(req)}

	switch len(req.Images) {
	case 0:
	case 1:
		body.Image = req.Images[0]
	default:
		body.Image = req.Images
	}

	return json.Marshal(body)
}

type ImageData struct {
	URL  string `json:"url,omitempty"`
	Size string `json:"size,omitempty"`
}

type Usage struct {
	GeneratedImages int `json:"generated_images,omitempty"`
	OutputTokens    int `json:"output_tokens,omitempty"`
	TotalTokens     int `json:"total_tokens,omitempty"`
}

type ImageResponse struct {
	Model   string      `json:"model,omitempty"`
	Created int64       `json:"created,omitempty"`
	Data    []ImageData `json:"data,omitempty"`
	Usage   *Usage      `json:"usage,omitempty"`
}

// URLs 返回所有非空的图片地址
func (resp *ImageResponse) URLs() []string {
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}

	return urls
}

type ErrorResponse struct {
	Error Error `json:"error,omitempty"`
}

type Error struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Model 默认使用的模型
func (s *Seedream) Model() string {
	return s.model
}

// GenerateImage 调用图片生成接口
func (s *Seedream) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if req.Model == "" {
		req.Model = s.model
	}

	if req.ResponseFormat == "" {
		req.ResponseFormat = ResponseFormatURL
	}

	requestID := misc.UUID()
	resp, err := s.resty.R().
		SetHeader("Authorization", "Bearer "+s.key).
		SetHeader("X-Client-Request-Id", requestID).
		SetHeader("Content-Type", "application/json").
		SetContext(ctx).
		SetBody(req).
		Post(s.server + "/images/generations")
	if err != nil {
		return nil, fmt.Errorf("seedream request failed: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		pe := parseError(resp.StatusCode(), resp.Body())
		log.F(log.M{"request_id": requestID, "code": pe.Code, "status": pe.StatusCode}).Warningf("seedream request rejected: %s", pe.Message)
		return nil, pe
	}

	var imageResp ImageResponse
	if err := json.Unmarshal(resp.Body(), &imageResp); err != nil {
		return nil, fmt.Errorf("decode seedream response failed: %w", err)
	}

	log.F(log.M{
		"request_id": requestID,
		"model":      req.Model,
		"size":       req.Size,
		"requested":  req.NumImages,
		"returned":   len(imageResp.Data),
	}).Debugf("seedream image generated")

	return &imageResp, nil
}

// parseError 尽可能解析错误信息，无法解析时使用原始响应内容
func parseError(statusCode int, body []byte) *ProviderError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &ProviderError{StatusCode: statusCode, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}

	message := strings.TrimSpace(misc.SubString(string(body), 200))
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &ProviderError{StatusCode: statusCode, Message: message}
}
