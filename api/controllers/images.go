package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/mylxsw/festival-server/api/controllers/common"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/mylxsw/glacier/infra"
	"github.com/mylxsw/glacier/web"
	"github.com/mylxsw/go-utils/array"
)

const (
	// MaxBatchPrompts 批量生成最多提示语数量
	MaxBatchPrompts = 10
	// MaxBatchURLs 批量处理最多图片数量
	MaxBatchURLs = 20
	// MaxThumbnailSize 缩略图最大边长
	MaxThumbnailSize = 2048
)

// ImageController 图片生成与处理
type ImageController struct {
	generator *creative.Generator `autowire:"@"`
	processor *pipeline.Processor `autowire:"@"`
}

func NewImageController(resolver infra.Resolver) web.Controller {
	ctl := ImageController{}
	resolver.AutoWire(&ctl)

	return &ctl
}

func (ctl *ImageController) Register(router web.Router) {
	router.Group("/images", func(router web.Router) {
		router.Get("/sizes", ctl.Sizes)
		router.Post("/generate", ctl.Generate)
		router.Post("/generate-batch", ctl.GenerateBatch)
		router.Post("/process", ctl.Process)
		router.Post("/process-batch", ctl.ProcessBatch)
		router.Post("/thumbnail", ctl.Thumbnail)
		router.Get("/metadata", ctl.Metadata)
		router.Get("/exists", ctl.Exists)
		router.Delete("/", ctl.Delete)
		router.Post("/delete", ctl.DeleteBatch)
	})
}

// Sizes 支持的图片尺寸
func (ctl *ImageController) Sizes(webCtx web.Context) web.Response {
	return webCtx.JSON(web.M{"data": creative.ListSupportedSizes()})
}

// Generate 生成图片
func (ctl *ImageController) Generate(ctx context.Context, webCtx web.Context) web.Response {
	var req creative.GenerationRequest
	if err := webCtx.Unmarshal(&req); err != nil {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	out, err := ctl.generator.GenerateImage(ctx, req)
	return common.Result(webCtx, out, err)
}

type GenerateBatchRequest struct {
	Prompts []string `json:"prompts"`
	creative.GenerationRequest
}

// GenerateBatch 批量生成，每个提示语的结果独立返回
func (ctl *ImageController) GenerateBatch(ctx context.Context, webCtx web.Context) web.Response {
	var req GenerateBatchRequest
	if err := webCtx.Unmarshal(&req); err != nil {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	if len(req.Prompts) == 0 || len(req.Prompts) > MaxBatchPrompts {
		return webCtx.JSONError("prompts 数量必须在 1-10 之间", http.StatusBadRequest)
	}

	outcomes := ctl.generator.GenerateImagesBatch(ctx, req.Prompts, req.GenerationRequest)
	succeed := len(array.Filter(outcomes, func(item creative.Outcome, _ int) bool { return item.Success }))

	return webCtx.JSON(web.M{
		"data":    outcomes,
		"total":   len(outcomes),
		"succeed": succeed,
	})
}

type ProcessRequest struct {
	URL       string `json:"url"`
	ProjectID string `json:"project_id,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	Quality   int    `json:"quality,omitempty"`
	Size      string `json:"size,omitempty"`
	Fit       string `json:"fit,omitempty"`
}

// Process 下载远程图片，压缩后保存
func (ctl *ImageController) Process(ctx context.Context, webCtx web.Context) web.Response {
	var req ProcessRequest
	if err := webCtx.Unmarshal(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	res := ctl.processor.ProcessOne(ctx, req.URL, pipeline.ProcessOptions{
		ProjectID: req.ProjectID,
		FileName:  req.FileName,
		Quality:   req.Quality,
		Resize:    imgutil.ParseResize(req.Size, imgutil.Fit(req.Fit)),
	})
	if !res.Success {
		return webCtx.JSONWithCode(res, http.StatusBadGateway)
	}

	return webCtx.JSON(res)
}

type ProcessBatchRequest struct {
	URLs        []string `json:"urls"`
	ProjectID   string   `json:"project_id,omitempty"`
	Quality     int      `json:"quality,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	Size        string   `json:"size,omitempty"`
	Fit         string   `json:"fit,omitempty"`
}

// Options 转换为批量处理参数，尺寸无法解析时不调整尺寸
func (req ProcessBatchRequest) Options() pipeline.BatchOptions {
	return pipeline.BatchOptions{
		ProjectID:   req.ProjectID,
		Quality:     req.Quality,
		Concurrency: req.Concurrency,
		Resize:      imgutil.ParseResize(req.Size, imgutil.Fit(req.Fit)),
	}
}

// ProcessBatch 批量处理远程图片
func (ctl *ImageController) ProcessBatch(ctx context.Context, webCtx web.Context) web.Response {
	var req ProcessBatchRequest
	if err := webCtx.Unmarshal(&req); err != nil {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	if len(req.URLs) == 0 || len(req.URLs) > MaxBatchURLs {
		return webCtx.JSONError("urls 数量必须在 1-20 之间", http.StatusBadRequest)
	}

	results := ctl.processor.ProcessBatch(ctx, req.URLs, req.Options())

	return webCtx.JSON(web.M{
		"data":    results,
		"total":   len(results),
		"succeed": len(pipeline.Succeeded(results)),
	})
}

type ThumbnailRequest struct {
	URL       string `json:"url"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// Thumbnail 生成缩略图
func (ctl *ImageController) Thumbnail(ctx context.Context, webCtx web.Context) web.Response {
	var req ThumbnailRequest
	if err := webCtx.Unmarshal(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	if req.Width < 0 || req.Height < 0 || req.Width > MaxThumbnailSize || req.Height > MaxThumbnailSize {
		return webCtx.JSONError("缩略图尺寸不合法", http.StatusBadRequest)
	}

	res := ctl.processor.Thumbnail(ctx, req.URL, req.Width, req.Height, req.ProjectID)
	if !res.Success {
		return webCtx.JSONWithCode(res, http.StatusBadGateway)
	}

	return webCtx.JSON(res)
}

// Metadata 查询已存储图片的基础信息
func (ctl *ImageController) Metadata(ctx context.Context, webCtx web.Context) web.Response {
	u := webCtx.Input("url")
	if u == "" {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	meta := ctl.processor.ImageMetadata(ctx, u)
	if meta == nil {
		return webCtx.JSONError(common.ErrNotFound, http.StatusNotFound)
	}

	return webCtx.JSON(meta)
}

// Exists 检查图片是否存在
func (ctl *ImageController) Exists(ctx context.Context, webCtx web.Context) web.Response {
	key := webCtx.Input("key")
	if key == "" {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	return webCtx.JSON(web.M{"exists": ctl.processor.ImageExists(ctx, key)})
}

// Delete 删除单张图片
func (ctl *ImageController) Delete(ctx context.Context, webCtx web.Context) web.Response {
	key := webCtx.Input("key")
	if key == "" {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	return webCtx.JSON(web.M{"deleted": ctl.processor.DeleteImage(ctx, key)})
}

type DeleteBatchRequest struct {
	Keys []string `json:"keys"`
}

// DeleteBatch 批量删除图片，部分失败不影响其它图片
func (ctl *ImageController) DeleteBatch(ctx context.Context, webCtx web.Context) web.Response {
	var req DeleteBatchRequest
	if err := webCtx.Unmarshal(&req); err != nil || len(req.Keys) == 0 {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	return webCtx.JSON(ctl.processor.DeleteImages(ctx, req.Keys))
}
