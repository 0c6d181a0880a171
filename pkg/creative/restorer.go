package creative

import (
	"context"
	"strings"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/mylxsw/go-utils/ternary"
)

// RestorationPrompt 老照片修复使用的提示语
const RestorationPrompt = "修复这张老照片：去除划痕、折痕、污渍和噪点，恢复清晰自然的面部与衣物细节，进行真实自然的上色，保持人物样貌、姿态和构图不变"

// SourceStore 保存用户上传的原图
type SourceStore interface {
	StoreRaw(ctx context.Context, namespace, projectID string, data []byte, format imgutil.Format) (*pipeline.ProcessedImage, error)
}

// RecordStore 创作记录
type RecordStore interface {
	Create(ctx context.Context, rec repo.RecordCreate) (int64, error)
	MarkSuccess(ctx context.Context, id int64, result any) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type Restorer struct {
	generator *Generator
	fetcher   pipeline.Fetcher
	store     SourceStore
	records   RecordStore
}

func NewRestorer(generator *Generator, fetcher pipeline.Fetcher, store SourceStore, records RecordStore) *Restorer {
	return &Restorer{generator: generator, fetcher: fetcher, store: store, records: records}
}

type RestoreRequest struct {
	ImageURL  string  `json:"image_url"`
	Prompt    string  `json:"prompt,omitempty"`
	Size      string  `json:"size,omitempty"`
	Quality   Quality `json:"quality,omitempty"`
	NumImages int     `json:"num_images,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
	UserKey   string  `json:"-"`
}

type RestoreResult struct {
	RecordID int64                    `json:"record_id"`
	Source   *pipeline.ProcessedImage `json:"source,omitempty"`
	Outcome  *Outcome                 `json:"outcome,omitempty"`
}

// Restore 老照片修复：原图转换为服务商支持的格式后上传，作为参考图调用图片生成
func (r *Restorer) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	if !isImageReference(req.ImageURL) || strings.HasPrefix(req.ImageURL, "data:") {
		return nil, invalid("image_url", "a valid http(s) image url is required")
	}

	genReq := GenerationRequest{
		Prompt:    RestorationPrompt + ternary.If(strings.TrimSpace(req.Prompt) != "", "。"+strings.TrimSpace(req.Prompt), ""),
		Size:      req.Size,
		Quality:   req.Quality,
		NumImages: req.NumImages,
		ProjectID: req.ProjectID,
	}
	if err := genReq.Validate(); err != nil {
		return nil, err
	}

	id, err := r.records.Create(ctx, repo.RecordCreate{
		UserKey: req.UserKey,
		Kind:    repo.RecordKindRestoration,
		Prompt:  req.Prompt,
		Payload: req,
	})
	if err != nil {
		return nil, err
	}

	res := &RestoreResult{RecordID: id}

	source, err := r.uploadSource(ctx, req.ImageURL, req.ProjectID)
	if err != nil {
		r.markFailed(ctx, id, err)
		return res, err
	}

	res.Source = source
	genReq.ReferenceImages = []string{source.URL}

	out, err := r.generator.GenerateImage(ctx, genReq)
	res.Outcome = out
	if err != nil {
		r.markFailed(ctx, id, err)
		return res, err
	}

	if err := r.records.MarkSuccess(ctx, id, map[string]any{"source": source, "images": out.Images}); err != nil {
		log.F(log.M{"record_id": id}).Errorf("mark restoration record success failed: %v", err)
	}

	return res, nil
}

func (r *Restorer) uploadSource(ctx context.Context, imageURL, projectID string) (*pipeline.ProcessedImage, error) {
	payload, err := r.fetcher.Download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	converted, err := imgutil.EnsureProviderCompatible(payload.Data, payload.ContentType)
	if err != nil {
		return nil, err
	}

	return r.store.StoreRaw(ctx, pipeline.NamespaceUpload, projectID, converted.Data, ternary.If(converted.Converted, imgutil.FormatPNG, imgutil.FormatJPEG))
}

func (r *Restorer) markFailed(ctx context.Context, id int64, cause error) {
	if err := r.records.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.F(log.M{"record_id": id}).Errorf("mark record failed failed: %v", err)
	}
}
