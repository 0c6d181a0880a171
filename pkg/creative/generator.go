package creative

import (
	"context"
	"errors"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/pipeline"
)

var (
	// ErrAllImagesFailed 生成的图片全部处理失败
	ErrAllImagesFailed = errors.New("all images failed processing")
	// ErrNoImageGenerated 服务商没有返回任何图片
	ErrNoImageGenerated = errors.New("provider returned no images")
)

const (
	// MinProviderImages 首次请求至少向服务商请求的图片数量，减少补充请求的次数
	MinProviderImages = 2
	// DefaultCallDelay 补充请求之间、批量生成的每个提示语之间的间隔
	DefaultCallDelay = time.Second
	// ProcessConcurrency 上传处理的并发数
	ProcessConcurrency = 3
)

// State 单次生成的处理阶段
type State string

const (
	StateValidating             State = "validating"
	StateRequesting             State = "requesting"
	StateSupplementalRequesting State = "supplemental_requesting"
	StateProcessing             State = "processing"
	StateDone                   State = "done"
	StateFailed                 State = "failed"
)

// ImageProvider 图片生成服务
type ImageProvider interface {
	GenerateImage(ctx context.Context, req seedream.ImageRequest) (*seedream.ImageResponse, error)
}

// BatchProcessor 图片批量处理
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, urls []string, opt pipeline.BatchOptions) []pipeline.Result
}

// Outcome 生成结果，只要有一张图片处理成功即视为成功
type Outcome struct {
	Success bool                      `json:"success"`
	Prompt  string                    `json:"prompt,omitempty"`
	URLs    []string                  `json:"urls"`
	Images  []pipeline.ProcessedImage `json:"images"`
	Error   string                    `json:"error,omitempty"`
	// Requested 用户请求的图片数量
	Requested int `json:"requested"`
	// Generated 服务商返回的原始图片数量（含补充请求）
	Generated int `json:"generated"`
	// SupplementalCalls 补充请求次数
	SupplementalCalls int `json:"supplemental_calls"`
	// Failures 处理失败的图片
	Failures []pipeline.Result `json:"failures,omitempty"`
	// State 最终所处的阶段
	State State `json:"-"`
}

func failedOutcome(prompt string, requested int, err error) *Outcome {
	return &Outcome{
		Success:   false,
		Prompt:    prompt,
		URLs:      []string{},
		Images:    []pipeline.ProcessedImage{},
		Error:     err.Error(),
		Requested: requested,
		State:     StateFailed,
	}
}

type Generator struct {
	provider  ImageProvider
	processor BatchProcessor
	model     string
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(g *Generator)

// WithDelay 设置请求之间的间隔
func WithDelay(delay time.Duration) Option {
	return func(g *Generator) {
		if delay >= 0 {
			g.delay = delay
		}
	}
}

// WithSleep 替换等待函数
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithModel 指定模型，为空时使用服务商客户端的默认模型
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

func NewGenerator(provider ImageProvider, processor BatchProcessor, opts ...Option) *Generator {
	g := &Generator{
		provider:  provider,
		processor: processor,
		delay:     DefaultCallDelay,
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GenerateImage 生成图片并上传到对象存储
// 参数校验失败返回 *ValidationError，首次请求失败返回服务商错误，图片全部处理失败返回 ErrAllImagesFailed
func (g *Generator) GenerateImage(ctx context.Context, req GenerationRequest) (*Outcome, error) {
	logger := log.F(log.M{"prompt": req.Prompt, "size": req.Size, "num_images": req.NumImages})

	logger.Debugf("generation state: %s", StateValidating)
	if err := req.Validate(); err != nil {
		return failedOutcome(req.Prompt, req.NumImages, err), err
	}

	tier := ResolveTier(req.Size)
	base := seedream.ImageRequest{
		Model:          g.model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Images:         req.ReferenceImages,
		Size:           tier.ProviderSize(),
		Watermark:      req.Watermark,
		Seed:           req.Seed,
		Quality:        req.Quality.Tier,
		Stream:         false,
		ResponseFormat: seedream.ResponseFormatURL,
	}

	logger.Debugf("generation state: %s", StateRequesting)
	primary := base
	primary.NumImages = max(MinProviderImages, req.NumImages)
	primary.SequentialImageGeneration = seedream.SequentialAuto
	primary.SequentialOptions = &seedream.SequentialOptions{MaxImages: primary.NumImages}

	resp, err := g.provider.GenerateImage(ctx, primary)
	if err != nil {
		logger.Errorf("primary generation request failed: %v", err)
		return failedOutcome(req.Prompt, req.NumImages, err), err
	}

	urls := resp.URLs()
	supplementalCalls := 0

	// 返回数量不足时，每缺少一张补充一次单张生成请求，失败的请求直接跳过
	if missing := req.NumImages - len(urls); missing > 0 {
		logger.Warningf("provider returned %d images, %d requested, issuing %d supplemental calls", len(urls), req.NumImages, missing)

		for i := 0; i < missing; i++ {
			if err := g.sleep(ctx, g.delay); err != nil {
				logger.Warningf("supplemental generation interrupted: %v", err)
				break
			}

			logger.Debugf("generation state: %s (%d/%d)", StateSupplementalRequesting, i+1, missing)
			supplementalCalls++

			single := base
			single.NumImages = 1
			single.SequentialImageGeneration = seedream.SequentialDisabled

			extra, err := g.provider.GenerateImage(ctx, single)
			if err != nil {
				logger.Errorf("supplemental generation request %d failed: %v", i+1, err)
				continue
			}

			urls = append(urls, extra.URLs()...)
		}
	}

	if len(urls) == 0 {
		out := failedOutcome(req.Prompt, req.NumImages, ErrNoImageGenerated)
		out.SupplementalCalls = supplementalCalls
		return out, ErrNoImageGenerated
	}

	logger.Debugf("generation state: %s", StateProcessing)
	results := g.processor.ProcessBatch(ctx, urls, pipeline.BatchOptions{
		ProjectID:   req.ProjectID,
		Quality:     req.Quality.CompressionQuality(),
		Concurrency: ProcessConcurrency,
		Resize:      req.Resize(),
	})

	out := &Outcome{
		Prompt:            req.Prompt,
		Images:            pipeline.Succeeded(results),
		Requested:         req.NumImages,
		Generated:         len(urls),
		SupplementalCalls: supplementalCalls,
		Failures:          make([]pipeline.Result, 0),
	}

	out.URLs = make([]string, 0, len(out.Images))
	for _, img := range out.Images {
		out.URLs = append(out.URLs, img.URL)
	}

	for _, res := range results {
		if !res.Success {
			out.Failures = append(out.Failures, res)
		}
	}

	if len(out.Images) == 0 {
		out.Error = ErrAllImagesFailed.Error()
		out.State = StateFailed
		logger.Errorf("generation state: %s, all %d images failed processing", StateFailed, len(urls))
		return out, ErrAllImagesFailed
	}

	out.Success = true
	out.State = StateDone
	logger.Debugf("generation state: %s, %d/%d images processed", StateDone, len(out.Images), len(urls))

	return out, nil
}

// GenerateImagesBatch 依次为每个提示语生成图片，提示语之间固定间隔，单个失败不影响后续
func (g *Generator) GenerateImagesBatch(ctx context.Context, prompts []string, shared GenerationRequest) []Outcome {
	outcomes := make([]Outcome, 0, len(prompts))
	for i, prompt := range prompts {
		if i > 0 {
			if err := g.sleep(ctx, g.delay); err != nil {
				outcomes = append(outcomes, *failedOutcome(prompt, shared.NumImages, err))
				continue
			}
		}

		req := shared
		req.Prompt = prompt
		req.ReferenceImages = append([]string(nil), shared.ReferenceImages...)

		out, err := g.GenerateImage(ctx, req)
		if err != nil {
			log.F(log.M{"prompt": prompt, "index": i}).Warningf("batch generation for prompt failed: %v", err)
		}

		outcomes = append(outcomes, *out)
	}

	return outcomes
}
