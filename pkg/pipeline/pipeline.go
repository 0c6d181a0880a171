package pipeline

import (
	"context"
	"fmt"
	"math"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/misc"
	"github.com/mylxsw/festival-server/pkg/uploader"
	"github.com/mylxsw/go-utils/ternary"
)

const (
	NamespaceGenerated = "generated-images"
	NamespaceThumbnail = "thumbnails"
	NamespaceUpload    = "uploads"

	DefaultProjectID   = "default"
	DefaultQuality     = 80
	DefaultConcurrency = 3
	ThumbnailQuality   = 85
	ThumbnailSize      = 300
)

// Storage 对象存储
type Storage interface {
	Put(ctx context.Context, key string, data []byte, opt uploader.PutOptions) error
	SignedURL(key string, expireDays int, transform string) (string, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) bool
	DeleteMany(ctx context.Context, keys []string) uploader.DeleteResult
}

// Fetcher 远程图片下载
type Fetcher interface {
	Download(ctx context.Context, remoteURL string) (*uploader.Payload, error)
}

// ProcessedImage 处理并上传成功的图片，创建后不再修改
type ProcessedImage struct {
	URL              string  `json:"url"`
	Key              string  `json:"oss_key"`
	OriginalSize     int     `json:"original_size"`
	CompressedSize   int     `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// Result 单张图片的处理结果，失败时 Image 为 nil
type Result struct {
	Success   bool            `json:"success"`
	SourceURL string          `json:"source_url,omitempty"`
	Image     *ProcessedImage `json:"image,omitempty"`
	Error     string          `json:"error,omitempty"`
	Err       error           `json:"-"`
}

func failed(sourceURL string, err error) Result {
	return Result{Success: false, SourceURL: sourceURL, Error: err.Error(), Err: err}
}

type Config struct {
	// Codec 存储使用的图片格式
	Codec imgutil.Format
	// SignedURLExpireDays 签名地址有效期
	SignedURLExpireDays int
	// EncoderSlots 同时进行图片编码的最大数量，默认为 CPU 核数
	EncoderSlots int
	// Concurrency 批量处理时未指定并发数使用的默认值
	Concurrency int
}

type Processor struct {
	storage    Storage
	fetcher    Fetcher
	codec      imgutil.Format
	expireDays int
	batchSize  int
	slots      chan struct{}
	now        func() time.Time
}

func NewProcessor(store Storage, fetcher Fetcher, conf Config) *Processor {
	slots := conf.EncoderSlots
	if slots <= 0 {
		slots = runtime.NumCPU()
	}

	return &Processor{
		storage:    store,
		fetcher:    fetcher,
		codec:      ternary.If(conf.Codec == "", imgutil.FormatWebP, conf.Codec),
		expireDays: ternary.If(conf.SignedURLExpireDays <= 0, uploader.DefaultSignedURLExpireDays, conf.SignedURLExpireDays),
		batchSize:  ternary.If(conf.Concurrency <= 0, DefaultConcurrency, conf.Concurrency),
		slots:      make(chan struct{}, slots),
		now:        time.Now,
	}
}

// ImageExists 检查图片是否已存储
func (p *Processor) ImageExists(ctx context.Context, key string) bool {
	return p.storage.Exists(ctx, key)
}

type ProcessOptions struct {
	ProjectID string
	// FileName 文件名（不含扩展名），为空时自动生成
	FileName string
	Quality  int
	Resize   *imgutil.Resize
}

// ProcessOne 下载远程图片，压缩后上传到对象存储，并生成签名访问地址
// 任何一步失败都只会体现在返回结果中，不会中断调用方的批量处理
func (p *Processor) ProcessOne(ctx context.Context, sourceURL string, opt ProcessOptions) Result {
	payload, err := p.fetcher.Download(ctx, sourceURL)
	if err != nil {
		log.F(log.M{"url": sourceURL}).Warningf("download image failed: %v", err)
		return failed(sourceURL, err)
	}

	compressed, err := p.encode(ctx, payload.Data, imgutil.EncodeOptions{
		Format:  p.codec,
		Quality: ternary.If(opt.Quality <= 0, DefaultQuality, opt.Quality),
		Resize:  opt.Resize,
	})
	if err != nil {
		log.F(log.M{"url": sourceURL}).Warningf("re-encode image failed: %v", err)
		return failed(sourceURL, err)
	}

	key := p.buildKey(NamespaceGenerated, opt.ProjectID, opt.FileName, p.codec.Ext())
	img, err := p.save(ctx, key, len(payload.Data), compressed, p.codec.MimeType())
	if err != nil {
		log.F(log.M{"url": sourceURL, "key": key}).Errorf("store image failed: %v", err)
		return failed(sourceURL, err)
	}

	log.F(log.M{
		"url":   sourceURL,
		"key":   key,
		"ratio": img.CompressionRatio,
	}).Debugf("image processed: %d -> %d bytes", img.OriginalSize, img.CompressedSize)

	return Result{Success: true, SourceURL: sourceURL, Image: img}
}

// Thumbnail 生成缩略图，固定使用 cover 裁剪，质量 85
func (p *Processor) Thumbnail(ctx context.Context, sourceURL string, width, height int, projectID string) Result {
	width = ternary.If(width <= 0, ThumbnailSize, width)
	height = ternary.If(height <= 0, ThumbnailSize, height)

	payload, err := p.fetcher.Download(ctx, sourceURL)
	if err != nil {
		return failed(sourceURL, err)
	}

	compressed, err := p.encode(ctx, payload.Data, imgutil.EncodeOptions{
		Format:  p.codec,
		Quality: ThumbnailQuality,
		Resize:  &imgutil.Resize{Width: width, Height: height, Fit: imgutil.FitCover},
	})
	if err != nil {
		return failed(sourceURL, err)
	}

	key := p.buildKey(NamespaceThumbnail, projectID, fmt.Sprintf("%s_%dx%d", misc.TimestampName(p.now()), width, height), p.codec.Ext())
	img, err := p.save(ctx, key, len(payload.Data), compressed, p.codec.MimeType())
	if err != nil {
		return failed(sourceURL, err)
	}

	return Result{Success: true, SourceURL: sourceURL, Image: img}
}

// StoreRaw 不做压缩，直接将数据保存到指定的命名空间下
func (p *Processor) StoreRaw(ctx context.Context, namespace, projectID string, data []byte, format imgutil.Format) (*ProcessedImage, error) {
	key := p.buildKey(namespace, projectID, "", format.Ext())
	return p.save(ctx, key, len(data), data, format.MimeType())
}

// ImageMetadata 获取已存储图片的基础信息，下载或解析失败时返回 nil
func (p *Processor) ImageMetadata(ctx context.Context, storedURL string) *imgutil.Metadata {
	payload, err := p.fetcher.Download(ctx, storedURL)
	if err != nil {
		log.F(log.M{"url": storedURL}).Debugf("fetch image metadata failed: %v", err)
		return nil
	}

	meta, err := imgutil.Inspect(payload.Data)
	if err != nil {
		log.F(log.M{"url": storedURL}).Debugf("decode image metadata failed: %v", err)
		return nil
	}

	return meta
}

func (p *Processor) DeleteImage(ctx context.Context, key string) bool {
	return p.storage.Delete(ctx, key)
}

func (p *Processor) DeleteImages(ctx context.Context, keys []string) uploader.DeleteResult {
	return p.storage.DeleteMany(ctx, keys)
}

func (p *Processor) save(ctx context.Context, key string, originalSize int, data []byte, contentType string) (*ProcessedImage, error) {
	if err := p.storage.Put(ctx, key, data, uploader.PutOptions{
		ContentType:  contentType,
		CacheControl: uploader.CacheControlOneYear,
	}); err != nil {
		return nil, err
	}

	signedURL, err := p.storage.SignedURL(key, p.expireDays, "")
	if err != nil {
		return nil, err
	}

	return &ProcessedImage{
		URL:              signedURL,
		Key:              key,
		OriginalSize:     originalSize,
		CompressedSize:   len(data),
		CompressionRatio: CompressionRatio(originalSize, len(data)),
	}, nil
}

// encode 图片编码为 CPU 密集型操作，通过 slots 限制同时进行的编码数量
func (p *Processor) encode(ctx context.Context, data []byte, opt imgutil.EncodeOptions) ([]byte, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.slots }()

	return imgutil.Reencode(data, opt)
}

func (p *Processor) buildKey(namespace, projectID, fileName, ext string) string {
	projectID = sanitize(projectID)
	if projectID == "" {
		projectID = DefaultProjectID
	}

	name := sanitize(strings.TrimSuffix(fileName, path.Ext(fileName)))
	if name == "" {
		name = misc.TimestampName(p.now())
	}

	return fmt.Sprintf("%s/%s/%s.%s", namespace, projectID, name, ext)
}

// sanitize 去除路径分隔符，避免写入到其它命名空间
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return strings.ReplaceAll(s, "..", "_")
}

// CompressionRatio 压缩率（百分比），原始大小为 0 时返回 0
func CompressionRatio(originalSize, compressedSize int) float64 {
	if originalSize <= 0 {
		return 0
	}

	ratio := float64(originalSize-compressedSize) / float64(originalSize) * 100
	return math.Round(ratio*100) / 100
}
