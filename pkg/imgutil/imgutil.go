package imgutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedInput 图片数据无法解码（文件损坏或格式不支持）
var ErrUnsupportedInput = errors.New("unsupported image input")

// MaxPixels 允许解码的最大像素数，超过时拒绝处理
const MaxPixels = 64 << 20

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
)

// MimeType 返回格式对应的 Content-Type
func (f Format) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	}

	return "application/octet-stream"
}

// Ext 返回格式对应的文件扩展名（不含点）
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}

	return string(f)
}

// ParseFormat 解析格式名称，支持 jpg/jpeg/png/webp
func ParseFormat(name string) (Format, bool) {
	switch name {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	}

	return "", false
}

type EncodeOptions struct {
	// Format 目标格式
	Format Format
	// Quality 压缩质量 1-100，PNG 忽略该参数
	Quality int
	// Resize 可选的尺寸调整
	Resize *Resize
}

// Decode 解码图片数据
func Decode(data []byte) (image.Image, Format, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: image too large (%dx%d)", ErrUnsupportedInput, cfg.Width, cfg.Height)
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}

	return img, Format(name), nil
}

// Reencode 将图片重新编码为指定格式，可选调整尺寸
func Reencode(data []byte, opt EncodeOptions) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if opt.Resize != nil {
		img = opt.Resize.Apply(img)
	}

	return Encode(img, opt.Format, opt.Quality)
}

// Encode 将图片编码为指定格式
func Encode(img image.Image, format Format, quality int) ([]byte, error) {
	quality = clampQuality(quality)

	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return nil, fmt.Errorf("create webp encoder options failed: %w", err)
		}

		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, fmt.Errorf("encode webp failed: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg failed: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported target format: %s", format)
	}

	return buf.Bytes(), nil
}

func clampQuality(quality int) int {
	if quality <= 0 {
		return 80
	}

	if quality > 100 {
		return 100
	}

	return quality
}

// flatten JPEG 不支持透明通道，透明区域以白色填充
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}

	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)

	return dst
}
