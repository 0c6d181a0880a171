package imgutil

import (
	"image"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

type Fit string

const (
	// FitCover 等比缩放填满目标尺寸，超出部分居中裁剪
	FitCover Fit = "cover"
	// FitContain 等比缩放至目标尺寸以内，不裁剪
	FitContain Fit = "contain"
	// FitFill 拉伸到目标尺寸
	FitFill Fit = "fill"
)

// MaxDimension 调整尺寸时宽高的上限
const MaxDimension = 4096

type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Fit    Fit `json:"fit,omitempty"`
}

// ParseResize 解析 WIDTHxHEIGHT 形式的尺寸，解析失败或超过 MaxDimension 时返回 nil（不调整尺寸）
func ParseResize(size string, fit Fit) *Resize {
	w, h, ok := ParseSize(size)
	if !ok || w > MaxDimension || h > MaxDimension {
		return nil
	}

	return &Resize{Width: w, Height: h, Fit: fit}
}

// ParseSize 解析 WIDTHxHEIGHT 形式的尺寸，宽高必须为正整数
func ParseSize(size string) (int, int, bool) {
	segs := strings.Split(strings.ToLower(strings.TrimSpace(size)), "x")
	if len(segs) != 2 {
		return 0, 0, false
	}

	w, err := strconv.Atoi(segs[0])
	if err != nil || w <= 0 {
		return 0, 0, false
	}

	h, err := strconv.Atoi(segs[1])
	if err != nil || h <= 0 {
		return 0, 0, false
	}

	return w, h, true
}

// Apply 按照指定的方式调整图片尺寸
func (r *Resize) Apply(src image.Image) image.Image {
	if r == nil || r.Width <= 0 || r.Height <= 0 || r.Width > MaxDimension || r.Height > MaxDimension {
		return src
	}

	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 {
		return src
	}

	switch r.Fit {
	case FitFill:
		return scale(src, bounds, r.Width, r.Height)
	case FitContain:
		ratio := min(float64(r.Width)/float64(sw), float64(r.Height)/float64(sh))
		return scale(src, bounds, max(1, int(float64(sw)*ratio+0.5)), max(1, int(float64(sh)*ratio+0.5)))
	default:
		return scale(src, coverCrop(bounds, r.Width, r.Height), r.Width, r.Height)
	}
}

// coverCrop 计算与目标宽高比一致的居中裁剪区域
func coverCrop(bounds image.Rectangle, width, height int) image.Rectangle {
	sw, sh := bounds.Dx(), bounds.Dy()

	// sw/sh > width/height 时裁剪宽度，否则裁剪高度
	if sw*height > sh*width {
		cw := max(1, sh*width/height)
		x0 := bounds.Min.X + (sw-cw)/2
		return image.Rect(x0, bounds.Min.Y, x0+cw, bounds.Max.Y)
	}

	ch := max(1, sw*height/width)
	y0 := bounds.Min.Y + (sh-ch)/2
	return image.Rect(bounds.Min.X, y0, bounds.Max.X, y0+ch)
}

func scale(src image.Image, srcRect image.Rectangle, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, srcRect, draw.Over, nil)
	return dst
}
