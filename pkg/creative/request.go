package creative

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/misc"
	"github.com/mylxsw/go-utils/array"
)

const (
	MaxPromptLength         = 800
	MaxNegativePromptLength = 500
	MinImageCount           = 1
	MaxImageCount           = 4
	MaxReferenceImages      = 10

	MinSeed = -1
	MaxSeed = 2147483647
)

// ValidationError 请求参数不合法，在发起任何网络请求之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

const (
	QualityStandard = "standard"
	QualityHD       = "hd"
)

// Quality 画质，可以是 standard/hd，也可以是 1-10 的数字
type Quality struct {
	Tier    string
	Level   int
	numeric bool
}

func QualityTier(tier string) Quality {
	return Quality{Tier: strings.ToLower(strings.TrimSpace(tier))}
}

func QualityLevel(level int) Quality {
	return Quality{Level: level, numeric: true}
}

func (q Quality) IsZero() bool {
	return !q.numeric && q.Tier == ""
}

func (q *Quality) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*q = Quality{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		if level, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*q = QualityLevel(level)
			return nil
		}

		*q = QualityTier(s)
		return nil
	}

	var level int
	if err := json.Unmarshal(data, &level); err != nil {
		return invalid("quality", "must be standard, hd or an integer between 1 and 10")
	}

	*q = QualityLevel(level)
	return nil
}

func (q Quality) MarshalJSON() ([]byte, error) {
	if q.numeric {
		return json.Marshal(q.Level)
	}

	if q.Tier == "" {
		return []byte("null"), nil
	}

	return json.Marshal(q.Tier)
}

func (q Quality) validate() error {
	if q.numeric {
		if q.Level < 1 || q.Level > 10 {
			return invalid("quality", "numeric quality must be between 1 and 10, got %d", q.Level)
		}

		return nil
	}

	if q.Tier != "" && !array.In(q.Tier, []string{QualityStandard, QualityHD}) {
		return invalid("quality", "unsupported quality %q", q.Tier)
	}

	return nil
}

// CompressionQuality 将画质映射为图片压缩质量（1-100）
func (q Quality) CompressionQuality() int {
	if q.numeric {
		return q.Level * 10
	}

	switch q.Tier {
	case QualityHD:
		return 95
	default:
		return 80
	}
}

// GenerationRequest 图片生成请求
type GenerationRequest struct {
	Prompt          string   `json:"prompt"`
	NegativePrompt  string   `json:"negative_prompt,omitempty"`
	ReferenceImages []string `json:"reference_images,omitempty"`
	// Size 尺寸，可以是 2K/4K/standard/high，也可以是 宽x高
	Size      string  `json:"size,omitempty"`
	NumImages int     `json:"num_images,omitempty"`
	Watermark bool    `json:"watermark,omitempty"`
	Seed      *int64  `json:"seed,omitempty"`
	Quality   Quality `json:"quality,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
}

// Validate 校验请求参数，并填充默认值
func (req *GenerationRequest) Validate() error {
	promptLen := misc.WordCount(req.Prompt)
	if promptLen == 0 {
		return invalid("prompt", "prompt is required")
	}

	if promptLen > MaxPromptLength {
		return invalid("prompt", "prompt must be at most %d characters, got %d", MaxPromptLength, promptLen)
	}

	if n := misc.WordCount(req.NegativePrompt); n > MaxNegativePromptLength {
		return invalid("negative_prompt", "negative prompt must be at most %d characters, got %d", MaxNegativePromptLength, n)
	}

	if req.NumImages == 0 {
		req.NumImages = MinImageCount
	}

	if req.NumImages < MinImageCount || req.NumImages > MaxImageCount {
		return invalid("num_images", "must be between %d and %d, got %d", MinImageCount, MaxImageCount, req.NumImages)
	}

	if req.Seed != nil && (*req.Seed < MinSeed || *req.Seed > MaxSeed) {
		return invalid("seed", "must be between %d and %d", MinSeed, MaxSeed)
	}

	if len(req.ReferenceImages) > MaxReferenceImages {
		return invalid("reference_images", "at most %d reference images are allowed", MaxReferenceImages)
	}

	for _, ref := range req.ReferenceImages {
		if !isImageReference(ref) {
			return invalid("reference_images", "%q is not a valid image url", misc.SubString(ref, 60))
		}
	}

	return req.Quality.validate()
}

// Resize 显式指定 宽x高 时，生成的图片需要裁剪到该尺寸
func (req GenerationRequest) Resize() *imgutil.Resize {
	return imgutil.ParseResize(req.Size, imgutil.FitCover)
}

func isImageReference(ref string) bool {
	if strings.HasPrefix(ref, "data:image/") {
		return true
	}

	u, err := url.Parse(ref)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
