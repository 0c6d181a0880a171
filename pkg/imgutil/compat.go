package imgutil

import (
	"bytes"
	"image"
	"mime"
	"strings"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/metrics"
	"github.com/mylxsw/go-utils/array"
)

// providerAcceptMimeTypes 图片生成服务商接受的参考图格式
var providerAcceptMimeTypes = []string{"image/jpeg", "image/jpg"}

var conversionCounter = metrics.BuildCounterVec(
	metrics.Namespace,
	"image_conversions_total",
	"images re-encoded before being sent to the generation provider",
	[]string{"from"},
)

// Converted 转换后的图片
type Converted struct {
	Data     []byte
	MimeType string
	// Converted 是否发生了格式转换
	Converted bool
}

// EnsureProviderCompatible 检查图片格式是否为服务商支持的格式，不支持时转换为 PNG
func EnsureProviderCompatible(data []byte, declaredMime string) (*Converted, error) {
	declared := normalizeMime(declaredMime)

	_, sniffed, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && sniffed == string(FormatJPEG) && (declared == "" || array.In(declared, providerAcceptMimeTypes)) {
		return &Converted{Data: data, MimeType: "image/jpeg"}, nil
	}

	from := formatLabel(sniffed, declared)

	out, err := Reencode(data, EncodeOptions{Format: FormatPNG})
	if err != nil {
		return nil, err
	}

	conversionCounter.WithLabelValues(from).Inc()
	log.F(log.M{
		"from":          from,
		"declared":      declared,
		"original_size": len(data),
		"new_size":      len(out),
	}).Infof("image converted to png for provider compatibility")

	return &Converted{Data: out, MimeType: FormatPNG.MimeType(), Converted: true}, nil
}

func normalizeMime(declared string) string {
	if declared == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}

	return mediaType
}

func formatLabel(sniffed, declared string) string {
	if sniffed != "" {
		return sniffed
	}

	if declared != "" {
		return strings.TrimPrefix(declared, "image/")
	}

	return "unknown"
}
