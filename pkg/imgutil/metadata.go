package imgutil

import (
	"bytes"
	"fmt"
	"image"

	"github.com/mylxsw/festival-server/pkg/misc"
)

// Metadata 图片基础信息，只解析文件头，不做完整解码
type Metadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format Format `json:"format"`
	Size   int    `json:"size"`
	// AspectRatio 宽高比，例如 16:9
	AspectRatio string `json:"aspect_ratio"`
}

func Inspect(data []byte) (*Metadata, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}

	return &Metadata{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      Format(name),
		Size:        len(data),
		AspectRatio: misc.ResolveAspectRatio(cfg.Width, cfg.Height),
	}, nil
}
