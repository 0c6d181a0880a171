package creative

import (
	"strings"

	"github.com/mylxsw/festival-server/pkg/imgutil"
)

// Tier 分辨率等级
type Tier string

const (
	TierStandard Tier = "standard"
	TierHigh     Tier = "high"

	// HighTierThreshold 宽或高超过该值时使用高分辨率等级
	HighTierThreshold = 2048
)

// ProviderSize 服务商使用的尺寸参数
func (t Tier) ProviderSize() string {
	if t == TierHigh {
		return "4K"
	}

	return "2K"
}

// ResolveTier 根据尺寸参数计算分辨率等级
// 宽x高 格式解析失败时不报错，使用默认等级
func ResolveTier(size string) Tier {
	size = strings.TrimSpace(size)
	switch strings.ToLower(size) {
	case "":
		return TierStandard
	case "2k", "1k", string(TierStandard):
		return TierStandard
	case "4k", string(TierHigh):
		return TierHigh
	}

	w, h, ok := imgutil.ParseSize(size)
	if !ok {
		return TierStandard
	}

	if max(w, h) > HighTierThreshold {
		return TierHigh
	}

	return TierStandard
}

// SupportedSize 支持的尺寸
type SupportedSize struct {
	Token       string `json:"token"`
	Label       string `json:"label"`
	AspectRatio string `json:"aspect_ratio"`
}

var supportedSizes = []SupportedSize{
	{Token: "2K", Label: "标准 2K", AspectRatio: "1:1"},
	{Token: "4K", Label: "超清 4K", AspectRatio: "1:1"},
	{Token: "2048x2048", Label: "方图", AspectRatio: "1:1"},
	{Token: "2304x1728", Label: "横图 4:3", AspectRatio: "4:3"},
	{Token: "1728x2304", Label: "竖图 3:4", AspectRatio: "3:4"},
	{Token: "2560x1440", Label: "横屏 16:9", AspectRatio: "16:9"},
	{Token: "1440x2560", Label: "竖屏 9:16", AspectRatio: "9:16"},
	{Token: "2496x1664", Label: "横图 3:2", AspectRatio: "3:2"},
	{Token: "1664x2496", Label: "竖图 2:3", AspectRatio: "2:3"},
	{Token: "3024x1296", Label: "宽屏 21:9", AspectRatio: "21:9"},
	{Token: "4096x4096", Label: "超清方图", AspectRatio: "1:1"},
}

// ListSupportedSizes 返回支持的尺寸列表
func ListSupportedSizes() []SupportedSize {
	return append([]SupportedSize(nil), supportedSizes...)
}
