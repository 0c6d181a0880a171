package misc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/mylxsw/go-utils/must"
	"gopkg.in/resty.v1"
)

// BrowserUserAgent 部分图片服务商会拒绝默认的 Go User-Agent
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// RestyClient 创建一个失败自动重试的 HTTP 客户端，retryCount 为 0 时不重试
func RestyClient(retryCount int) *resty.Client {
	client := resty.New()
	if retryCount <= 0 {
		return client
	}

	return client.
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response) (bool, error) {
			statusCode := r.StatusCode()
			return statusCode > 399 && statusCode != 400 && statusCode != 404, nil
		})
}

// WordCount 统计字符串中的字符数
func WordCount(text string) int64 {
	return int64(utf8.RuneCountInString(text))
}

// WordTruncate 按字符数截断字符串
func WordTruncate(text string, length int64) string {
	if WordCount(text) <= length {
		return text
	}

	return string([]rune(text)[:length])
}

// SubString 截取字符串，超出部分以 ... 代替
func SubString(str string, length int) string {
	size := utf8.RuneCountInString(str)
	if size <= length {
		return str
	}

	return string([]rune(str)[:length]) + "..."
}

// ResolveAspectRatio 计算宽高比，例如 1920x1080 => 16:9
func ResolveAspectRatio(width, height int) string {
	if width == 0 || height == 0 {
		return "1:1"
	}

	gcd := func(a, b int) int {
		if a < b {
			a, b = b, a
		}

		for b != 0 {
			a, b = b, a%b
		}

		return a
	}

	g := gcd(width, height)
	return strconv.Itoa(width/g) + ":" + strconv.Itoa(height/g)
}

// UUID 生成一个 UUID
func UUID() string {
	return must.Must(uuid.GenerateUUID())
}

// ShortUUID 生成一个短 UUID
func ShortUUID() string {
	return shortuuid.New()
}

// TimestampName 生成 毫秒时间戳_随机数 形式的文件名
func TimestampName(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), strings.ToLower(ShortUUID()[:8]))
}
