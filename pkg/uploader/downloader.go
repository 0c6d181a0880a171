package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mylxsw/festival-server/pkg/misc"
	"gopkg.in/resty.v1"
)

var (
	ErrEmptyPayload = errors.New("remote file is empty")
)

// FetchError 下载远程文件失败，StatusCode 为 0 表示网络错误
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("fetch %s failed: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Payload 下载得到的文件内容
type Payload struct {
	Data        []byte
	ContentType string
}

type Downloader struct {
	client  *resty.Client
	timeout time.Duration
}

// NewDownloader 创建下载器，timeout 为单次下载的超时时间，为 0 时不限制
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{client: misc.RestyClient(0), timeout: timeout}
}

// Download 下载远程文件，使用浏览器 User-Agent，部分服务商会拒绝默认的客户端标识
func (d *Downloader) Download(ctx context.Context, remoteURL string) (*Payload, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", misc.BrowserUserAgent).
		SetHeader("Accept", "image/*,*/*;q=0.8").
		Get(remoteURL)
	if err != nil {
		return nil, &FetchError{URL: remoteURL, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &FetchError{URL: remoteURL, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &Payload{Data: data, ContentType: resp.Header().Get("Content-Type")}, nil
}
