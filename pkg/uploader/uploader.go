package uploader

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/go-utils/array"
	qiniuAuth "github.com/qiniu/go-sdk/v7/auth"
	"github.com/qiniu/go-sdk/v7/storage"
)

// CacheControlOneYear 生成的图片内容不会变化，允许客户端长期缓存
const CacheControlOneYear = "public, max-age=31536000"

// CacheMaxAgeOneYear 存储空间级别的缓存时间（秒），七牛通过它返回真正的 Cache-Control 响应头
const CacheMaxAgeOneYear = 31536000

// MetaCacheControl 七牛的自定义元数据，下载时以 X-Qn-Meta-Cache-Control 返回，不影响实际缓存头
const MetaCacheControl = "x-qn-meta-cache-control"

// DefaultSignedURLExpireDays 签名地址默认有效期
const DefaultSignedURLExpireDays = 30

// StorageWriteError 写入对象存储失败
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write %s failed: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// SigningError 生成签名访问地址失败
type SigningError struct {
	Key    string
	Reason string
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign url for %q failed: %s", e.Key, e.Reason)
}

type PutOptions struct {
	ContentType string
	// CacheControl 作为自定义元数据随文件保存，实际缓存头由 SetCacheMaxAge 在存储空间上设置
	CacheControl string
}

// DeleteResult 批量删除结果，按每个 key 的结果划分
type DeleteResult struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

type Uploader struct {
	appKey    string
	appSecret string
	bucket    string
	domain    string
	region    string
}

func New(conf *config.Config) *Uploader {
	if !conf.StorageEnabled() {
		log.Warningf("对象存储未配置（storage-appkey/storage-secret/storage-bucket），图片上传将全部失败")
	}

	return &Uploader{
		appKey:    conf.StorageAppKey,
		appSecret: conf.StorageAppSecret,
		bucket:    conf.StorageBucket,
		domain:    conf.StorageDomain,
		region:    conf.StorageRegion,
	}
}

func (u *Uploader) credentials() *qiniuAuth.Credentials {
	return qiniuAuth.New(u.appKey, u.appSecret)
}

func (u *Uploader) storageConfig() (*storage.Config, error) {
	cfg := storage.Config{UseHTTPS: true}
	if u.region != "" {
		region, ok := storage.GetRegionByID(storage.RegionID(u.region))
		if !ok {
			return nil, fmt.Errorf("invalid storage region: %s", u.region)
		}

		cfg.Region = &region
	}

	return &cfg, nil
}

// Put 上传文件到指定的 key，已存在时覆盖，失败时不会重试
func (u *Uploader) Put(ctx context.Context, key string, data []byte, opt PutOptions) error {
	if err := validateKey(key); err != nil {
		return &StorageWriteError{Key: key, Err: err}
	}

	if u.appKey == "" || u.appSecret == "" {
		return &StorageWriteError{Key: key, Err: fmt.Errorf("storage credentials not configured")}
	}

	cfg, err := u.storageConfig()
	if err != nil {
		return &StorageWriteError{Key: key, Err: err}
	}

	// bucket:key 形式的 scope 允许覆盖已有文件
	putPolicy := storage.PutPolicy{Scope: u.bucket + ":" + key}
	upToken := putPolicy.UploadToken(u.credentials())

	extra := storage.PutExtra{MimeType: opt.ContentType}
	if opt.CacheControl != "" {
		extra.Params = map[string]string{MetaCacheControl: opt.CacheControl}
	}

	ret := storage.PutRet{}
	if err := storage.NewFormUploader(cfg).Put(ctx, &ret, upToken, key, bytes.NewReader(data), int64(len(data)), &extra); err != nil {
		return &StorageWriteError{Key: key, Err: err}
	}

	log.F(log.M{"key": key, "hash": ret.Hash, "size": len(data)}).Debugf("file uploaded")
	return nil
}

// SignedURL 生成私有空间文件的限时访问地址，transform 为七牛图片处理参数（例如 imageView2/2/format/webp），原样透传
func (u *Uploader) SignedURL(key string, expireDays int, transform string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", &SigningError{Key: key, Reason: err.Error()}
	}

	if u.appKey == "" || u.appSecret == "" {
		return "", &SigningError{Key: key, Reason: "storage credentials not configured"}
	}

	if u.domain == "" {
		return "", &SigningError{Key: key, Reason: "storage domain not configured"}
	}

	if expireDays <= 0 {
		expireDays = DefaultSignedURLExpireDays
	}

	resource := key
	if transform = strings.TrimPrefix(transform, "?"); transform != "" {
		resource = key + "?" + transform
	}

	deadline := time.Now().Add(time.Duration(expireDays) * 24 * time.Hour).Unix()
	return storage.MakePrivateURL(u.credentials(), u.domain, resource, deadline), nil
}

// SetCacheMaxAge 设置存储空间的 max-age，下载时返回 Cache-Control: max-age=<maxAge>
func (u *Uploader) SetCacheMaxAge(maxAge int64) error {
	if u.appKey == "" || u.appSecret == "" || u.bucket == "" {
		return fmt.Errorf("storage credentials not configured")
	}

	cfg, err := u.storageConfig()
	if err != nil {
		return err
	}

	if err := storage.NewBucketManager(u.credentials(), cfg).SetBucketMaxAge(u.bucket, maxAge); err != nil {
		return fmt.Errorf("set bucket max-age failed: %w", err)
	}

	log.F(log.M{"bucket": u.bucket, "max_age": maxAge}).Info("bucket max-age updated")
	return nil
}

// Exists 检查文件是否存在，查询出错时视为不存在
func (u *Uploader) Exists(ctx context.Context, key string) bool {
	if validateKey(key) != nil || u.appKey == "" || u.appSecret == "" {
		return false
	}

	cfg, err := u.storageConfig()
	if err != nil {
		return false
	}

	if _, err := storage.NewBucketManager(u.credentials(), cfg).Stat(u.bucket, key); err != nil {
		log.F(log.M{"key": key}).Debugf("stat file failed: %v", err)
		return false
	}

	return true
}

// Delete 删除文件，失败时返回 false
func (u *Uploader) Delete(ctx context.Context, key string) bool {
	log.WithFields(log.Fields{"key": key}).Info("删除文件")

	cfg, err := u.storageConfig()
	if err != nil {
		log.WithFields(log.Fields{"key": key}).Errorf("delete file failed: %v", err)
		return false
	}

	if err := storage.NewBucketManager(u.credentials(), cfg).Delete(u.bucket, key); err != nil {
		log.WithFields(log.Fields{"key": key}).Errorf("delete file failed: %v", err)
		return false
	}

	return true
}

// DeleteMany 批量删除，单个文件删除失败不影响其它文件
func (u *Uploader) DeleteMany(ctx context.Context, keys []string) DeleteResult {
	return DeleteEach(ctx, keys, u.Delete)
}

// DeleteEach 逐个删除并按结果划分
func DeleteEach(ctx context.Context, keys []string, del func(ctx context.Context, key string) bool) DeleteResult {
	res := DeleteResult{Deleted: make([]string, 0), Failed: make([]string, 0)}
	for _, key := range keys {
		if del(ctx, key) {
			res.Deleted = append(res.Deleted, key)
		} else {
			res.Failed = append(res.Failed, key)
		}
	}

	return res
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty key")
	}

	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key must not start with /")
	}

	if array.In("..", strings.Split(key, "/")) {
		return fmt.Errorf("key must not contain ..")
	}

	return nil
}
