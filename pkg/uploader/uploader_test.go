package uploader_test

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/festival-server/pkg/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploader() *uploader.Uploader {
	return uploader.New(&config.Config{
		StorageAppKey:    "test-ak",
		StorageAppSecret: "test-sk",
		StorageBucket:    "festival",
		StorageDomain:    "https://cdn.example.com",
		StorageRegion:    "z0",
	})
}

func TestUploader_SignedURL(t *testing.T) {
	u := newTestUploader()

	before := time.Now()
	signed, err := u.SignedURL("generated-images/default/a.webp", 30, "")
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	assert.Equal(t, "cdn.example.com", parsed.Host)
	assert.Equal(t, "/generated-images/default/a.webp", parsed.Path)
	assert.NotEmpty(t, parsed.Query().Get("token"))

	deadline, err := strconv.ParseInt(parsed.Query().Get("e"), 10, 64)
	require.NoError(t, err)

	expected := before.Add(30 * 24 * time.Hour).Unix()
	assert.InDelta(t, expected, deadline, 5)
}

func TestUploader_SignedURLWithTransform(t *testing.T) {
	u := newTestUploader()

	signed, err := u.SignedURL("thumbnails/p1/x.webp", 1, "imageView2/2/format/jpg/q/80")
	require.NoError(t, err)

	assert.Contains(t, signed, "x.webp?imageView2/2/format/jpg/q/80&e=")
	assert.Contains(t, signed, "&token=test-ak:")
}

func TestUploader_SignedURLErrors(t *testing.T) {
	u := newTestUploader()

	for _, key := range []string{"", "/abs/key.webp", "a/../b.webp"} {
		_, err := u.SignedURL(key, 30, "")

		var se *uploader.SigningError
		assert.True(t, errors.As(err, &se), "key %q should fail signing", key)
	}

	noCreds := uploader.New(&config.Config{StorageBucket: "festival", StorageDomain: "https://cdn.example.com"})
	_, err := noCreds.SignedURL("a.webp", 30, "")

	var se *uploader.SigningError
	assert.True(t, errors.As(err, &se))
}

func TestUploader_PutWithoutCredentials(t *testing.T) {
	u := uploader.New(&config.Config{StorageBucket: "festival"})
	err := u.Put(context.TODO(), "a.webp", []byte("x"), uploader.PutOptions{ContentType: "image/webp"})

	var we *uploader.StorageWriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "a.webp", we.Key)
}

func TestUploader_ExistsFailsOpen(t *testing.T) {
	u := uploader.New(&config.Config{StorageBucket: "festival"})
	assert.False(t, u.Exists(context.TODO(), "generated-images/default/a.webp"))

	u = uploader.New(&config.Config{StorageAppKey: "ak", StorageAppSecret: "sk", StorageBucket: "festival"})
	assert.False(t, u.Exists(context.TODO(), "../a.webp"))
	assert.False(t, u.Exists(context.TODO(), ""))
}

func TestUploader_SetCacheMaxAge(t *testing.T) {
	assert.Error(t, uploader.New(&config.Config{}).SetCacheMaxAge(uploader.CacheMaxAgeOneYear))

	u := uploader.New(&config.Config{
		StorageAppKey:    "test-ak",
		StorageAppSecret: "test-sk",
		StorageBucket:    "festival",
		StorageRegion:    "no-such-region",
	})
	err := u.SetCacheMaxAge(uploader.CacheMaxAgeOneYear)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storage region")
}

func TestDeleteEach(t *testing.T) {
	failing := map[string]bool{"b": true}
	calls := make([]string, 0)

	res := uploader.DeleteEach(context.TODO(), []string{"a", "b", "c"}, func(ctx context.Context, key string) bool {
		calls = append(calls, key)
		return !failing[key]
	})

	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Equal(t, []string{"a", "c"}, res.Deleted)
	assert.Equal(t, []string{"b"}, res.Failed)
}
