package pipeline

import (
	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/uploader"
	"github.com/mylxsw/glacier/infra"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(uploader.New)
	binder.MustSingleton(func(conf *config.Config) *uploader.Downloader {
		return uploader.NewDownloader(conf.FetchTimeout)
	})
	binder.MustSingleton(func(conf *config.Config, store *uploader.Uploader, downloader *uploader.Downloader) *Processor {
		codec, ok := imgutil.ParseFormat(conf.StorageCodec)
		if !ok {
			codec = imgutil.FormatWebP
		}

		return NewProcessor(store, downloader, Config{
			Codec:               codec,
			SignedURLExpireDays: conf.SignedURLExpireDays,
			Concurrency:         conf.BatchConcurrency,
		})
	})
}

func (Provider) Boot(resolver infra.Resolver) {
	resolver.MustResolve(func(conf *config.Config, store *uploader.Uploader) {
		if !conf.StorageEnabled() || conf.StorageMaxAge <= 0 {
			return
		}

		// 七牛不支持按文件设置 Cache-Control，只能在存储空间上统一设置
		if err := store.SetCacheMaxAge(conf.StorageMaxAge); err != nil {
			log.Warningf("set storage cache max-age failed: %v", err)
		}
	})
}
