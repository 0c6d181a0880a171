package seedream

import (
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/glacier/infra"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(func(conf *config.Config) *Seedream {
		return New(conf.SeedreamServer, conf.SeedreamKey, conf.SeedreamModel, conf.SeedreamTimeout)
	})
}
