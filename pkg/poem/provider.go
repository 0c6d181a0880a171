package poem

import (
	"net"
	"net/http"
	"time"

	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/glacier/infra"
	"github.com/sashabaranov/go-openai"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(func(conf *config.Config) *Writer {
		if !conf.EnableLLM || conf.LLMKey == "" {
			return New(nil, conf.LLMModel)
		}

		return New(createClient(conf.LLMServer, conf.LLMKey), conf.LLMModel)
	})
}

func createClient(server, key string) *openai.Client {
	openaiConf := openai.DefaultConfig(key)
	openaiConf.BaseURL = server
	openaiConf.HTTPClient.Timeout = 60 * time.Second
	openaiConf.HTTPClient.Transport = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
	}

	return openai.NewClientWithConfig(openaiConf)
}
