package creative

import (
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/mylxsw/festival-server/pkg/poem"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/mylxsw/festival-server/pkg/uploader"
	"github.com/mylxsw/glacier/infra"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(func(conf *config.Config) *imgutil.Imager {
		return imgutil.NewImager(conf.FontPath)
	})

	binder.MustSingleton(func(conf *config.Config, sd *seedream.Seedream, processor *pipeline.Processor) *Generator {
		return NewGenerator(sd, processor, WithModel(sd.Model()), WithDelay(conf.SupplementDelay))
	})

	binder.MustSingleton(func(gen *Generator, downloader *uploader.Downloader, processor *pipeline.Processor, records *repo.RecordRepo) *Restorer {
		return NewRestorer(gen, downloader, processor, records)
	})

	binder.MustSingleton(func(
		conf *config.Config,
		writer *poem.Writer,
		gen *Generator,
		downloader *uploader.Downloader,
		processor *pipeline.Processor,
		records *repo.RecordRepo,
		imager *imgutil.Imager,
	) *PoemService {
		return NewPoemService(writer, gen, downloader, processor, records, imager, conf.BaseURL)
	})
}
