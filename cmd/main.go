package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mylxsw/asteria/formatter"
	"github.com/mylxsw/asteria/level"
	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/asteria/writer"
	"github.com/mylxsw/festival-server/api"
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/festival-server/migrate"
	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/mylxsw/festival-server/pkg/poem"
	"github.com/mylxsw/festival-server/pkg/rate"
	"github.com/mylxsw/festival-server/pkg/redis"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/mylxsw/glacier/infra"
	"github.com/mylxsw/glacier/starter/app"
)

var GitCommit string
var Version string

func main() {
	// 本地开发时从 .env 加载密钥等环境变量
	_ = godotenv.Load()

	ins := app.Create(fmt.Sprintf("%s(%s)", Version, GitCommit), 3).WithYAMLFlag("conf")

	// 配置文件
	config.Register(ins)

	// 日志配置
	ins.Init(func(f infra.FlagContext) error {
		log.All().LogFormatter(formatter.NewJSONFormatter())
		if f.String("log-path") != "" {
			log.All().LogWriter(writer.NewDefaultRotatingFileWriter(context.TODO(), func(le level.Level, module string) string {
				return filepath.Join(f.String("log-path"), fmt.Sprintf("%s.%s.log", le.GetLevelName(), time.Now().Format("20060102")))
			}))
		}

		return nil
	})

	// 基础设施
	ins.Provider(
		repo.Provider{},
		redis.Provider{},
		rate.Provider{},
		migrate.Provider{},
	)

	// 图片处理与生成
	ins.Provider(
		pipeline.Provider{},
		seedream.Provider{},
		poem.Provider{},
		creative.Provider{},
	)

	ins.Provider(api.Provider{})

	app.MustRun(ins)
}
