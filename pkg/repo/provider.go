package repo

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mylxsw/festival-server/config"
	"github.com/mylxsw/glacier/infra"
)

type Provider struct{}

func (Provider) Register(binder infra.Binder) {
	binder.MustSingleton(NewRecordRepo)

	// MySQL 数据库连接
	binder.MustSingleton(func(conf *config.Config) (*sql.DB, error) {
		conn, err := sql.Open("mysql", conf.DBURI)
		if err != nil {
			// 第一次连接失败，等待 5 秒后重试
			// docker-compose 模式下，数据库可能还未完全初始化完成
			time.Sleep(time.Second * 5)
			conn, err = sql.Open("mysql", conf.DBURI)
		}

		if err != nil {
			return nil, fmt.Errorf("数据库连接失败: %w", err)
		}

		conn.SetMaxOpenConns(20)
		conn.SetConnMaxLifetime(time.Hour)

		return conn, nil
	})
}
