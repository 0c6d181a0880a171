package data

import "github.com/mylxsw/eloquent/migrate"

func Migrate20251001DDL(m *migrate.Manager) {
	m.Schema("20251001-ddl").Raw("festival_record", func() []string {
		return []string{`CREATE TABLE IF NOT EXISTS festival_record
(
    id         BIGINT AUTO_INCREMENT                 PRIMARY KEY,
    user_key   VARCHAR(64)                           NULL COMMENT '客户端标识',
    kind       VARCHAR(20)                           NOT NULL COMMENT 'restoration/poem/image',
    status     VARCHAR(20) DEFAULT 'processing'      NOT NULL COMMENT 'processing/success/failed',
    prompt     TEXT                                  NULL,
    payload    JSON                                  NULL COMMENT '请求参数',
    result     JSON                                  NULL COMMENT '处理结果',
    error      VARCHAR(1000)                         NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP   NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP   NOT NULL ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_user_key (user_key),
    INDEX idx_kind_status (kind, status)
) CHARSET = utf8mb4 COLLATE = utf8mb4_general_ci`}
	})
}
