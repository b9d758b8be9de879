package data

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/ticker_radar/pkg/config"
)

// Data 持有数据库连接，供各仓库实现共享
type Data struct {
	db *sql.DB
}

// NewData 建立数据库连接并初始化表结构
func NewData(cfg config.DBConfig, logger log.Logger) (*Data, func(), error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Data{db: db}
	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		db.Close()
	}
	return d, cleanup, nil
}

func (d *Data) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tickers (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// link 上的唯一约束是告警去重的权威依据：
		// 并发写入同一链接时只允许一条成功
		`CREATE TABLE IF NOT EXISTS alerts (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			link TEXT NOT NULL UNIQUE,
			impact TEXT,
			image_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// sanitizeText 移除无效 UTF-8 字符与 NULL 字节，
// PostgreSQL 文本字段不支持 NULL 字节
func sanitizeText(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r == utf8.RuneError {
				continue
			}
			v = append(v, r)
		}
		s = string(v)
	}
	return strings.ReplaceAll(s, "\x00", "")
}
