package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/ticker_radar/internal/biz"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

type alertRepo struct {
	data *Data
	log  *log.Helper
}

// NewAlertRepo 创建告警仓库实现
func NewAlertRepo(data *Data, logger log.Logger) biz.AlertRepo {
	return &alertRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *alertRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := r.data.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE link = $1)`, link).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check alert existence: %w", err)
	}
	return exists, nil
}

// CreateAlert 插入一条告警。link 命中唯一约束时 ON CONFLICT DO NOTHING
// 使插入原子地落空，此时返回 created=false 且无错误——重复即去重成功。
func (r *alertRepo) CreateAlert(ctx context.Context, alert *model.Alert) (bool, error) {
	err := r.data.db.QueryRowContext(ctx, `
		INSERT INTO alerts (symbol, title, summary, link, impact, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (link) DO NOTHING
		RETURNING id, created_at`,
		alert.Symbol,
		sanitizeText(alert.Title),
		sanitizeText(alert.Summary),
		alert.Link,
		sanitizeText(alert.Impact),
		alert.ImageURL,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return true, nil
}

func (r *alertRepo) ListRecent(ctx context.Context, limit int) ([]*model.Alert, error) {
	rows, err := r.data.db.QueryContext(ctx, `
		SELECT id, symbol, title, summary, link, impact, COALESCE(image_url, ''), created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Title, &a.Summary, &a.Link, &a.Impact, &a.ImageURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
