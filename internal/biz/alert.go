package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// 默认/最大返回的告警条数
const (
	defaultAlertLimit = 50
	maxAlertLimit     = 200
)

// AlertRepo 告警仓库接口。核心流水线只追加，从不更新或删除。
type AlertRepo interface {
	// ExistsByLink 按链接检查是否已有历史告警
	ExistsByLink(ctx context.Context, link string) (bool, error)
	// CreateAlert 落库一条告警；link 冲突时返回 created=false 且无错误
	CreateAlert(ctx context.Context, alert *model.Alert) (bool, error)
	// ListRecent 返回最近 limit 条告警
	ListRecent(ctx context.Context, limit int) ([]*model.Alert, error)
}

// AlertUseCase 告警业务逻辑
type AlertUseCase struct {
	repo AlertRepo
	log  *log.Helper
}

// NewAlertUseCase 创建告警业务逻辑实例
func NewAlertUseCase(repo AlertRepo, logger log.Logger) *AlertUseCase {
	return &AlertUseCase{repo: repo, log: log.NewHelper(logger)}
}

// ListRecent 列出最近的告警，limit 越界时收敛到默认值
func (uc *AlertUseCase) ListRecent(ctx context.Context, limit int) ([]*model.Alert, error) {
	if limit <= 0 || limit > maxAlertLimit {
		limit = defaultAlertLimit
	}
	return uc.repo.ListRecent(ctx, limit)
}
