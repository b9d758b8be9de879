package biz

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// TickerRepo 股票代码仓库接口
type TickerRepo interface {
	// ListTickers 返回全部跟踪中的股票代码
	ListTickers(ctx context.Context) ([]*model.Ticker, error)
	// AddTicker 新增代码，symbol 重复时返回冲突错误
	AddTicker(ctx context.Context, symbol string) (*model.Ticker, error)
	// DeleteTicker 按 ID 删除
	DeleteTicker(ctx context.Context, id int) error
}

// TickerUseCase 股票代码业务逻辑
type TickerUseCase struct {
	repo TickerRepo
	log  *log.Helper
}

// NewTickerUseCase 创建股票代码业务逻辑实例
func NewTickerUseCase(repo TickerRepo, logger log.Logger) *TickerUseCase {
	return &TickerUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 列出全部跟踪中的代码
func (uc *TickerUseCase) List(ctx context.Context) ([]*model.Ticker, error) {
	return uc.repo.ListTickers(ctx)
}

// Add 新增跟踪代码，统一转为大写
func (uc *TickerUseCase) Add(ctx context.Context, symbol string) (*model.Ticker, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.BadRequest("TICKER_INVALID", "symbol is required")
	}
	return uc.repo.AddTicker(ctx, symbol)
}

// Delete 停止跟踪某个代码。不影响该代码的历史告警。
func (uc *TickerUseCase) Delete(ctx context.Context, id int) error {
	return uc.repo.DeleteTicker(ctx, id)
}
