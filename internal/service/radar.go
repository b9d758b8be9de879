package service

import (
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/ticker_radar/internal/biz"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// RadarService 对外 HTTP 服务：跟踪列表的 CRUD 与最近告警查询
type RadarService struct {
	ucTicker *biz.TickerUseCase
	ucAlert  *biz.AlertUseCase
	log      *log.Helper
}

// NewRadarService 创建服务实例
func NewRadarService(ucTicker *biz.TickerUseCase, ucAlert *biz.AlertUseCase, logger log.Logger) *RadarService {
	return &RadarService{
		ucTicker: ucTicker,
		ucAlert:  ucAlert,
		log:      log.NewHelper(logger),
	}
}

// ListTickers GET /tickers
func (s *RadarService) ListTickers(ctx http.Context) error {
	tickers, err := s.ucTicker.List(ctx)
	if err != nil {
		return err
	}
	if tickers == nil {
		tickers = []*model.Ticker{}
	}
	return ctx.Result(200, tickers)
}

// AddTicker POST /tickers
func (s *RadarService) AddTicker(ctx http.Context) error {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := ctx.Bind(&in); err != nil {
		return err
	}

	t, err := s.ucTicker.Add(ctx, in.Symbol)
	if err != nil {
		return err
	}
	return ctx.Result(200, t)
}

// DeleteTicker DELETE /tickers/{id}
func (s *RadarService) DeleteTicker(ctx http.Context) error {
	id, err := strconv.Atoi(ctx.Vars().Get("id"))
	if err != nil {
		return errors.BadRequest("TICKER_INVALID", "invalid ticker id")
	}

	if err := s.ucTicker.Delete(ctx, id); err != nil {
		return err
	}
	return ctx.Result(200, map[string]bool{"ok": true})
}

// ListAlerts GET /alerts?limit=50
func (s *RadarService) ListAlerts(ctx http.Context) error {
	limit, _ := strconv.Atoi(ctx.Query().Get("limit"))

	alerts, err := s.ucAlert.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	return ctx.Result(200, alerts)
}
