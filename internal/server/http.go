package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/ticker_radar/internal/service"
	"github.com/iWorld-y/ticker_radar/pkg/config"
)

// NewHTTPServer 创建 HTTP 服务并注册路由
func NewHTTPServer(cfg config.ServerConfig, svc *service.RadarService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if cfg.Addr != "" {
		opts = append(opts, http.Address(cfg.Addr))
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	r := srv.Route("/")
	r.GET("/tickers", svc.ListTickers)
	r.POST("/tickers", svc.AddTicker)
	r.DELETE("/tickers/{id}", svc.DeleteTicker)
	r.GET("/alerts", svc.ListAlerts)

	return srv
}
