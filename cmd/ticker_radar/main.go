package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/ticker_radar/internal/biz"
	"github.com/iWorld-y/ticker_radar/internal/data"
	"github.com/iWorld-y/ticker_radar/internal/server"
	"github.com/iWorld-y/ticker_radar/internal/service"
	"github.com/iWorld-y/ticker_radar/pkg/config"
	"github.com/iWorld-y/ticker_radar/pkg/engine"
	"github.com/iWorld-y/ticker_radar/pkg/evaluator"
	"github.com/iWorld-y/ticker_radar/pkg/feed"
	"github.com/iWorld-y/ticker_radar/pkg/logger"
	"github.com/iWorld-y/ticker_radar/pkg/telegram"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "ticker_radar"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

// 单轮扫描的总时限，覆盖抓取、评估与推送
const cycleTimeout = 5 * time.Minute

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf configs/config.yaml")
}

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		stdlog.Fatalf("无法加载配置文件: %v", err)
	}
	if len(cfg.RSSLinks) == 0 {
		stdlog.Fatal("配置错误: 未设置 rss_links")
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		stdlog.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动股票雷达...")

	ctx := context.Background()

	klogger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	// 3. 初始化存储层
	d, cleanup, err := data.NewData(cfg.DB, klogger)
	if err != nil {
		logger.Log.Fatalf("无法连接数据库: %v", err)
	}
	defer cleanup()
	tickerRepo := data.NewTickerRepo(d, klogger)
	alertRepo := data.NewAlertRepo(d, klogger)

	// 4. 初始化 LLM 与限流器。
	// 初始化失败不终止进程：评估器会对每条新闻降级为哨兵结果
	var chatModel einomodel.ChatModel
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		logger.Log.Errorf("LLM 初始化失败, 评估将降级为哨兵结果: %v", err)
	} else {
		chatModel = cm
	}

	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	burst := cfg.Concurrency.QPS
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", float64(limit), burst)

	// 5. 组装引擎
	eng := engine.NewEngine(
		cfg.RSSLinks,
		tickerRepo,
		alertRepo,
		feed.NewReader(30*time.Second),
		evaluator.New(chatModel, cfg.LLM.APIKey, limiter),
		telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
	)

	runCycle := func() {
		cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
		defer cancel()
		if err := eng.RunCycle(cctx); err != nil {
			// 本轮放弃，等待下一次调度重试，进程不退出
			logger.Log.Errorf("本轮扫描失败: %v", err)
		}
	}

	// 6. 启动即执行一轮，之后按固定间隔调度
	interval := cfg.Scheduler.IntervalMinutes
	if interval <= 0 {
		interval = 10
	}
	go runCycle()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %dm", interval), runCycle); err != nil {
		logger.Log.Fatalf("无法注册定时任务: %v", err)
	}
	c.Start()
	defer c.Stop()
	logger.Log.Infof("定时扫描已启动, 间隔 %d 分钟", interval)

	// 7. 启动 HTTP 服务
	svc := service.NewRadarService(
		biz.NewTickerUseCase(tickerRepo, klogger),
		biz.NewAlertUseCase(alertRepo, klogger),
		klogger,
	)
	hs := server.NewHTTPServer(cfg.Server, svc, klogger)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Logger(klogger),
		kratos.Server(hs),
	)
	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务退出: %v", err)
	}
}
