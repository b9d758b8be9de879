package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/iWorld-y/ticker_radar/pkg/logger"
	"github.com/iWorld-y/ticker_radar/pkg/match"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// Fetcher 抓取所有 RSS 源并返回标准化条目
type Fetcher interface {
	Fetch(ctx context.Context, urls []string) []model.NewsItem
}

// Evaluator 评估单条命中新闻，失败时返回哨兵结果而非错误
type Evaluator interface {
	Evaluate(ctx context.Context, item model.MatchedNews) model.Evaluation
}

// Notifier 推送已落库的告警
type Notifier interface {
	Notify(ctx context.Context, alert *model.Alert) error
}

// TickerSource 读取当前跟踪的股票列表
type TickerSource interface {
	ListTickers(ctx context.Context) ([]*model.Ticker, error)
}

// AlertStore 告警持久层。CreateAlert 的落库必须以 link 唯一约束兜底：
// 并发或重叠的扫描轮次同时写入同一 link 时，只允许一条成功。
type AlertStore interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	CreateAlert(ctx context.Context, alert *model.Alert) (created bool, err error)
}

// Engine 核心处理引擎：驱动 加载代码 -> 抓取 -> 匹配 -> 去重 -> 评估 -> 落库 -> 推送 的完整一轮
type Engine struct {
	rssLinks []string
	tickers  TickerSource
	alerts   AlertStore
	fetcher  Fetcher
	eval     Evaluator
	notifier Notifier

	// 进程生命周期内已确认落库的链接，仅作为减少数据库查询的优化，
	// 不是去重的权威依据（权威依据是存储层的唯一约束）
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewEngine 创建引擎实例
func NewEngine(rssLinks []string, tickers TickerSource, alerts AlertStore, fetcher Fetcher, eval Evaluator, notifier Notifier) *Engine {
	return &Engine{
		rssLinks: rssLinks,
		tickers:  tickers,
		alerts:   alerts,
		fetcher:  fetcher,
		eval:     eval,
		notifier: notifier,
		seen:     make(map[string]struct{}),
	}
}

// RunCycle 执行一轮完整扫描。仅在股票列表加载失败时返回错误（本轮放弃，
// 下一轮重试）；条目级别的任何失败只记录日志并继续处理后续条目。
func (e *Engine) RunCycle(ctx context.Context) error {
	tickers, err := e.tickers.ListTickers(ctx)
	if err != nil {
		return fmt.Errorf("加载股票列表失败: %w", err)
	}
	if len(tickers) == 0 {
		logger.Log.Info("未跟踪任何股票代码, 跳过本轮扫描")
		return nil
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}

	items := e.fetcher.Fetch(ctx, e.rssLinks)
	logger.Log.Infof("本轮抓取 %d 条新闻, 当前跟踪 %d 只股票", len(items), len(symbols))

	var matched, created int
	for _, item := range items {
		for _, sym := range match.Match(item, symbols) {
			matched++
			if e.processItem(ctx, model.MatchedNews{NewsItem: item, Symbol: sym}) {
				created++
			}
		}
	}

	logger.Log.Infof("本轮扫描完成: 命中 %d 条, 新增告警 %d 条", matched, created)
	return nil
}

// processItem 处理一条命中新闻，返回是否产生了新告警。
// 条目之间互相独立：此处的任何失败都不影响同轮的其它条目。
func (e *Engine) processItem(ctx context.Context, item model.MatchedNews) bool {
	if e.seenBefore(item.Link) {
		return false
	}

	exists, err := e.alerts.ExistsByLink(ctx, item.Link)
	if err != nil {
		logger.Log.Errorf("查询告警是否存在失败 [%s]: %v", item.Link, err)
		return false
	}
	if exists {
		e.markSeen(item.Link)
		return false
	}

	logger.Log.Infof("评估新闻 [%s] %s", item.Symbol, item.Title)
	ev := e.eval.Evaluate(ctx, item)

	alert := &model.Alert{
		Symbol:   item.Symbol,
		Title:    item.Title,
		Summary:  ev.Summary,
		Link:     item.Link,
		Impact:   ev.Impact,
		ImageURL: item.ImageURL,
	}

	createdNew, err := e.alerts.CreateAlert(ctx, alert)
	if err != nil {
		// 落库失败则本条不推送——绝不为未记录的告警发通知
		logger.Log.Errorf("保存告警失败 [%s]: %v", item.Symbol, err)
		return false
	}
	e.markSeen(item.Link)

	if !createdNew {
		// 唯一约束拒绝了重复链接，视为去重成功而非错误
		logger.Log.Debugf("链接已有历史告警, 跳过 [%s]", item.Link)
		return false
	}

	if err := e.notifier.Notify(ctx, alert); err != nil {
		// 已落库未推送是可接受的终态，不回滚不重试
		logger.Log.Errorf("推送告警失败 [%s]: %v", item.Symbol, err)
	}
	return true
}

func (e *Engine) seenBefore(link string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seen[link]
	return ok
}

func (e *Engine) markSeen(link string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen[link] = struct{}{}
}
