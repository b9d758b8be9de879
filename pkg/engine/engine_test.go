package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// mockTickers 模拟股票代码来源
type mockTickers struct {
	tickers []*model.Ticker
	err     error
}

func (m *mockTickers) ListTickers(ctx context.Context) ([]*model.Ticker, error) {
	return m.tickers, m.err
}

// mockAlerts 模拟告警存储，用 map 模拟 link 唯一约束
type mockAlerts struct {
	existing   map[string]bool
	failCreate bool
	failExists bool
	created    []*model.Alert
}

func newMockAlerts() *mockAlerts {
	return &mockAlerts{existing: make(map[string]bool)}
}

func (m *mockAlerts) ExistsByLink(ctx context.Context, link string) (bool, error) {
	if m.failExists {
		return false, fmt.Errorf("db down")
	}
	return m.existing[link], nil
}

func (m *mockAlerts) CreateAlert(ctx context.Context, alert *model.Alert) (bool, error) {
	if m.failCreate {
		return false, fmt.Errorf("db down")
	}
	if m.existing[alert.Link] {
		// 唯一约束冲突：落空但不报错
		return false, nil
	}
	m.existing[alert.Link] = true
	m.created = append(m.created, alert)
	return true, nil
}

type mockFetcher struct {
	items []model.NewsItem
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context, urls []string) []model.NewsItem {
	m.calls++
	return m.items
}

type mockEvaluator struct {
	ev    model.Evaluation
	calls int
}

func (m *mockEvaluator) Evaluate(ctx context.Context, item model.MatchedNews) model.Evaluation {
	m.calls++
	return m.ev
}

type mockNotifier struct {
	sent []*model.Alert
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, alert *model.Alert) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, alert)
	return nil
}

func tickersOf(symbols ...string) *mockTickers {
	var ts []*model.Ticker
	for i, s := range symbols {
		ts = append(ts, &model.Ticker{ID: i + 1, Symbol: s})
	}
	return &mockTickers{tickers: ts}
}

func newTestEngine(tickers *mockTickers, alerts *mockAlerts, fetcher *mockFetcher, eval *mockEvaluator, notifier *mockNotifier) *Engine {
	return NewEngine([]string{"https://feeds.example.com/rss"}, tickers, alerts, fetcher, eval, notifier)
}

func TestRunCycleHappyPath(t *testing.T) {
	alerts := newMockAlerts()
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL hits record", Summary: "Apple shares climb.", Link: "https://example.com/a", ImageURL: "https://img/1.jpg"},
		{Title: "Oil slides", Summary: "OPEC raises output.", Link: "https://example.com/b"},
	}}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "Apple beats earnings", Impact: "4 Positive"}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL", "TSLA"), alerts, fetcher, eval, notifier)
	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if len(alerts.created) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts.created))
	}
	a := alerts.created[0]
	if a.Symbol != "AAPL" || a.Link != "https://example.com/a" {
		t.Errorf("unexpected alert %+v", a)
	}
	if a.Summary != "Apple beats earnings" || a.Impact != "4 Positive" {
		t.Errorf("evaluation not applied: %+v", a)
	}
	if a.ImageURL != "https://img/1.jpg" {
		t.Errorf("image url not carried: %+v", a)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.sent))
	}
	if eval.calls != 1 {
		t.Errorf("expected 1 evaluation, got %d", eval.calls)
	}
}

func TestRunCycleEmptyTickersShortCircuits(t *testing.T) {
	fetcher := &mockFetcher{}
	e := newTestEngine(&mockTickers{}, newMockAlerts(), fetcher, &mockEvaluator{}, &mockNotifier{})

	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch must not run with no tracked tickers, calls = %d", fetcher.calls)
	}
}

func TestRunCycleTickerLoadFailure(t *testing.T) {
	fetcher := &mockFetcher{}
	e := newTestEngine(&mockTickers{err: fmt.Errorf("db down")}, newMockAlerts(), fetcher, &mockEvaluator{}, &mockNotifier{})

	if err := e.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when ticker load fails")
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch must not run when symbols unavailable")
	}
}

func TestRunCycleIdempotentAcrossCycles(t *testing.T) {
	alerts := newMockAlerts()
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL hits record", Summary: "up", Link: "https://example.com/a"},
	}}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "3 Positive"}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher, eval, notifier)
	for i := 0; i < 3; i++ {
		if err := e.RunCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d error = %v", i, err)
		}
	}

	if len(alerts.created) != 1 {
		t.Errorf("repeated cycles must not duplicate alerts, got %d", len(alerts.created))
	}
	if len(notifier.sent) != 1 {
		t.Errorf("repeated cycles must not re-notify, got %d", len(notifier.sent))
	}
	if eval.calls != 1 {
		t.Errorf("repeated cycles must not re-evaluate, got %d", eval.calls)
	}
}

func TestRunCycleSkipsDurablyRecordedLink(t *testing.T) {
	// 新的引擎实例（如进程重启后）依赖持久层检查去重
	alerts := newMockAlerts()
	alerts.existing["https://example.com/a"] = true
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL hits record", Summary: "up", Link: "https://example.com/a"},
	}}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "3 Positive"}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher, eval, notifier)
	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if eval.calls != 0 {
		t.Errorf("already-recorded link must not be evaluated, got %d calls", eval.calls)
	}
	if len(alerts.created) != 0 || len(notifier.sent) != 0 {
		t.Errorf("already-recorded link must not alert or notify")
	}
}

func TestRunCyclePersistFailureSuppressesNotification(t *testing.T) {
	alerts := newMockAlerts()
	alerts.failCreate = true
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL hits record", Summary: "up", Link: "https://example.com/a"},
	}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher,
		&mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "1 Neutral"}}, notifier)

	// 条目级失败不升级为轮次失败
	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("persist failure must not abort cycle: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("no notification may be sent for an unrecorded alert")
	}
}

func TestRunCycleItemFailureIsolation(t *testing.T) {
	// 第一条的存在性检查失败，第二条仍须正常处理
	alerts := newMockAlerts()
	step := 0
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL one", Summary: "x", Link: "https://example.com/a"},
		{Title: "AAPL two", Summary: "y", Link: "https://example.com/b"},
	}}
	notifier := &mockNotifier{}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "2 Neutral"}}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher, eval, notifier)

	// 包一层:首条返回错误
	e.alerts = &flakyAlerts{inner: alerts, failFirst: &step}

	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(alerts.created) != 1 || alerts.created[0].Link != "https://example.com/b" {
		t.Errorf("second item must survive first item's failure: %+v", alerts.created)
	}
}

// flakyAlerts 首次存在性检查失败，其余透传
type flakyAlerts struct {
	inner     *mockAlerts
	failFirst *int
}

func (f *flakyAlerts) ExistsByLink(ctx context.Context, link string) (bool, error) {
	if *f.failFirst == 0 {
		*f.failFirst = 1
		return false, fmt.Errorf("transient db error")
	}
	return f.inner.ExistsByLink(ctx, link)
}

func (f *flakyAlerts) CreateAlert(ctx context.Context, alert *model.Alert) (bool, error) {
	return f.inner.CreateAlert(ctx, alert)
}

func TestRunCycleLinkOnlyDedupOnMultiSymbolMatch(t *testing.T) {
	// 同一条新闻命中两只股票：link 唯一约束只放行第一条告警
	alerts := newMockAlerts()
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL and TSLA rally together", Summary: "both up", Link: "https://example.com/a"},
	}}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "4 Positive"}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL", "TSLA"), alerts, fetcher, eval, notifier)
	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if len(alerts.created) != 1 {
		t.Fatalf("link-only dedup must allow exactly 1 alert, got %d", len(alerts.created))
	}
	if alerts.created[0].Symbol != "AAPL" {
		t.Errorf("first matching symbol wins, got %q", alerts.created[0].Symbol)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.sent))
	}
}

func TestRunCycleSentinelEvaluationStillPersisted(t *testing.T) {
	// LLM 失败不丢条目：哨兵结果照常落库并推送
	alerts := newMockAlerts()
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL news", Summary: "up", Link: "https://example.com/a"},
	}}
	eval := &mockEvaluator{ev: model.Evaluation{Summary: "LLM Failed", Impact: "0 Neutral"}}
	notifier := &mockNotifier{}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher, eval, notifier)
	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if len(alerts.created) != 1 {
		t.Fatalf("sentinel evaluation must still produce an alert")
	}
	if alerts.created[0].Summary != "LLM Failed" || alerts.created[0].Impact != "0 Neutral" {
		t.Errorf("sentinel not carried into alert: %+v", alerts.created[0])
	}
}

func TestRunCycleNotifyFailureKeepsAlert(t *testing.T) {
	alerts := newMockAlerts()
	fetcher := &mockFetcher{items: []model.NewsItem{
		{Title: "AAPL news", Summary: "up", Link: "https://example.com/a"},
	}}
	notifier := &mockNotifier{err: fmt.Errorf("telegram down")}

	e := newTestEngine(tickersOf("AAPL"), alerts, fetcher,
		&mockEvaluator{ev: model.Evaluation{Summary: "s", Impact: "2 Positive"}}, notifier)

	if err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("notify failure must not abort cycle: %v", err)
	}
	if len(alerts.created) != 1 {
		t.Error("alert must stay persisted when notification fails")
	}
}
