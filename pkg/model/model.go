package model

import "time"

// NewsItem RSS 条目标准化后的新闻结构，仅在单轮扫描内存活
type NewsItem struct {
	Title    string
	Summary  string
	Link     string
	ImageURL string
}

// MatchedNews 命中某只股票的新闻条目。
// 一条新闻可能命中多只股票，每次命中独立评估（扇出而非聚合）。
type MatchedNews struct {
	NewsItem
	Symbol string
}

// Evaluation LLM 对新闻市场影响的评估结果
type Evaluation struct {
	Summary string // 一句话摘要
	Impact  string // 评分 + 情绪，如 "5 Positive"
}

// Ticker 被跟踪的股票代码
type Ticker struct {
	ID        int       `json:"id"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert 持久化的告警记录。Link 在全部历史记录中唯一，
// 唯一性由数据库约束强制，是告警去重的唯一权威依据。
type Alert struct {
	ID        int       `json:"id"`
	Symbol    string    `json:"symbol"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Impact    string    `json:"impact"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
