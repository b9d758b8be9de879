package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/ticker_radar/pkg/logger"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// 哨兵结果：LLM 不可用、调用失败或输出缺字段时使用，
// 流水线仍会基于哨兵结果落库，保证「命中且未重复的条目恰好产生一次告警」
const (
	sentinelNoSummary = "No summary"
	sentinelNoImpact  = "0 Neutral"
	sentinelErrored   = "LLM Error"  // 凭证缺失
	sentinelFailed    = "LLM Failed" // 调用失败
)

const impactPrompt = `You are a financial analyst. Analyze the following news for the stock: %s.
News Title: %s
News Summary: %s

1. Summarize the news in 1 short sentence.
2. Determine the impact on the stock price (Positive, Negative, Neutral).
3. Assign an "Impact Score" from 1 to 5 (5 being massive market-moving news).

Output format EXACTLY like this:
Summary: [Your summary here]
Impact: [Score] [Sentiment] (e.g. 5 Positive)`

// 摘要短于该长度时尝试抓取原文补充上下文
const minSummaryLen = 200

// 送入 LLM 的内容上限，防止超出 Token 限制
const maxContentLen = 6000

// Evaluator 调用 LLM 评估单条新闻对股价的影响
type Evaluator struct {
	cm      einomodel.ChatModel
	apiKey  string
	limiter *rate.Limiter
}

// New 创建评估器。cm 为 nil 或 apiKey 为空时评估器可用但只产出哨兵结果，
// 凭证缺失是按次恢复的失败而非启动时致命错误。
func New(cm einomodel.ChatModel, apiKey string, limiter *rate.Limiter) *Evaluator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Evaluator{cm: cm, apiKey: apiKey, limiter: limiter}
}

// Evaluate 评估一条命中新闻，永不返回错误：任何失败都映射为哨兵结果。
func (e *Evaluator) Evaluate(ctx context.Context, item model.MatchedNews) model.Evaluation {
	if e.cm == nil || e.apiKey == "" {
		logger.Log.Warnf("未配置 LLM API Key, 对 [%s] 使用哨兵评估", item.Title)
		return model.Evaluation{Summary: sentinelErrored, Impact: sentinelNoImpact}
	}

	summary := item.Summary
	// 摘要过短时抓取原文正文，给 LLM 更多上下文
	if len(summary) < minSummaryLen && strings.HasPrefix(item.Link, "http") {
		if content, err := fetchAndCleanContent(item.Link); err != nil {
			logger.Log.Warnf("原文抓取失败，使用 RSS 摘要 [%s]: %v", item.Title, err)
		} else if len(content) > len(summary) {
			summary = content
		}
	}
	if len(summary) > maxContentLen {
		summary = summary[:maxContentLen]
	}

	if err := e.limiter.Wait(ctx); err != nil {
		logger.Log.Errorf("限流等待被中断 [%s]: %v", item.Title, err)
		return model.Evaluation{Summary: sentinelFailed, Impact: sentinelNoImpact}
	}

	messages := []*schema.Message{
		{
			Role:    schema.User,
			Content: fmt.Sprintf(impactPrompt, item.Symbol, item.Title, summary),
		},
	}

	resp, err := e.cm.Generate(ctx, messages)
	if err != nil {
		logger.Log.Errorf("LLM 调用失败 [%s]: %v", item.Title, err)
		return model.Evaluation{Summary: sentinelFailed, Impact: sentinelNoImpact}
	}

	return parseResponse(resp.Content)
}

// parseResponse 解析 LLM 的两行标记输出。逐行扫描，
// 首个以 "Summary:" 开头的行和首个以 "Impact:" 开头的行分别生效，
// 两行顺序无关；缺失的字段用哨兵值兜底，绝不让一轮扫描失败。
func parseResponse(text string) model.Evaluation {
	var summary, impact string
	var haveSummary, haveImpact bool

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case !haveSummary && strings.HasPrefix(line, "Summary:"):
			summary = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
			haveSummary = true
		case !haveImpact && strings.HasPrefix(line, "Impact:"):
			impact = strings.TrimSpace(strings.TrimPrefix(line, "Impact:"))
			haveImpact = true
		}
	}

	if summary == "" {
		summary = sentinelNoSummary
	}
	if impact == "" {
		impact = sentinelNoImpact
	}
	return model.Evaluation{Summary: summary, Impact: impact}
}

// fetchAndCleanContent 抓取 URL 并提取核心文本
func fetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, 30*time.Second)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
