package telegram

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

const apiBaseURL = "https://api.telegram.org"

// 码点达到该阈值的字符会从 Impact 标签中剔除，避免下游传输问题
const wideRuneThreshold = 10000

// Client Telegram Bot API 客户端
type Client struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewClient 创建一个新的 Telegram 客户端
func NewClient(botToken, chatID string) *Client {
	return &Client{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  apiBaseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Notify 将告警格式化为 HTML 消息并推送。
// 推送失败只向上返回错误由调用方记录，不重试也不回滚已落库的告警。
func (c *Client) Notify(ctx context.Context, alert *model.Alert) error {
	if c.botToken == "" || c.chatID == "" {
		return fmt.Errorf("telegram not configured: missing bot_token or chat_id")
	}
	return c.sendMessage(ctx, FormatAlert(alert))
}

// FormatAlert 构造人类可读的告警消息。
// 摘要做 HTML 转义；Impact 标签剔除宽字符（仅此字段）。
func FormatAlert(a *model.Alert) string {
	safeSummary := html.EscapeString(a.Summary)
	safeImpact := stripWideRunes(a.Impact)

	return fmt.Sprintf("<b>%s</b>\n\n<b>Summary:</b> %s\n\n🔗 <a href=\"%s\">Read more</a>\n\n<b>Impact:</b> %s",
		a.Symbol, safeSummary, a.Link, safeImpact)
}

// sendMessage 调用 Bot API 的 sendMessage 接口
func (c *Client) sendMessage(ctx context.Context, text string) error {
	payload := url.Values{}
	payload.Set("chat_id", c.chatID)
	payload.Set("text", text)
	payload.Set("parse_mode", "HTML")
	payload.Set("disable_web_page_preview", "false")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api error (status %d): %s", res.StatusCode, string(body))
	}

	return nil
}

func stripWideRunes(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < wideRuneThreshold {
			b.WriteRune(r)
		}
	}
	return b.String()
}
