package match

import (
	"strings"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

// Match 返回新闻条目命中的股票代码子集。
// 规则：标题与摘要拼接后统一转大写，对每个代码做子串包含判断。
// 刻意保持粗粒度——不做词边界和歧义消除，代码与常见单词
// 冲突造成的误报是已接受的局限，不在此处"修复"。
func Match(item model.NewsItem, symbols []string) []string {
	text := strings.ToUpper(item.Title + " " + item.Summary)

	var hits []string
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if strings.Contains(text, sym) {
			hits = append(hits, sym)
		}
	}
	return hits
}
