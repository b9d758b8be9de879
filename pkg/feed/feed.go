package feed

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/ticker_radar/pkg/logger"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

const (
	// 缺少摘要/链接时的占位值
	placeholderSummary = "No summary available."
	placeholderLink    = "#"
)

// Reader 从一组 RSS 源抓取并标准化新闻条目
type Reader struct {
	parser *gofeed.Parser
}

// NewReader 创建抓取器，timeout 限制单个源的 HTTP 请求耗时，
// 避免某个挂死的源阻塞整轮扫描。
func NewReader(timeout time.Duration) *Reader {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	return &Reader{parser: p}
}

// Fetch 依次抓取所有源并汇总条目。单个源抓取或解析失败只记录日志并跳过，
// 不影响其它源。同一轮内按链接去重，首次出现者保留（跨源生效）。
// 这是一轮抓取内的非持久去重，持久去重由存储层的唯一约束保证。
func (r *Reader) Fetch(ctx context.Context, urls []string) []model.NewsItem {
	seen := make(map[string]struct{})
	var items []model.NewsItem

	for _, u := range urls {
		f, err := r.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			logger.Log.Errorf("抓取 RSS 源失败 [%s]: %v", u, err)
			continue
		}

		for _, entry := range f.Items {
			if entry == nil {
				continue
			}

			link := entry.Link
			if link == "" {
				link = placeholderLink
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}

			summary := entry.Description
			if summary == "" {
				summary = entry.Content
			}
			if summary == "" {
				summary = placeholderSummary
			}

			items = append(items, model.NewsItem{
				Title:    entry.Title,
				Summary:  summary,
				Link:     link,
				ImageURL: extractImage(entry),
			})
		}
		logger.Log.Debugf("RSS 源 [%s] 抓取完成, 共 %d 条", u, len(f.Items))
	}

	return items
}

// extractImage 按优先级提取配图：media:thumbnail > media:content > 图片类型的 enclosure。
// 都不存在时返回空串。
func extractImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		if ths, ok := media["thumbnail"]; ok && len(ths) > 0 {
			if u := ths[0].Attrs["url"]; u != "" {
				return u
			}
		}
		if mcs, ok := media["content"]; ok && len(mcs) > 0 {
			if u := mcs[0].Attrs["url"]; u != "" {
				return u
			}
		}
	}

	for _, enc := range entry.Enclosures {
		if enc == nil {
			continue
		}
		if strings.Contains(enc.Type, "image") && enc.URL != "" {
			return enc.URL
		}
	}

	return ""
}
