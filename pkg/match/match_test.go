package match

import (
	"reflect"
	"testing"

	"github.com/iWorld-y/ticker_radar/pkg/model"
)

func TestMatch(t *testing.T) {
	symbols := []string{"AAPL", "TSLA", "NVDA"}

	tests := []struct {
		name string
		item model.NewsItem
		want []string
	}{
		{
			name: "标题命中",
			item: model.NewsItem{Title: "AAPL hits record high", Summary: "Shares surge."},
			want: []string{"AAPL"},
		},
		{
			name: "摘要命中",
			item: model.NewsItem{Title: "Markets rally", Summary: "Analysts expect TSLA deliveries to beat estimates."},
			want: []string{"TSLA"},
		},
		{
			name: "大小写不敏感",
			item: model.NewsItem{Title: "aapl announces buyback", Summary: ""},
			want: []string{"AAPL"},
		},
		{
			name: "多只命中各自扇出",
			item: model.NewsItem{Title: "AAPL and TSLA lead tech gains", Summary: ""},
			want: []string{"AAPL", "TSLA"},
		},
		{
			name: "均未命中",
			item: model.NewsItem{Title: "Oil prices slide", Summary: "OPEC output rises."},
			want: nil,
		},
	}

	for _, tt := range tests {
		got := Match(tt.item, symbols)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Match() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatchSubstringCollision(t *testing.T) {
	// 子串匹配是刻意的粗粒度设计：代码与普通单词冲突时会误报
	item := model.NewsItem{Title: "The CEO has a plan", Summary: ""}
	got := Match(item, []string{"A"})
	if len(got) != 1 || got[0] != "A" {
		t.Errorf("expected coarse substring match to hit, got %v", got)
	}
}

func TestMatchNormalizesSymbols(t *testing.T) {
	item := model.NewsItem{Title: "msft earnings beat", Summary: ""}
	got := Match(item, []string{" msft "})
	if len(got) != 1 || got[0] != "MSFT" {
		t.Errorf("expected normalized symbol MSFT, got %v", got)
	}
}

func TestMatchSkipsEmptySymbol(t *testing.T) {
	item := model.NewsItem{Title: "anything", Summary: "at all"}
	if got := Match(item, []string{"", "  "}); got != nil {
		t.Errorf("empty symbols must not match, got %v", got)
	}
}
