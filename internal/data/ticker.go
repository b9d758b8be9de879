package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/ticker_radar/internal/biz"
	"github.com/iWorld-y/ticker_radar/pkg/model"
)

type tickerRepo struct {
	data *Data
	log  *log.Helper
}

// NewTickerRepo 创建股票代码仓库实现
func NewTickerRepo(data *Data, logger log.Logger) biz.TickerRepo {
	return &tickerRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *tickerRepo) ListTickers(ctx context.Context) ([]*model.Ticker, error) {
	rows, err := r.data.db.QueryContext(ctx, `
		SELECT id, symbol, created_at
		FROM tickers
		ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []*model.Ticker
	for rows.Next() {
		var t model.Ticker
		if err := rows.Scan(&t.ID, &t.Symbol, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, &t)
	}
	return tickers, rows.Err()
}

func (r *tickerRepo) AddTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	var t model.Ticker
	err := r.data.db.QueryRowContext(ctx, `
		INSERT INTO tickers (symbol)
		VALUES ($1)
		ON CONFLICT (symbol) DO NOTHING
		RETURNING id, symbol, created_at`,
		symbol).Scan(&t.ID, &t.Symbol, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.BadRequest("TICKER_EXISTS", "ticker already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert ticker: %w", err)
	}
	return &t, nil
}

func (r *tickerRepo) DeleteTicker(ctx context.Context, id int) error {
	res, err := r.data.db.ExecContext(ctx, `DELETE FROM tickers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return errors.NotFound("TICKER_NOT_FOUND", "ticker not found")
	}
	return nil
}
