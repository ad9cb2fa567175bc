package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	pkgch "BitDCA/pkg/clickhouse"
	applogger "BitDCA/pkg/logger"
)

// ArchiveSchema returns the idempotent DDL for the price archive.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_prices (
			symbol String,
			day DateTime,
			price Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, day)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.risk_snapshots (
			symbol String,
			strategy LowCardinality(String),
			score Float64,
			neutral UInt8,
			spot Float64,
			sma Float64,
			max_deviation Float64,
			ts DateTime64(3)
		) ENGINE = MergeTree ORDER BY (symbol, strategy, ts)`, database),
	}
}

// CHPriceArchive implements PriceArchive backed by ClickHouse.
type CHPriceArchive struct {
	db          *sql.DB
	pricesTable string
	snapsTable  string
	l           *applogger.Logger
}

func NewCHPriceArchive(ch *pkgch.Client, l *applogger.Logger) *CHPriceArchive {
	return &CHPriceArchive{
		db:          ch.DB(),
		pricesTable: ch.Database() + ".daily_prices",
		snapsTable:  ch.Database() + ".risk_snapshots",
		l:           l,
	}
}

func (s *CHPriceArchive) SavePrices(ctx context.Context, symbol string, points []models.PricePoint) error {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{symbol, p.Time.UTC(), p.Price})
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, day, price)", s.pricesTable)
	if err := pkgch.InsertBatch(ctx, s.db, q, rows); err != nil {
		s.l.Error("clickhouse save_prices error",
			applogger.String("table", s.pricesTable),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

func (s *CHPriceArchive) SaveSnapshots(ctx context.Context, snaps []models.RiskSnapshot) error {
	rows := make([][]any, 0, len(snaps))
	for _, sn := range snaps {
		var neutral uint8
		if sn.Neutral {
			neutral = 1
		}
		rows = append(rows, []any{sn.Symbol, sn.Strategy, sn.Score, neutral, sn.SpotPrice, sn.SMA, sn.MaxDeviation, sn.Timestamp.UTC()})
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, strategy, score, neutral, spot, sma, max_deviation, ts)", s.snapsTable)
	if err := pkgch.InsertBatch(ctx, s.db, q, rows); err != nil {
		s.l.Error("clickhouse save_snapshots error",
			applogger.String("table", s.snapsTable),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("save snapshots: %w", err)
	}
	return nil
}

func (s *CHPriceArchive) Prices(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PricePoint, error) {
	const qtpl = `
        SELECT day, price
        FROM %s FINAL
        WHERE symbol = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.pricesTable), symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse prices query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 256)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Time = p.Time.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.PriceArchive = (*CHPriceArchive)(nil)
