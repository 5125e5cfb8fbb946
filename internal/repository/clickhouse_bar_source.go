package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	pkgch "ProScalper/pkg/clickhouse"
	applogger "ProScalper/pkg/logger"
)

// CHBarSource implements BarSource backed by a ClickHouse OHLCV table.
type CHBarSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.BarSource = (*CHBarSource)(nil)

// NewCHBarSource reads from <database>.<table>.
func NewCHBarSource(ch *pkgch.Client, table string) *CHBarSource {
	return newCHBarSource(ch.DB(), ch.Database(), table)
}

func newCHBarSource(db *sql.DB, database, table string) *CHBarSource {
	if table == "" {
		table = "ohlcv"
	}
	if database != "" {
		table = database + "." + table
	}
	return &CHBarSource{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

// SchemaStatements returns the DDL creating the bar table.
func (s *CHBarSource) SchemaStatements() []string {
	return []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol    LowCardinality(String),
            timeframe LowCardinality(String),
            ts        DateTime64(3, 'UTC'),
            open      Float64,
            high      Float64,
            low       Float64,
            close     Float64,
            volume    Float64
        )
        ENGINE = ReplacingMergeTree
        ORDER BY (symbol, timeframe, ts)
    `, s.table),
	}
}

// GetLatestBars returns up to n bars, oldest first.
func (s *CHBarSource) GetLatestBars(ctx context.Context, symbol string, tf domrepo.Timeframe, n int) ([]models.Bar, error) {
	start := time.Now()
	if n <= 0 {
		return nil, nil
	}
	const qtpl = `
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, tf.String(), n)
	if err != nil {
		s.logError("clickhouse latest_bars query error", symbol, tf, n, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logError("clickhouse latest_bars scan error", symbol, tf, n, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse latest_bars rows error", symbol, tf, n, err)
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", tf.String()),
			applogger.Int("limit", n),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarSource) logError(msg, symbol string, tf domrepo.Timeframe, n int, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("tf", tf.String()),
		applogger.Int("limit", n),
		applogger.Error(err),
	)
}
