package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	domrepo "ProScalper/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var barColumns = []string{"ts", "open", "high", "low", "close", "volume"}

func TestCHBarSourceReturnsAscending(t *testing.T) {
	t0 := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeDB{
		columns: barColumns,
		rows: [][]driver.Value{
			{t0.Add(10 * time.Minute), 3.0, 3.5, 2.5, 3.2, 30.0},
			{t0.Add(5 * time.Minute), 2.0, 2.5, 1.5, 2.2, 20.0},
			{t0, 1.0, 1.5, 0.5, 1.2, 10.0},
		},
	}
	src := newCHBarSource(openFakeDB(t, f), "proscalper", "")

	bars, err := src.GetLatestBars(context.Background(), "BTC_USDT", domrepo.TF5m, 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, t0, bars[0].Timestamp)
	assert.Equal(t, 1.2, bars[0].Close)
	assert.Equal(t, 3.2, bars[2].Close)
	assert.Equal(t, 30.0, bars[2].Volume)

	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "FROM proscalper.ohlcv FINAL")
	assert.Contains(t, f.queries[0], "ORDER BY ts DESC")
	assert.Equal(t, []driver.Value{"BTC_USDT", "5m", int64(3)}, f.args[0])
}

func TestCHBarSourceQueryError(t *testing.T) {
	f := &fakeDB{columns: barColumns, queryErr: errors.New("table missing")}
	src := newCHBarSource(openFakeDB(t, f), "", "bars")

	_, err := src.GetLatestBars(context.Background(), "ETH_USDT", domrepo.TF1m, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get latest bars")
}

func TestCHBarSourceZeroLimit(t *testing.T) {
	f := &fakeDB{columns: barColumns}
	src := newCHBarSource(openFakeDB(t, f), "", "")

	bars, err := src.GetLatestBars(context.Background(), "ETH_USDT", domrepo.TF1m, 0)
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Empty(t, f.queries)
}

func TestCHBarSourceSchema(t *testing.T) {
	src := newCHBarSource(nil, "proscalper", "ohlcv")
	stmts := src.SchemaStatements()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS proscalper.ohlcv")
	assert.Contains(t, stmts[0], "ORDER BY (symbol, timeframe, ts)")
}
