package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNative(t *testing.T) {
	s := defaultSettings()
	WithAddr("ch.local", 0)(&s)
	WithAuth("", "reader", "p@ss")(&s)
	WithMaxExecutionTime(30 * time.Second)(&s)

	o := s.options()
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, []string{"ch.local:9000"}, o.Addr)
	assert.Equal(t, ch.Auth{Database: "proscalper", Username: "reader", Password: "p@ss"}, o.Auth)
	assert.Equal(t, 5*time.Second, o.DialTimeout)
	assert.Equal(t, 10*time.Second, o.ReadTimeout)
	require.NotNil(t, o.Compression)
	assert.Equal(t, ch.CompressionLZ4, o.Compression.Method)
	assert.Equal(t, 30, o.Settings["max_execution_time"])
}

func TestOptionsHTTP(t *testing.T) {
	s := defaultSettings()
	WithAddr("localhost", 8123)(&s)
	WithHTTP(true)(&s)
	WithCompression(false)(&s)
	WithPool(4, 2)(&s)

	o := s.options()
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, []string{"localhost:8123"}, o.Addr)
	assert.Nil(t, o.Compression)
	assert.Nil(t, o.Settings)
	assert.Equal(t, 4, o.MaxOpenConns)
	assert.Equal(t, 2, o.MaxIdleConns)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	require.ErrorIs(t, err, ErrNoHost)
}

func TestTimeoutsKeepDefaultsOnZero(t *testing.T) {
	s := defaultSettings()
	WithTimeouts(0, 3*time.Second)(&s)
	assert.Equal(t, 5*time.Second, s.dialTimeout)
	assert.Equal(t, 3*time.Second, s.readTimeout)
}
