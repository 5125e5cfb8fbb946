package di

import (
	"context"
	"io"
	"testing"

	"ProScalper/internal/domain/models"
	internalrepo "ProScalper/internal/repository"
	"ProScalper/internal/service/mexc"
	"ProScalper/internal/service/ratelimit"
	"ProScalper/pkg/config"
	applogger "ProScalper/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\nscanner:\n  enabled: true\n  symbols: [btc/usdt]\n"))
	require.NoError(t, err)
	return cfg
}

func TestProvideBarSourceDefaultsToMEXC(t *testing.T) {
	src, cleanup, err := ProvideBarSource(testConfig(t), applogger.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &mexc.Client{}, src)
}

func TestProvidePipelineRejectsBadParams(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signal.ClipLimit = 0
	_, err := ProvidePipeline(cfg)
	assert.Error(t, err)
}

func TestProvideSignalPublisherWithoutKafka(t *testing.T) {
	pub, cleanup, err := ProvideSignalPublisher(testConfig(t), prometheus.NewRegistry(), applogger.Nop())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &internalrepo.LogSignalPublisher{}, pub)
}

func TestProvideSignalPublisherCleanupClosesProducer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}

	pub, cleanup, err := ProvideSignalPublisher(cfg, prometheus.NewRegistry(), applogger.Nop())
	require.NoError(t, err)
	require.IsType(t, &internalrepo.KafkaSignalPublisher{}, pub)

	cleanup()
	err = pub.Publish(context.Background(), models.SignalEvent{Symbol: "BTC_USDT", Side: models.SideBuy})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NoError(t, pub.Close(), "closing again is a no-op")
}

func TestProvideLimiter(t *testing.T) {
	cfg := testConfig(t)

	cfg.RateLimit.Enabled = false
	lim, cleanup, err := ProvideLimiter(cfg, applogger.Nop())
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, lim)

	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Strategy = "token_bucket"
	lim, cleanup, err = ProvideLimiter(cfg, applogger.Nop())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &ratelimit.TokenBucket{}, lim)

	cfg.RateLimit.Strategy = "window"
	cfg.Redis.Enabled = false
	lim, cleanup, err = ProvideLimiter(cfg, applogger.Nop())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &ratelimit.WindowLimiter{}, lim)
}

func TestProvideKafkaConsumerDisabled(t *testing.T) {
	c, err := ProvideKafkaConsumer(testConfig(t), nil, nil, nil, prometheus.NewRegistry(), applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestInitializeAppWithDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Output = "stderr"
	cfg.Log.Level = "error"

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app)
}
