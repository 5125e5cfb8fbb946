package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ProScalper/internal/domain/repository"
	domsvc "ProScalper/internal/domain/service"
	"ProScalper/internal/handler/api"
	"ProScalper/internal/handler/ws"
	internalrepo "ProScalper/internal/repository"
	"ProScalper/internal/service/mexc"
	svcmetrics "ProScalper/internal/service/metrics"
	"ProScalper/internal/service/ratelimit"
	"ProScalper/internal/services/indicator"
	"ProScalper/internal/usecase"
	"ProScalper/pkg/cache"
	pkgch "ProScalper/pkg/clickhouse"
	"ProScalper/pkg/config"
	xhttp "ProScalper/pkg/http"
	"ProScalper/pkg/http/middleware"
	pkgkafka "ProScalper/pkg/kafka"
	applogger "ProScalper/pkg/logger"
	"ProScalper/pkg/metrics"
	"ProScalper/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry every collector registers on.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the signal metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideAPIMetrics creates per-endpoint API collectors.
func ProvideAPIMetrics(reg *prometheus.Registry) *svcmetrics.APIMetrics {
	return svcmetrics.NewAPIMetrics(reg)
}

// ProvideBarSource picks the OHLCV source named by source.type. For
// ClickHouse the schema is created on startup and the client is closed by
// the returned cleanup.
func ProvideBarSource(cfg *config.Config, l *applogger.Logger) (domrepo.BarSource, func(), error) {
	switch cfg.Source.Type {
	case "clickhouse":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithAuth(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithPool(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}

		src := internalrepo.NewCHBarSource(client, cfg.ClickHouse.Table)
		src.SetLogger(l)
		if err := client.InitSchema(ctx, src.SchemaStatements()); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		l.Info("source.clickhouse ready",
			applogger.String("database", client.Database()),
			applogger.String("table", cfg.ClickHouse.Table),
		)
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return src, cleanup, nil

	default:
		c := mexc.New(cfg.Source.MEXC.Timeout,
			mexc.WithBaseURL(cfg.Source.MEXC.BaseURL),
			mexc.WithAttempts(cfg.Source.MEXC.Attempts),
		)
		c.SetLogger(l)
		l.Info("source.mexc ready", applogger.String("base_url", cfg.Source.MEXC.BaseURL))
		return c, func() {}, nil
	}
}

// ProvidePipeline builds the indicator pipeline from the signal section.
func ProvidePipeline(cfg *config.Config) (domsvc.SignalPipeline, error) {
	p, err := indicator.New(indicator.Params{
		TrendPeriod:         cfg.Signal.TrendPeriod,
		BaselinePeriod:      cfg.Signal.BaselinePeriod,
		ATRPeriod:           cfg.Signal.ATRPeriod,
		DeviationMultiplier: cfg.Signal.DeviationMultiplier,
		MinTick:             cfg.Signal.MinTick,
		SignalPeriod:        cfg.Signal.SignalPeriod,
		ClipLimit:           cfg.Signal.ClipLimit,
		Threshold:           cfg.Signal.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("indicator pipeline: %w", err)
	}
	return p, nil
}

// ProvideSignalsUseCase creates the recompute use case.
func ProvideSignalsUseCase(src domrepo.BarSource, p domsvc.SignalPipeline, m domrepo.Metrics, l *applogger.Logger) *usecase.SignalsUseCase {
	uc := usecase.NewSignalsUseCase(src, p, m)
	uc.SetLogger(l)
	return uc
}

// ProvideSignalPublisher publishes events to Kafka when enabled and to the
// log otherwise. The cleanup closes the producer if a later provider fails;
// on a normal run the app closes it first and the cleanup is a no-op.
func ProvideSignalPublisher(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (domrepo.SignalPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewLogSignalPublisher(l), func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	producer.SetLogger(l)

	pub := internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
	pub.SetLogger(l)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("signal.publisher close error", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideHub creates the live summary hub.
func ProvideHub(l *applogger.Logger, reg *prometheus.Registry) *ws.Hub {
	return ws.NewHub(l, reg)
}

// ProvideScanner creates the periodic multi-symbol scanner.
func ProvideScanner(cfg *config.Config, uc *usecase.SignalsUseCase, pub domrepo.SignalPublisher, hub *ws.Hub, l *applogger.Logger) *usecase.Scanner {
	s := usecase.NewScanner(uc, pub, hub, usecase.ScannerConfig{
		Symbols:     cfg.Scanner.Symbols,
		Timeframe:   domrepo.Timeframe(cfg.Scanner.Timeframe),
		Limit:       cfg.Scanner.Limit,
		Refresh:     cfg.Scanner.Refresh,
		Concurrency: cfg.Scanner.Concurrency,
	})
	s.SetLogger(l)
	return s
}

// ProvideLimiter builds the API rate limiter. It returns nil when rate
// limiting is disabled. Enabling Redis selects the window strategy counted in
// Redis, so every replica shares one budget.
func ProvideLimiter(cfg *config.Config, l *applogger.Logger) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, func() {}, nil
	}

	if rl.Strategy == "token_bucket" && !cfg.Redis.Enabled {
		tb := ratelimit.NewTokenBucket(rl.Capacity, rl.Refill)
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					if n := tb.Prune(5 * time.Minute); n > 0 {
						l.Debug("ratelimit.pruned", applogger.Int("buckets", n))
					}
				}
			}
		}()
		return tb, func() { close(stop) }, nil
	}

	var counter cache.Counter
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCounter(
			cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("ratelimit redis: %w", err)
		}
		counter = rc
	} else {
		counter = cache.NewMemoryCounter()
	}
	cleanup := func() {
		if err := counter.Close(); err != nil {
			l.Warn("ratelimit.counter close error", applogger.Error(err))
		}
	}
	return ratelimit.NewWindowLimiter(counter, rl.Limit, rl.Window), cleanup, nil
}

// ProvideHandlers assembles the REST and websocket handlers.
func ProvideHandlers(
	uc *usecase.SignalsUseCase,
	scanner *usecase.Scanner,
	hub *ws.Hub,
	am *svcmetrics.APIMetrics,
	lim ratelimit.Limiter,
	l *applogger.Logger,
) []xhttp.Handler {
	var mws []echo.MiddlewareFunc
	if lim != nil {
		mws = append(mws, ratelimit.Middleware(lim, l))
	}
	return []xhttp.Handler{
		api.NewSignalsEchoHandler(l, uc, scanner, am, mws...),
		ws.NewHandler(hub, scanner, l),
	}
}

// ProvideHTTPServer creates the Echo server with request metrics and the
// scrape endpoint.
func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		hm := middleware.NewHTTPMetrics(reg)
		opts = append(opts,
			xhttp.WithMiddleware(hm.Middleware(l, cfg.Server.SlowThreshold)),
			xhttp.WithMetrics(cfg.Metrics.Path, reg),
		)
	}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideKafkaConsumer creates the scan-request consumer. It returns nil when
// Kafka is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	uc *usecase.SignalsUseCase,
	pub domrepo.SignalPublisher,
	m domrepo.Metrics,
	reg *prometheus.Registry,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.LoggingHook{L: l}))

	h := usecase.NewKafkaScanHandler(cfg.Kafka.RequestsTopic, uc, pub, m)
	h.SetLogger(l)
	consumer.RegisterHandler(h)
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	scanner *usecase.Scanner,
	consumer *pkgkafka.Consumer,
	pub domrepo.SignalPublisher,
) *server.App {
	opts := []server.Option{
		server.WithRunner("ws.hub", hub),
		server.WithCloser("signal.publisher", pub),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if cfg.Scanner.Enabled {
		opts = append(opts, server.WithRunner("scanner", scanner))
	}
	// a nil *Consumer must not become a non-nil Service
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	return server.New(l, httpServer, opts...)
}
