package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/handler/api"
	mid "FinSignal/internal/middleware"
	internalrepo "FinSignal/internal/repository"
	"FinSignal/internal/scheduler"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/backtest"
	"FinSignal/internal/services/dedup"
	"FinSignal/internal/services/entry"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/regime"
	"FinSignal/internal/services/scoring"
	"FinSignal/internal/services/structure"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	pkgch "FinSignal/pkg/clickhouse"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
	"FinSignal/pkg/server"
)

// ProvideLogger builds the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if cfg.Metrics.Disabled {
		return domrepo.NopMetrics{}
	}
	return metrics.New()
}

// ProvideCache returns a Redis-backed layered cache when redis.addr is set
// and an in-process cache otherwise.
func ProvideCache(cfg *config.Config, logger *applogger.Logger) (cache.Service, func(), error) {
	if cfg.Redis.Addr == "" {
		mem := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.CleanupEvery),
		)
		return mem, func() { _ = mem.Close() }, nil
	}

	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := cache.NewLayeredCache(remote, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
	logger.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return layered, func() {
		if err := layered.Close(); err != nil {
			logger.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config, logger *applogger.Logger) (*pkgch.Client, func(), error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if !cfg.ClickHouse.SkipSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	logger.Info("clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideBarStore creates the ClickHouse bar repository.
func ProvideBarStore(ch *pkgch.Client, logger *applogger.Logger) domrepo.BarStore {
	store := internalrepo.NewCHBarStore(ch.DB(), ch.Database())
	store.SetLogger(logger)
	return store
}

// ProvideMarketData exposes the bar store as the read-only market data port.
func ProvideMarketData(store domrepo.BarStore) domrepo.MarketData {
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured. When logging.collector_topic is set the logger's aggregated
// error lines are published through it.
func ProvideKafkaProducer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.CollectorTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.CollectorInterval,
			CountThreshold: cfg.Logging.CollectorThreshold,
			Topic:          cfg.Logging.CollectorTopic,
			Publisher:      collectorPublisher{producer: producer},
		})
	}

	return producer, func() {
		logger.RemoveCollector()
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// collectorPublisher adapts the producer to the log collector.
type collectorPublisher struct {
	producer *pkgkafka.Producer
}

func (p collectorPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvidePGPool connects Postgres when postgres.dsn is set; otherwise it
// returns nil.
func ProvidePGPool(cfg *config.Config, logger *applogger.Logger) (*pgxpool.Pool, func(), error) {
	if cfg.Postgres.DSN == "" {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := internalrepo.NewPGPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Postgres.SkipSchema {
		if err := internalrepo.NewPGSignalStore(pool).InitSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
	}
	logger.Info("postgres ready")
	return pool, pool.Close, nil
}

// ProvideSignalEmitter wires one sink per entry of cfg.Sinks.
func ProvideSignalEmitter(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	pool *pgxpool.Pool,
	m domrepo.Metrics,
) (*usecase.SignalEmitter, error) {
	sinks := make([]usecase.NamedSink, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		switch name {
		case "kafka":
			if producer == nil {
				return nil, fmt.Errorf("sink kafka: no producer configured")
			}
			sinks = append(sinks, usecase.NamedSink{
				Name:    name,
				Signals: internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic),
			})
		case "clickhouse":
			store := internalrepo.NewCHSignalStore(ch.DB(), ch.Database())
			sinks = append(sinks, usecase.NamedSink{Name: name, Signals: store, Outcomes: store})
		case "postgres":
			if pool == nil {
				return nil, fmt.Errorf("sink postgres: no pool configured")
			}
			store := internalrepo.NewPGSignalStore(pool)
			sinks = append(sinks, usecase.NamedSink{Name: name, Signals: store, Outcomes: store})
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return usecase.NewSignalEmitter(m, sinks...), nil
}

// ProvideSentiment creates the sentiment/news collaborator client, or a
// source that never has data when sentiment.url is empty.
func ProvideSentiment(cfg *config.Config, store cache.Service) domrepo.SentimentSource {
	if cfg.Sentiment.URL == "" {
		return analytics.NoopSentiment{}
	}
	var opts []xhttp.ClientOption
	if cfg.Sentiment.APIKey != "" {
		opts = append(opts, xhttp.WithHeader("X-API-Key", cfg.Sentiment.APIKey))
	}
	return analytics.NewHTTPSentimentClient(analytics.SentimentConfig{
		URL:             cfg.Sentiment.URL,
		Timeout:         cfg.Sentiment.Timeout,
		RatePerSecond:   cfg.Sentiment.RatePerSecond,
		Burst:           cfg.Sentiment.Burst,
		BreakerFailures: cfg.Sentiment.BreakerFailures,
		BreakerTimeout:  cfg.Sentiment.BreakerTimeout,
		Retries:         cfg.Sentiment.Retries,
		CacheTTL:        cfg.Sentiment.CacheTTL,
	}, store, opts...)
}

// ProvideIndicatorCache builds the indicator engine behind the shared cache.
func ProvideIndicatorCache(cfg *config.Config, store cache.Service, logger *applogger.Logger) (*indicators.Cache, error) {
	icfg := indicators.Config{
		RSIPeriod:  cfg.Indicators.RSIPeriod,
		MACDFast:   cfg.Indicators.MACDFast,
		MACDSlow:   cfg.Indicators.MACDSlow,
		MACDSignal: cfg.Indicators.MACDSignal,
		MAFast:     cfg.Indicators.MAFast,
		MASlow:     cfg.Indicators.MASlow,
		ATRPeriod:  cfg.Indicators.ATRPeriod,
	}
	if err := icfg.Validate(); err != nil {
		return nil, fmt.Errorf("indicators: %w", err)
	}
	return indicators.NewCache(indicators.NewEngine(icfg), store, cfg.Cache.IndicatorTTL, logger), nil
}

func ProvideDetector(cfg *config.Config) *structure.Detector {
	s := cfg.Structure
	return structure.NewDetector(structure.Config{
		VolumeWindow:       s.VolumeWindow,
		BOSLookback:        s.BOSLookback,
		BOSMinBreak:        s.BOSMinBreak,
		BOSVolumeMult:      s.BOSVolumeMult,
		CHoCHLookback:      s.CHoCHLookback,
		CHoCHMinReversal:   s.CHoCHMinReversal,
		CHoCHVolumeMult:    s.CHoCHVolumeMult,
		CHoCHConfirmBars:   s.CHoCHConfirmBars,
		OBMinBody:          s.OBMinBody,
		OBMinConsolidation: s.OBMinConsolidation,
		OBMaxRange:         s.OBMaxRange,
		OBVolumeMult:       s.OBVolumeMult,
		FVGMinGap:          s.FVGMinGap,
		FVGVolumeMult:      s.FVGVolumeMult,
		SweepMinExceed:     s.SweepMinExceed,
		SweepVolumeMult:    s.SweepVolumeMult,
		SweepSwingBars:     s.SweepSwingBars,
		ConfidenceCap:      s.ConfidenceCap,
	})
}

func ProvideClassifier(cfg *config.Config) *regime.Classifier {
	return regime.NewClassifier(regime.Config{
		Window:         cfg.Regime.Window,
		VolUpper:       cfg.Regime.VolUpper,
		VolLower:       cfg.Regime.VolLower,
		TrendThreshold: cfg.Regime.TrendThreshold,
	})
}

func ProvideValidator(cfg *config.Config) *entry.Validator {
	e := cfg.Entry
	return entry.NewValidator(entry.Config{
		ContextWindow:     e.ContextWindow,
		ContextMinSlope:   e.ContextMinSlope,
		CHoCHLookback:     e.CHoCHLookback,
		TriggerLookback:   e.TriggerLookback,
		LongRSIMin:        e.LongRSIMin,
		LongRSIMax:        e.LongRSIMax,
		ShortRSIMin:       e.ShortRSIMin,
		ShortRSIMax:       e.ShortRSIMax,
		VolumeWindow:      e.VolumeWindow,
		PatternLookback:   e.PatternLookback,
		StopLookback:      e.StopLookback,
		StopATRBuffer:     e.StopATRBuffer,
		TargetATRMultiple: e.TargetATRMultiple,
	})
}

// ProvideScorer parses the versioned weight table and per-regime pattern
// multipliers.
func ProvideScorer(cfg *config.Config) (*scoring.Scorer, error) {
	weights, err := scoring.ParseWeights(cfg.Scoring.WeightsVersion, cfg.Scoring.Weights)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	mult := make(map[models.Regime]float64, len(cfg.Scoring.PatternMultiplier))
	for k, v := range cfg.Scoring.PatternMultiplier {
		r := models.Regime(strings.ToUpper(k))
		if !r.IsValid() {
			return nil, fmt.Errorf("scoring.pattern_multiplier: unknown regime %q", k)
		}
		mult[r] = v
	}
	return scoring.NewScorer(scoring.Config{
		Weights:           weights,
		MinConfidence:     cfg.Scoring.MinConfidence,
		MinRiskReward:     cfg.Scoring.MinRiskReward,
		TopK:              cfg.Scoring.TopK,
		GapPenalty:        cfg.Scoring.GapPenalty,
		VolumeRatioCap:    cfg.Scoring.VolumeRatioCap,
		PatternMultiplier: mult,
	})
}

func ProvideDedup(cfg *config.Config) *dedup.Filter {
	return dedup.NewFilter(dedup.Config{
		PriceTolerance: cfg.Dedup.PriceTolerance,
		Window:         cfg.Dedup.Window,
	})
}

func ProvideSimulator(cfg *config.Config) (*backtest.Simulator, error) {
	bcfg := backtest.Config{
		Mode:           models.BacktestMode(cfg.Backtest.Mode),
		Expiry:         cfg.Backtest.Expiry,
		TieBreak:       backtest.TieBreak(cfg.Backtest.TieBreak),
		FixedTargetPct: cfg.Backtest.FixedTargetPct,
		FixedStopPct:   cfg.Backtest.FixedStopPct,
	}
	if err := bcfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	return backtest.NewSimulator(bcfg), nil
}

func ProvideSymbolPipeline(
	cfg *config.Config,
	market domrepo.MarketData,
	sentiment domrepo.SentimentSource,
	ind *indicators.Cache,
	detector *structure.Detector,
	classifier *regime.Classifier,
	validator *entry.Validator,
	scorer *scoring.Scorer,
) (*usecase.SymbolPipeline, error) {
	tf, err := models.ParseTimeframe(cfg.Generator.RegimeTimeframe)
	if err != nil {
		return nil, fmt.Errorf("generator.regime_timeframe: %w", err)
	}
	return usecase.NewSymbolPipeline(market, sentiment, ind, detector, classifier, validator, scorer,
		usecase.WithLookback(cfg.Generator.Lookback),
		usecase.WithRegimeTimeframe(tf),
	), nil
}

// ProvideSignalGenerator uses a cache-backed symbol lock when Redis is
// configured so several instances never evaluate one symbol concurrently.
func ProvideSignalGenerator(
	cfg *config.Config,
	pipeline *usecase.SymbolPipeline,
	filter *dedup.Filter,
	emitter *usecase.SignalEmitter,
	store cache.Service,
	m domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.SignalGenerator {
	opts := []usecase.GeneratorOption{
		usecase.WithWorkers(cfg.Generator.Workers),
		usecase.WithSink(emitter),
	}
	if cfg.Redis.Addr != "" {
		opts = append(opts, usecase.WithLocker(usecase.NewCacheLocker(store, cfg.Generator.LockTTL, cfg.Generator.LockWait)))
	}
	return usecase.NewSignalGenerator(pipeline, filter, m, logger.With(applogger.String("component", "generator")), opts...)
}

func ProvideBacktestRunner(
	cfg *config.Config,
	gen *usecase.SignalGenerator,
	market domrepo.MarketData,
	sim *backtest.Simulator,
	filter *dedup.Filter,
	emitter *usecase.SignalEmitter,
	m domrepo.Metrics,
	logger *applogger.Logger,
) (*usecase.BacktestRunner, error) {
	tf, err := models.ParseTimeframe(cfg.Backtest.ReplayTimeframe)
	if err != nil {
		return nil, fmt.Errorf("backtest.replay_timeframe: %w", err)
	}
	return usecase.NewBacktestRunner(gen, market, sim, filter, m, logger.With(applogger.String("component", "backtest")),
		usecase.WithOutcomeSink(emitter),
		usecase.WithReplayTimeframe(tf),
		usecase.WithReplayWorkers(cfg.Backtest.Workers),
		usecase.WithMaxSteps(cfg.Backtest.MaxSteps),
	), nil
}

func ProvideBarsUseCase(market domrepo.MarketData, ind *indicators.Cache, classifier *regime.Classifier) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(market, ind, classifier)
}

// ProvideBarPipeline invalidates cached indicators whenever a bar lands.
func ProvideBarPipeline(store domrepo.BarStore, ind *indicators.Cache, m domrepo.Metrics) *mid.BarPipeline {
	return mid.NewBarPipeline(store, m,
		mid.WithBufferSize(2000),
		mid.WithInvalidator(ind),
	)
}

func ProvideKafkaBarsHandler(cfg *config.Config, pipe *mid.BarPipeline, m domrepo.Metrics) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, pipe, m)
}

// ProvideKafkaConsumer returns nil unless kafka.consumer.enabled is set.
func ProvideKafkaConsumer(cfg *config.Config, handler *usecase.KafkaBarsHandler, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerLogger(logger.With(applogger.String("component", "consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(handler)
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideScheduler(cfg *config.Config, gen *usecase.SignalGenerator, logger *applogger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.NewScheduler(gen, cfg.Symbols, logger.With(applogger.String("component", "scheduler")))
	if err := s.Register(cfg.Schedule.GenerateCron); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideHTTPHandler registers the API routes and dependency probes.
func ProvideHTTPHandler(
	cfg *config.Config,
	gen *usecase.SignalGenerator,
	backtests *usecase.BacktestRunner,
	bars *usecase.BarsUseCase,
	store domrepo.BarStore,
	pool *pgxpool.Pool,
	logger *applogger.Logger,
) *api.SignalsEchoHandler {
	h := api.NewSignalsEchoHandler(logger.With(applogger.String("component", "http")), gen, backtests, bars, cfg.Symbols)
	h.AddHealthCheck("clickhouse", store.Health)
	if pool != nil {
		h.AddHealthCheck("postgres", pool.Ping)
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, handler *api.SignalsEchoHandler, logger *applogger.Logger) *xhttp.Server {
	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.Disabled {
		metricsPath = ""
	}
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(logger),
	)
}

func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	gen *usecase.SignalGenerator,
	backtests *usecase.BacktestRunner,
	sched *scheduler.Scheduler,
	pipe *mid.BarPipeline,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *server.App {
	opts := []server.Option{
		server.WithScheduler(sched),
		server.WithBarPipeline(pipe),
		server.WithHTTPServer(httpServer),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer))
	}
	return server.New(cfg, logger, gen, backtests, opts...)
}
