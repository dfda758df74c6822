package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
	domsvc "FxCast/internal/domain/service"
	"FxCast/internal/handler/api"
	internalrepo "FxCast/internal/repository"
	"FxCast/internal/service/cache"
	"FxCast/internal/service/fred"
	"FxCast/internal/service/ratelimit"
	"FxCast/internal/services/analytics"
	"FxCast/internal/services/features"
	"FxCast/internal/services/model"
	"FxCast/internal/usecase"
	pkgch "FxCast/pkg/clickhouse"
	"FxCast/pkg/config"
	xhttp "FxCast/pkg/http"
	pkgkafka "FxCast/pkg/kafka"
	applogger "FxCast/pkg/logger"
	"FxCast/pkg/metrics"
	"FxCast/pkg/queue"
	"FxCast/pkg/server"
	xutil "FxCast/pkg/util"

	"github.com/redis/go-redis/v9"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. With the collector enabled, error
// logs are aggregated and shipped through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
			Environment:    cfg.Environment,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideStore creates the archive tables, or returns nil without ClickHouse.
func ProvideStore(ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePublisher wraps the producer, or returns nil when Kafka is disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache picks the FRED response cache: Redis, in-memory, or none.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if cfg.Cache.TTL <= 0 {
		return nil, func() {}, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewTTLCache(), func() {}, nil
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("fred response cache on redis", applogger.String("addr", cfg.Cache.Redis.Addr))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideSeriesSource creates the FRED client.
func ProvideSeriesSource(cfg *config.Config, bc cache.BytesCache, m repository.Metrics, l *applogger.Logger) domsvc.SeriesSource {
	opts := []fred.Option{
		fred.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.FRED.Timeout), xhttp.WithUserAgent("fxcast/1.0"))),
		fred.WithLogger(l),
	}
	if bc != nil {
		opts = append(opts, fred.WithCache(bc, cfg.Cache.TTL))
	}
	if m != nil {
		opts = append(opts, fred.WithMetrics(m))
	}
	return fred.New(cfg.FRED.BaseURL, cfg.FRED.APIKey, opts...)
}

// ProvideSeriesCollector maps the configured series ids onto indicators.
func ProvideSeriesCollector(cfg *config.Config, src domsvc.SeriesSource, l *applogger.Logger) (*usecase.SeriesCollector, error) {
	ids := make(map[models.Indicator]string, len(cfg.Series))
	for name, id := range cfg.Series {
		ind, err := models.ParseIndicator(name)
		if err != nil {
			return nil, fmt.Errorf("series config: %w", err)
		}
		ids[ind] = id
	}
	return usecase.NewSeriesCollector(src, ids, cfg.FRED.Limit, cfg.FRED.SortOrder, l), nil
}

// ProvideRegressor loads the scenario model. A missing artifact is not fatal: the
// dashboard runs without scenario sections.
func ProvideRegressor(cfg *config.Config, l *applogger.Logger) (domsvc.Regressor, error) {
	if cfg.Analytics.UseRemoteRegressor {
		return analytics.NewHTTPRegressor(cfg), nil
	}
	forest, report, err := model.LoadFile(cfg.Model.ArtifactPath)
	if errors.Is(err, model.ErrNoArtifact) {
		l.Warn("scenario model not found, run `fxcast train`", applogger.String("path", cfg.Model.ArtifactPath))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	fields := []applogger.Field{applogger.String("path", cfg.Model.ArtifactPath), applogger.Int("trees", len(forest.Trees))}
	if report != nil {
		fields = append(fields, applogger.Float64("mae", report.MAE), applogger.String("test_to", report.TestTo))
	}
	l.Info("scenario model loaded", fields...)
	return forest, nil
}

// ProvideForecaster picks the decomposition band source.
func ProvideForecaster(cfg *config.Config) domsvc.Forecaster {
	if cfg.Analytics.UseRemoteForecast {
		return analytics.NewHTTPForecaster(cfg)
	}
	return internalrepo.NewCSVForecastTable(cfg.Files.ForecastTable)
}

func ProvideEvaluationTable(cfg *config.Config) *internalrepo.CSVEvaluationTable {
	return internalrepo.NewCSVEvaluationTable(cfg.Files.EvaluationTable)
}

func ProvideAuditWorkbook(cfg *config.Config) *internalrepo.AuditWorkbook {
	return internalrepo.NewAuditWorkbook(cfg.Files.AuditWorkbook)
}

// ProvideDashboard assembles the dashboard use case. Nil optional dependencies are
// left out so the use case sees untyped nils.
func ProvideDashboard(
	cfg *config.Config,
	series *usecase.SeriesCollector,
	evaluation *internalrepo.CSVEvaluationTable,
	reg domsvc.Regressor,
	fc domsvc.Forecaster,
	pub repository.Publisher,
	store *internalrepo.CHStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.DashboardUseCase {
	settings := usecase.DefaultDashboardSettings()
	settings.Variation = cfg.Scenario.Variation
	settings.BlendWeight = cfg.Scenario.BlendWeight
	if cfg.Scenario.History > 0 {
		settings.History = cfg.Scenario.History
	}

	opts := []usecase.DashboardOption{usecase.WithForecaster(fc), usecase.WithDashboardLogger(l)}
	if reg != nil {
		opts = append(opts, usecase.WithRegressor(reg))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	if store != nil {
		opts = append(opts, usecase.WithPredictionArchive(store))
	}
	if m != nil {
		opts = append(opts, usecase.WithDashboardMetrics(m))
	}
	return usecase.NewDashboardUseCase(series, evaluation, settings, opts...)
}

// ProvideTraining assembles the training use case from the model section.
func ProvideTraining(
	cfg *config.Config,
	series *usecase.SeriesCollector,
	evaluation *internalrepo.CSVEvaluationTable,
	store *internalrepo.CHStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TrainingUseCase {
	p := model.DefaultParams()
	p.Trees = cfg.Model.Trees
	p.MaxDepth = cfg.Model.MaxDepth
	if cfg.Model.MinSamplesLeaf > 0 {
		p.MinSamplesLeaf = cfg.Model.MinSamplesLeaf
	}
	p.MaxFeatures = cfg.Model.MaxFeatures
	p.Seed = cfg.Model.Seed
	p.Workers = cfg.Model.Workers

	trainerOpts := []model.TrainerOption{
		model.WithTrainFraction(cfg.Model.TrainFraction),
		model.WithMinRows(cfg.Model.MinRows),
		model.WithTrainerLogger(l),
	}
	if m != nil {
		trainerOpts = append(trainerOpts, model.WithTrainerMetrics(m))
	}

	opts := []usecase.TrainingOption{usecase.WithTrainingLogger(l)}
	if store != nil {
		opts = append(opts, usecase.WithObservationStore(store, cfg.Model.Source == usecase.SourceClickHouse))
	}
	return usecase.NewTrainingUseCase(
		series,
		features.NewBuilder(features.WithCarryForward(cfg.Features.CarryForward)),
		model.NewTrainer(p, trainerOpts...),
		evaluation,
		cfg.Model.ArtifactPath,
		opts...,
	)
}

// ProvideTrainingStart parses fred.observation_start. An empty value trains on the
// whole history.
func ProvideTrainingStart(cfg *config.Config) (TrainingStart, error) {
	if cfg.FRED.ObservationStart == "" {
		return TrainingStart{}, nil
	}
	d, ok := xutil.ParseDate(cfg.FRED.ObservationStart)
	if !ok {
		return TrainingStart{}, fmt.Errorf("fred.observation_start: invalid date %q", cfg.FRED.ObservationStart)
	}
	return TrainingStart{Date: d}, nil
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
}

// ProvideTrainingQueue creates the Redis job queue for on-demand training, or nil
// when the queue is disabled. The queue is started by the App.
func ProvideTrainingQueue(cfg *config.Config, l *applogger.Logger) (*queue.RedisQueue, func(), error) {
	if !cfg.Queue.Enabled {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})
	q := queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		StatusTTL:  cfg.Queue.StatusTTL,
		KeyPrefix:  cfg.Queue.KeyPrefix,
	}, client)
	return q, func() { _ = client.Close() }, nil
}

// ProvideTrainingScheduler registers the training job on q. With the local model,
// each finished run is loaded into the dashboard.
func ProvideTrainingScheduler(
	cfg *config.Config,
	q *queue.RedisQueue,
	training *usecase.TrainingUseCase,
	dashboard *usecase.DashboardUseCase,
	l *applogger.Logger,
) *usecase.TrainingScheduler {
	if q == nil {
		return nil
	}
	opts := []usecase.TrainJobOption{usecase.WithTrainJobLogger(l)}
	if !cfg.Analytics.UseRemoteRegressor {
		opts = append(opts, usecase.WithModelReload(dashboard))
	}
	q.RegisterJob(usecase.NewTrainJob(training, opts...))
	return usecase.NewTrainingScheduler(q)
}

func ProvideHTTPHandler(l *applogger.Logger, uc *usecase.DashboardUseCase, audit *internalrepo.AuditWorkbook, limiter *ratelimit.Limiter, sched *usecase.TrainingScheduler) xhttp.Handler {
	var opts []api.HandlerOption
	if sched != nil {
		opts = append(opts, api.WithTrainingScheduler(sched))
	}
	return api.NewDashboardEchoHandler(l, uc, audit, limiter, opts...)
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(path),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the prediction archiver's consumer. It is nil unless
// Kafka, the consumer and ClickHouse are all enabled.
func ProvideKafkaConsumer(cfg *config.Config, store *internalrepo.CHStore, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled || store == nil {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, consumer *pkgkafka.Consumer, store *internalrepo.CHStore, q *queue.RedisQueue) *server.App {
	var app *server.App
	if consumer == nil {
		app = server.New(l, srv, nil)
	} else {
		app = server.New(l, srv, consumer, usecase.NewPredictionArchiver(cfg.Kafka.Topic, store, l))
	}
	if q != nil {
		app.WithBackground(q)
	}
	return app
}

// TrainingStart is the first observation date fetched for training.
type TrainingStart struct {
	Date time.Time
}

// Trainer bundles the training use case with its start date for the CLI.
type Trainer struct {
	UseCase *usecase.TrainingUseCase
	Start   TrainingStart
}

func ProvideTrainer(uc *usecase.TrainingUseCase, start TrainingStart) *Trainer {
	return &Trainer{UseCase: uc, Start: start}
}
