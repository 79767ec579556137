// Package app wires the scheduler's collaborators from configuration. Both
// binaries build the same graph: the evaluator Lambda runs cycles from a
// schedule, the ops API runs them on request.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"weatheralert/internal/alerts"
	"weatheralert/internal/config"
	"weatheralert/internal/core"
	"weatheralert/internal/db"
	"weatheralert/internal/external"
	"weatheralert/internal/forecasts"
	"weatheralert/internal/notifications"
	"weatheralert/internal/scheduler"
	"weatheralert/internal/types"
)

// StateStore is the alert state store with the read used by the ops API.
type StateStore interface {
	alerts.StateStore
	ListByUser(ctx context.Context, userID string) ([]types.AlertState, error)
}

// App is the wired dependency graph.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  types.Clock

	Users       scheduler.UserDirectory
	States      StateStore
	Runner      *scheduler.CycleRunner
	Maintenance *scheduler.MaintenanceService

	HealthProbes []core.HealthProbe

	pool *pgxpool.Pool
}

// NewLogger builds the JSON logger for level ("debug", "info", "warn",
// "error"). Unknown levels log at info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// New builds the graph. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ruleCfg, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("alert rules: %w", err)
	}
	rules, err := alerts.NewRules(ruleCfg)
	if err != nil {
		return nil, fmt.Errorf("alert rules: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Clock: types.RealClock{}}
	evaluator := scheduler.NewEvaluator(rules, a.Clock, logger)

	source, cacheRepo, history, err := a.buildStores(ctx, evaluator.RequiredDays())
	if err != nil {
		a.Close()
		return nil, err
	}

	dispatcher, metrics, err := a.buildAWS(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Runner = scheduler.NewCycleRunner(scheduler.CycleRunnerConfig{
		Users:           a.Users,
		Forecasts:       source,
		Store:           a.States,
		Dispatcher:      dispatcher,
		Evaluator:       evaluator,
		Metrics:         metrics,
		History:         history,
		Workers:         cfg.Scheduler.Workers,
		FetchTimeout:    cfg.Scheduler.FetchTimeout,
		DispatchTimeout: cfg.Scheduler.DispatchTimeout,
		Clock:           a.Clock,
		Logger:          logger,
	})

	var purger scheduler.ForecastCachePurger
	if cacheRepo != nil {
		purger = cacheRepo
	}
	a.Maintenance = scheduler.NewMaintenanceService(purger, logger)

	logger.InfoContext(ctx, "application wired",
		"environment", cfg.Environment,
		"state_store", cfg.Local.StateStore,
		"dispatcher", cfg.Local.Dispatcher,
		"workers", cfg.Scheduler.Workers,
		"forecast_days", evaluator.RequiredDays(),
	)
	return a, nil
}

// buildStores sets Users and States and returns the forecast source, the
// cache repository (nil when not persisted) and the cycle history.
func (a *App) buildStores(ctx context.Context, forecastDays int) (scheduler.ForecastSource, *db.ForecastCacheRepository, scheduler.CycleHistory, error) {
	cfg := a.Config

	base := external.NewBaseClient(
		&http.Client{Timeout: cfg.Forecast.HTTPTimeout},
		external.DefaultBreakerSettings("open-meteo"),
		external.DefaultRetryPolicy(),
		cfg.Service+"/"+cfg.Build.Version,
	)
	a.HealthProbes = append(a.HealthProbes, &breakerProbe{name: "forecast_provider", client: base})
	upstream := forecasts.NewOpenMeteoClient(base, forecasts.OpenMeteoConfig{
		BaseURL:      cfg.Forecast.BaseURL,
		ForecastDays: forecastDays,
	}, a.Clock, a.Logger)

	if cfg.UsesMemoryStore() {
		users, err := LoadUsersFile(cfg.Local.UsersFile)
		if err != nil {
			return nil, nil, nil, err
		}
		a.Users = db.NewMemoryUserDirectory(users)
		a.States = db.NewMemoryStateStore()
		a.Logger.InfoContext(ctx, "using in-memory stores", "users", len(users))
		return upstream, nil, nil, nil
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), db.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.pool = pool
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return nil, nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}
	a.HealthProbes = append(a.HealthProbes, db.NewHealthProbe(pool))

	a.Users = db.NewUserRepository(pool, a.Logger)
	a.States = db.NewAlertStateRepository(pool)
	history := db.NewCycleHistoryRepository(pool)

	if cfg.Forecast.CacheTTL <= 0 {
		return upstream, nil, history, nil
	}
	codec, err := forecasts.NewCodec()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("forecast codec: %w", err)
	}
	cacheRepo := db.NewForecastCacheRepository(pool)
	source := forecasts.NewCachedSource(upstream, cacheRepo, codec, cfg.Forecast.CacheTTL, a.Clock, a.Logger)
	return source, cacheRepo, history, nil
}

// buildAWS returns the dispatcher and cycle metrics. AWS configuration is
// only loaded when SQS or CloudWatch is actually used.
func (a *App) buildAWS(ctx context.Context) (scheduler.Dispatcher, scheduler.CycleMetrics, error) {
	cfg := a.Config
	useSQS := cfg.Local.Dispatcher == "sqs"
	useCloudWatch := cfg.Environment != "local"

	var dispatcher scheduler.Dispatcher = notifications.NewLogDispatcher(a.Logger)
	var metrics scheduler.CycleMetrics = notifications.NewLogMetrics(a.Logger)
	if !useSQS && !useCloudWatch {
		return dispatcher, metrics, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if useSQS {
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		dispatcher = notifications.NewSQSDispatcher(client, cfg.AWS.NotificationQueueURL, a.Logger)
	}
	if useCloudWatch {
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = notifications.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, a.Logger)
	}
	return dispatcher, metrics, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// breakerProbe reports the forecast provider unhealthy while its circuit
// breaker is open.
type breakerProbe struct {
	name   string
	client interface{ BreakerState() string }
}

func (p *breakerProbe) Name() string { return p.name }

func (p *breakerProbe) Check(context.Context) error {
	if state := p.client.BreakerState(); state == "open" {
		return errors.New("circuit breaker open")
	}
	return nil
}

// Exit logs err and terminates the process. Entry points use it for
// cold-start failures.
func Exit(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
