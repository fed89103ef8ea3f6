package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/core/ports"
	"github.com/kirillkom/grant-tagger/internal/core/usecase"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/queue/nats"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/seed"
	"github.com/kirillkom/grant-tagger/internal/observability/metrics"
)

// SampleSeed selects the bundled sample catalogue instead of a file path.
const SampleSeed = "sample"

type App struct {
	Config     config.Config
	Vocabulary *domain.Vocabulary

	Repo     ports.GrantRepository
	Catalog  ports.GrantCatalog
	Tagger   ports.GrantTagger
	Queue    ports.ImportQueue
	Exporter *xlsx.Exporter

	closeFn func()
}

type schemaRepository interface {
	ports.GrantRepository
	EnsureSchema(ctx context.Context) error
}

// New opens the configured store, builds the classifier and the tagging use case,
// and connects to NATS when NATS_URL is set. registerer may be nil.
func New(ctx context.Context, cfg config.Config, registerer prometheus.Registerer) (*App, error) {
	repo, db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	vocabulary := domain.DefaultVocabulary()
	executor := resilience.NewExecutor(BreakerConfig(cfg))
	classifier := NewClassifier(cfg, vocabulary, executor, registerer)
	tagger := usecase.NewTagGrantsUseCase(repo, classifier, vocabulary)

	app := &App{
		Config:     cfg,
		Vocabulary: vocabulary,
		Repo:       repo,
		Catalog:    repo,
		Tagger:     tagger,
		Exporter:   xlsx.NewExporter(),
	}

	var queue *nats.Queue
	if strings.TrimSpace(cfg.NATSURL) != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init import queue: %w", err)
		}
		app.Queue = queue
	} else {
		slog.Info("import_queue_disabled", "reason", "NATS_URL is empty")
	}

	app.closeFn = func() {
		if queue != nil {
			queue.Close()
		}
		_ = db.Close()
	}
	return app, nil
}

// NewClassifier builds the LLM-backed classifier alone, for callers that never touch storage.
func NewClassifier(
	cfg config.Config,
	vocabulary *domain.Vocabulary,
	executor *resilience.Executor,
	registerer prometheus.Registerer,
) *openaicompat.Client {
	opts := openaicompat.Options{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout(),
		Vocabulary:  vocabulary,
		Executor:    executor,
	}
	if registerer != nil {
		opts.Recorder = metrics.NewClassificationMetrics("classifier", registerer)
	}
	return openaicompat.New(opts)
}

func BreakerConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.BreakerEnabled = cfg.LLMBreakerEnabled
	if cfg.LLMBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.LLMBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.LLMBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.LLMBreakerOpenTimeout()
	return out
}

func openStore(ctx context.Context, cfg config.Config) (schemaRepository, *sql.DB, error) {
	var (
		repo schemaRepository
		db   *sql.DB
		err  error
	)
	switch cfg.StorageDriver {
	case config.StorageDriverSQLite:
		db, err = sqlite.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = sqlite.NewGrantRepository(db)
	case config.StorageDriverPostgres, "":
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo = postgres.NewGrantRepository(db)
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("grant_store_ready", "driver", cfg.StorageDriver)
	return repo, db, nil
}

// LoadSeed reads grants from a file path or the bundled sample catalogue.
func LoadSeed(source string) ([]domain.Grant, error) {
	if strings.EqualFold(strings.TrimSpace(source), SampleSeed) {
		return seed.Sample()
	}
	return seed.LoadFile(source)
}

// SeedIfEmpty tags and stores the configured seed catalogue when the store holds no grants.
// It returns the number of grants stored.
func (a *App) SeedIfEmpty(ctx context.Context) (int, error) {
	source := strings.TrimSpace(a.Config.SeedFile)
	if source == "" {
		return 0, nil
	}
	count, err := a.Repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count grants: %w", err)
	}
	if count > 0 {
		slog.Info("seed_skipped", "reason", "store not empty", "grants_count", count)
		return 0, nil
	}
	return a.Seed(ctx, source)
}

// Seed tags and stores every grant from source as one batch.
func (a *App) Seed(ctx context.Context, source string) (int, error) {
	grants, err := LoadSeed(source)
	if err != nil {
		return 0, err
	}
	tagged, err := a.Tagger.TagMany(ctx, grants)
	if err != nil {
		return 0, fmt.Errorf("seed grants: %w", err)
	}
	slog.Info("seed_completed", "source", source, "grants", len(tagged))
	return len(tagged), nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
