package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/config"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
	"github.com/kirillkom/broker-report-digest/internal/core/usecase"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/extractor/dispatch"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/queue/nats"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/resilience"
	"github.com/kirillkom/broker-report-digest/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Digest    ports.DigestService
	Catalog   ports.ModelCatalogResolver
	Templates ports.TemplateService

	closeFn func()
}

// New wires the digest pipeline. Postgres and NATS are optional and skipped when unconfigured.
// digestMetrics may be nil.
func New(ctx context.Context, cfg config.Config, digestMetrics *metrics.DigestMetrics) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	breakers := resilience.NewBreakers(resilience.Policy{
		Enabled:      cfg.BreakerEnabled,
		MinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		FailureRatio: cfg.BreakerFailureRatio,
		OpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
	})
	if digestMetrics != nil {
		breakers.OnTransition(digestMetrics.ObserveBreakerState)
	}

	var store ports.TemplateStore
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewTemplateRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = repo
	} else {
		slog.Info("template_store_disabled", "reason", "POSTGRES_DSN is empty")
	}

	var notifier ports.DigestNotifier
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Breakers: breakers,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init digest publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		notifier = publisher
	}

	templateContent, err := cfg.TemplateContent()
	if err != nil {
		closeAll()
		return nil, err
	}

	geminiClient := gemini.New(cfg.GeminiBaseURL, time.Duration(cfg.GeminiTimeoutSeconds)*time.Second).
		WithBreakers(breakers)
	extractor := dispatch.NewExtractor(
		pdftext.NewExtractor(),
		spreadsheet.NewExtractor(),
		plaintext.NewExtractor(),
	)

	templates := usecase.NewTemplateUseCase(store, templateContent)
	catalog := usecase.NewModelCatalogUseCase(geminiClient, cfg.DefaultModels)
	if digestMetrics != nil {
		digestMetrics.KnownModels(cfg.DefaultModels...)
	}
	digest := usecase.NewDigestUseCase(
		usecase.NewAssembleCorpusUseCase(extractor),
		catalog,
		usecase.NewGenerateUseCase(metrics.InstrumentGenerator(geminiClient, digestMetrics)),
		notifier,
		templates.Default(),
	)

	return &App{
		Config:    cfg,
		Digest:    digest,
		Catalog:   catalog,
		Templates: templates,
		closeFn:   closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
