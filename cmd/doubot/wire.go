package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maine/dou_bot/internal/app"
	"github.com/maine/dou_bot/internal/browser"
	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/digest"
	"github.com/maine/dou_bot/internal/enrich"
	"github.com/maine/dou_bot/internal/fetch"
	"github.com/maine/dou_bot/internal/filter"
	"github.com/maine/dou_bot/internal/gemini"
	"github.com/maine/dou_bot/internal/grouping"
	"github.com/maine/dou_bot/internal/listing"
	"github.com/maine/dou_bot/internal/notify/email"
	"github.com/maine/dou_bot/internal/retry"
	"github.com/maine/dou_bot/internal/search"
	"github.com/maine/dou_bot/internal/state"
	"github.com/maine/dou_bot/internal/telegram"
)

// settings — проверенная конфигурация одного запуска.
type settings struct {
	cfg    config.Root
	env    *config.EnvConfig
	logger *slog.Logger
}

// loadSettings читает YAML и окружение и проверяет их до любых сетевых обращений.
func loadSettings() (settings, error) {
	env, err := config.LoadEnvConfig()
	if err != nil {
		return settings{}, fmt.Errorf("load env config: %w", err)
	}
	logger := newLogger(env.LogLevel)

	cfg, err := config.LoadRoot(configPath)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}
	return settings{cfg: cfg, env: env, logger: logger}, nil
}

func newFormatter(cfg config.Root) *digest.Formatter {
	return digest.New(digest.Options{
		SubjectPrefix: cfg.Email.SubjectPrefix,
		MaxMessages:   cfg.Telegram.MaxMessages,
		Phrases:       cfg.Search.Phrases,
		Sections:      cfg.Search.Sections,
	})
}

func newEmailSender(s settings, formatter *digest.Formatter) (*email.Sender, error) {
	from := s.env.MailFrom
	if from == "" {
		from = s.cfg.Email.From
	}
	return email.NewSender(email.Config{
		Host:     s.env.SMTPHost,
		Port:     s.env.SMTPPort,
		Username: s.env.SMTPUser,
		Password: s.env.SMTPPass,
		From:     from,
		To:       s.cfg.Email.To,
		Cc:       s.cfg.Email.Cc,
		Bcc:      s.cfg.Email.Bcc,
	}, formatter, s.logger)
}

// searchPolicy — повторы оркестратора на страницу выдачи.
// В режиме http каждый GET уже повторяет fetcher, второй уровень не нужен.
func searchPolicy(cfg config.Root) retry.Policy {
	if cfg.Browser.Mode == "http" {
		return retry.Policy{Attempts: 1}
	}
	return retry.Policy{Attempts: cfg.Search.RetryAttempts, BaseDelay: cfg.Search.RetryDelay}
}

// pipeline — собранный пайплайн и функция освобождения браузера.
type pipeline struct {
	*app.Pipeline
	close func()
}

// buildPipeline собирает все этапы по конфигурации.
func buildPipeline(ctx context.Context, s settings, statePath string, dryRun bool) (*pipeline, error) {
	cfg, env, logger := s.cfg, s.env, s.logger

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:           cfg.Fetch.Timeout,
		MaxBytes:          cfg.Fetch.MaxBytes,
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		Retry:             retry.Policy{Attempts: cfg.Search.RetryAttempts, BaseDelay: cfg.Search.RetryDelay},
	}, nil, logger)

	noise, err := filter.NewNoise(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("compile filters: %w", err)
	}
	extractor, err := listing.New(cfg.Search.BaseURL, cfg.Listing, noise, logger)
	if err != nil {
		return nil, fmt.Errorf("create listing extractor: %w", err)
	}

	closeFn := func() {}
	var page search.Page
	if cfg.Browser.Mode == "browser" {
		mgr := browser.NewManager(browser.Config{
			RemoteURL:         cfg.Browser.RemoteURL,
			BinPath:           cfg.Browser.BinPath,
			ShowWindow:        cfg.Browser.ShowWindow,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			NextSelectors:     cfg.Browser.NextSelectors,
			NextTexts:         cfg.Browser.NextTexts,
			BlockResources:    cfg.Browser.BlockResources,
			Stealth:           cfg.Browser.Stealth,
			Logger:            logger,
		})
		if err := mgr.Start(ctx); err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		session, err := mgr.OpenSession(ctx)
		if err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("open browser session: %w", err)
		}
		page = session
		closeFn = func() {
			if err := mgr.Close(); err != nil {
				logger.Warn("close browser", "error", err)
			}
		}
	} else {
		page = search.NewHTTPPage(fetcher)
	}

	orchestrator := search.NewOrchestrator(page, extractor, search.Options{
		BaseURL:        cfg.Search.BaseURL,
		NoResultsTexts: cfg.Search.NoResultsTexts,
		SettleDelay:    cfg.Search.SettleDelay,
		Retry:          searchPolicy(cfg),
	}, logger)

	enricher, err := enrich.New(cfg.Enrich, fetcher, enrich.WithLocation(loc), enrich.WithLogger(logger))
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("create enricher: %w", err)
	}

	if statePath == "" {
		statePath = cfg.Pipeline.StatePath
	}
	store := state.NewFileStore(statePath,
		state.WithLegacyKeys(cfg.Pipeline.LegacyKeys),
		state.WithLogger(logger),
	)

	var summarizer app.Summarizer
	if cfg.Gemini.Enabled && !env.SkipAI && env.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, env.GeminiAPIKey, logger)
		if err != nil {
			closeFn()
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		summarizer = gemini.NewSummarizer(client, cfg.Gemini, logger)
	}

	// В пробном прогоне получатели не нужны, секреты каналов не требуются.
	var notifiers []app.Notifier
	if !dryRun {
		notifiers, err = buildNotifiers(s)
		if err != nil {
			closeFn()
			return nil, err
		}
	}

	p := app.NewPipeline(app.PipelineDeps{
		Searcher:   orchestrator,
		Enricher:   enricher,
		Filter:     filter.New(cfg.Filters, logger),
		Summarizer: summarizer,
		Grouper:    grouping.New(cfg.Pipeline.GroupThreshold),
		Notifiers:  notifiers,
		StateStore: store,
		Location:   loc,
		Logger:     logger,
		Queries:    search.Queries(cfg),
		MaxPages:   cfg.Search.MaxPages,
		Window:     cfg.Window(),
		SendEmpty:  cfg.Pipeline.SendEmpty,
		DryRun:     dryRun,
	})
	return &pipeline{Pipeline: p, close: closeFn}, nil
}

func buildNotifiers(s settings) ([]app.Notifier, error) {
	formatter := newFormatter(s.cfg)
	var notifiers []app.Notifier
	if s.cfg.Email.Enabled {
		sender, err := newEmailSender(s, formatter)
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}
		notifiers = append(notifiers, sender)
	}
	if s.cfg.Telegram.Enabled {
		client := telegram.NewClient(s.env.TelegramBotToken)
		notifiers = append(notifiers, telegram.NewSender(client, s.cfg.Telegram.ChatIDs, formatter, s.logger))
	}
	return notifiers, nil
}
