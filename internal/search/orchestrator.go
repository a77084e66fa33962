// Package search обходит выдачу портала по каждой паре (фраза, раздел)
// и собирает уникальные ссылки-кандидаты.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/retry"
)

// Page — одна сессия пагинации (вкладка браузера или HTTP-эмуляция).
// Используется строго последовательно.
type Page interface {
	Open(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	// Next нажимает "следующая страница"; false — элемента нет.
	Next(ctx context.Context) (bool, error)
	// ScrollToEnd прокручивает страницу вниз, провоцируя ленивую подгрузку.
	ScrollToEnd(ctx context.Context) error
	Close() error
}

// Extractor разбирает страницу выдачи (реализуется listing.Extractor).
type Extractor interface {
	Extract(pageHTML string) []gazette.CandidateRef
}

// Options настраивает Orchestrator.
type Options struct {
	BaseURL        string
	NoResultsTexts []string
	SettleDelay    time.Duration
	Retry          retry.Policy
}

// Orchestrator выполняет поисковые запросы.
type Orchestrator struct {
	page      Page
	extractor Extractor
	opts      Options
	logger    *slog.Logger
}

// NewOrchestrator создаёт оркестратор поверх одной сессии.
func NewOrchestrator(page Page, extractor Extractor, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = retry.DefaultPolicy
	}
	return &Orchestrator{page: page, extractor: extractor, opts: opts, logger: logger}
}

// Run обходит все запросы и возвращает объединение кандидатов без повторов URL,
// в порядке первого обнаружения. Ошибка возвращается только при отмене контекста.
func (o *Orchestrator) Run(ctx context.Context, queries []gazette.SearchQuery, maxPagesPerQuery int) ([]gazette.CandidateRef, error) {
	if maxPagesPerQuery < 1 {
		maxPagesPerQuery = 1
	}

	seen := make(map[string]struct{})
	var all []gazette.CandidateRef

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		refs := o.runQuery(ctx, q, maxPagesPerQuery)
		added := 0
		for _, ref := range refs {
			if _, dup := seen[ref.URL]; dup {
				continue
			}
			seen[ref.URL] = struct{}{}
			all = append(all, ref)
			added++
		}
		o.logger.Info("query done", "phrase", q.Phrase, "section", q.Section, "found", len(refs), "new", added)
	}

	if err := ctx.Err(); err != nil {
		return all, err
	}
	return all, nil
}

func (o *Orchestrator) runQuery(ctx context.Context, q gazette.SearchQuery, maxPages int) []gazette.CandidateRef {
	queryURL := BuildQueryURL(o.opts.BaseURL, q)
	log := o.logger.With("phrase", q.Phrase, "section", q.Section)

	err := retry.Do(ctx, o.opts.Retry, func(ctx context.Context) error {
		return o.page.Open(ctx, queryURL)
	})
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("abandon query: first page failed", "page", 1, "url", queryURL, "error", err)
		}
		return nil
	}

	seen := make(map[string]struct{})
	var refs []gazette.CandidateRef

	for pageIdx := 1; ; pageIdx++ {
		var html string
		err := retry.Do(ctx, o.opts.Retry, func(ctx context.Context) error {
			var err error
			html, err = o.page.Content(ctx)
			return err
		})
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("abandon page: read failed", "page", pageIdx, "error", err)
			}
			break
		}
		if pageIdx == 1 && HasNoResults(pageText(html), o.opts.NoResultsTexts) {
			log.Info("no results", "url", queryURL)
			break
		}

		fresh := 0
		for _, ref := range o.extractor.Extract(html) {
			if _, dup := seen[ref.URL]; dup {
				continue
			}
			seen[ref.URL] = struct{}{}
			refs = append(refs, ref)
			fresh++
		}
		log.Debug("results page", "page", pageIdx, "new", fresh)

		if fresh == 0 || pageIdx >= maxPages {
			break
		}

		var advanced bool
		err = retry.Do(ctx, o.opts.Retry, func(ctx context.Context) error {
			var err error
			advanced, err = o.page.Next(ctx)
			return err
		})
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("abandon page: pagination failed", "page", pageIdx+1, "error", err)
			}
			break
		}
		if !advanced {
			// Следующей страницы нет: даём шанс ленивой подгрузке,
			// пустой результат на следующей итерации завершит цикл.
			if err := o.page.ScrollToEnd(ctx); err != nil {
				if ctx.Err() == nil {
					log.Warn("abandon page: scroll failed", "page", pageIdx+1, "error", err)
				}
				break
			}
		}
		if !o.settle(ctx) {
			break
		}
	}
	return refs
}

func (o *Orchestrator) settle(ctx context.Context) bool {
	if o.opts.SettleDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.opts.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// pageText возвращает видимый текст страницы без script/style.
func pageText(pageHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return pageHTML
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}
