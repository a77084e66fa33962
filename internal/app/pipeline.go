// Package app связывает этапы мониторинга DOU в один прогон.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/state"
)

// ErrNotConfigured возвращается, когда пайплайн запущен без обязательных зависимостей.
var ErrNotConfigured = errors.New("pipeline dependencies not configured")

// ErrNotDelivered возвращается, когда ни один получатель не принял дайджест.
var ErrNotDelivered = errors.New("digest not delivered")

// Clock определяет источник времени (удобно подменять в тестах).
type Clock func() time.Time

// Searcher собирает ссылки со страниц выдачи.
type Searcher interface {
	Run(ctx context.Context, queries []gazette.SearchQuery, maxPagesPerQuery int) ([]gazette.CandidateRef, error)
}

// Enricher загружает страницы документов. Отказ по одному документу не ошибка.
type Enricher interface {
	EnrichAll(ctx context.Context, refs []gazette.CandidateRef) []gazette.Document
}

// Filter отсеивает документы чужого выпуска и чужих органов.
type Filter interface {
	Apply(docs []gazette.Document, window gazette.Window, today civil.Date) []gazette.Document
}

// Summarizer создаёт краткое резюме. Пустая строка допустима.
type Summarizer interface {
	Summarize(ctx context.Context, text string, doc gazette.Document) (string, error)
}

// Grouper сортирует документы и сворачивает серии в группы.
type Grouper interface {
	Group(docs []gazette.Document) []gazette.Entry
}

// Notifier доставляет дайджест получателям.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, d gazette.Digest) error
}

// StateStore хранит и обновляет файл состояния.
type StateStore interface {
	Load(ctx context.Context) (*state.SeenSet, error)
	Save(ctx context.Context, set *state.SeenSet) error
}

// PipelineDeps перечисляет зависимости пайплайна.
type PipelineDeps struct {
	Searcher   Searcher
	Enricher   Enricher
	Filter     Filter
	Summarizer Summarizer // опционально
	Grouper    Grouper
	Notifiers  []Notifier
	StateStore StateStore
	Clock      Clock
	Location   *time.Location
	Logger     *slog.Logger

	Queries   []gazette.SearchQuery
	MaxPages  int
	Window    gazette.Window
	SendEmpty bool
	// DryRun: ничего не отправлять и не сохранять состояние.
	DryRun bool
}

// Result — счётчики по этапам одного прогона.
type Result struct {
	Candidates int
	Enriched   int
	Degraded   int
	Fresh      int
	Kept       int
	Summarized int
	Entries    int
	Delivered  []string
	Committed  int
	Digest     gazette.Digest
}

// Pipeline инкапсулирует ежедневный процесс.
type Pipeline struct {
	deps PipelineDeps
	log  *slog.Logger
}

// NewPipeline создаёт новый экземпляр пайплайна.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps, log: deps.Logger}
}

// Run исполняет полный цикл: поиск, обогащение, дедупликация, фильтры, резюме, группировка, отправка, сохранение.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := p.validateDeps(); err != nil {
		return res, err
	}
	d := p.deps

	seen, err := d.StateStore.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load state: %w", err)
	}
	p.log.Info("state loaded", "keys", seen.Len())

	p.log.Info("step 1: searching", "queries", len(d.Queries), "max_pages", d.MaxPages)
	refs, err := d.Searcher.Run(ctx, d.Queries, d.MaxPages)
	if err != nil {
		return res, fmt.Errorf("search: %w", err)
	}
	res.Candidates = len(refs)
	p.log.Info("candidates collected", "count", len(refs))

	p.log.Info("step 2: enriching documents")
	docs := d.Enricher.EnrichAll(ctx, refs)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Enriched = len(docs)
	for _, doc := range docs {
		if doc.Degraded {
			res.Degraded++
		}
	}
	p.log.Info("documents enriched", "count", len(docs), "degraded", res.Degraded)

	fresh := p.dropSeen(seen, docs)
	res.Fresh = len(fresh)
	p.log.Info("step 3: dedup against state", "fresh", len(fresh), "seen", len(docs)-len(fresh))

	today := civil.DateOf(d.Clock().In(d.Location))
	kept := d.Filter.Apply(fresh, d.Window, today)
	res.Kept = len(kept)
	p.log.Info("step 4: filters applied", "kept", len(kept), "today", today.String(), "window", string(d.Window))

	summaries, err := p.summarize(ctx, kept)
	if err != nil {
		return res, err
	}
	res.Summarized = len(summaries)

	entries := d.Grouper.Group(kept)
	res.Entries = len(entries)
	digest := gazette.Digest{Date: today, Window: d.Window, Entries: entries, Summaries: summaries}
	res.Digest = digest
	p.log.Info("step 6: digest ready", "entries", len(entries), "documents", digest.DocumentCount())

	if len(kept) == 0 && !d.SendEmpty {
		p.log.Info("nothing new, skipping notification")
		return res, nil
	}
	if d.DryRun {
		p.log.Info("dry run: notification and state update skipped", "documents", len(kept))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Delivered = p.notify(ctx, digest)
	if len(res.Delivered) == 0 {
		return res, fmt.Errorf("%w: all %d notifiers failed", ErrNotDelivered, len(d.Notifiers))
	}

	// Дайджест уже передан: состояние сохраняется даже при отмене контекста.
	res.Committed = seen.Commit(kept)
	if err := d.StateStore.Save(context.WithoutCancel(ctx), seen); err != nil {
		return res, fmt.Errorf("save state: %w", err)
	}
	p.log.Info("state saved", "new_keys", res.Committed, "total_keys", seen.Len())
	return res, nil
}

func (p *Pipeline) validateDeps() error {
	d := p.deps
	switch {
	case d.Searcher == nil,
		d.Enricher == nil,
		d.Filter == nil,
		d.Grouper == nil,
		d.StateStore == nil:
		return ErrNotConfigured
	case len(d.Notifiers) == 0 && !d.DryRun:
		return fmt.Errorf("%w: no notifiers enabled", ErrNotConfigured)
	case len(d.Queries) == 0:
		return fmt.Errorf("%w: no search queries", ErrNotConfigured)
	}
	return nil
}

// dropSeen убирает уже отправленные документы и повторы внутри прогона.
func (p *Pipeline) dropSeen(seen *state.SeenSet, docs []gazette.Document) []gazette.Document {
	run := state.NewSeenSet(false)
	fresh := make([]gazette.Document, 0, len(docs))
	for _, doc := range docs {
		if seen.Contains(doc) {
			p.log.Debug("skip seen document", "url", doc.CanonicalURL)
			continue
		}
		if run.Contains(doc) {
			p.log.Debug("skip duplicate in run", "url", doc.CanonicalURL)
			continue
		}
		run.Commit([]gazette.Document{doc})
		fresh = append(fresh, doc)
	}
	return fresh
}

func (p *Pipeline) summarize(ctx context.Context, docs []gazette.Document) (map[string]string, error) {
	if p.deps.Summarizer == nil || len(docs) == 0 {
		return nil, nil
	}
	p.log.Info("step 5: summarizing", "documents", len(docs))
	summaries := make(map[string]string)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := doc.CleanBodyText
		if text == "" {
			text = doc.RawBodyText
		}
		summary, err := p.deps.Summarizer.Summarize(ctx, text, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Warn("summary failed", "url", doc.CanonicalURL, "error", err)
			continue
		}
		if summary != "" {
			summaries[doc.CanonicalURL] = summary
		}
	}
	return summaries, nil
}

func (p *Pipeline) notify(ctx context.Context, digest gazette.Digest) []string {
	var delivered []string
	for _, n := range p.deps.Notifiers {
		if err := n.Notify(ctx, digest); err != nil {
			p.log.Error("notification failed", "notifier", n.Name(), "error", err)
			continue
		}
		p.log.Info("digest delivered", "notifier", n.Name(), "documents", digest.DocumentCount())
		delivered = append(delivered, n.Name())
	}
	return delivered
}
