// Package enrich превращает ссылку из выдачи в документ с метаданными и текстом.
// Ошибка по одному документу никогда не прерывает пакет: вместо неё
// возвращается минимальный документ с флагом Degraded.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/fetch"
	"github.com/maine/dou_bot/internal/gazette"
)

// Fetcher загружает страницу (реализуется fetch.Fetcher).
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Page, error)
}

// Enricher извлекает метаданные и текст документов.
type Enricher struct {
	cfg       config.Enrich
	fetcher   Fetcher
	canonical []*regexp.Regexp
	acts      []actRule
	loc       *time.Location
	clock     func() time.Time
	logger    *slog.Logger

	title        []strategy
	organization []strategy
	date         []strategy
	section      []strategy
	edition      []strategy
	pageNumber   []strategy
}

// Option настраивает Enricher.
type Option func(*Enricher)

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(e *Enricher) { e.clock = clock }
}

// WithLocation задаёт часовой пояс портала для даты "сегодня".
func WithLocation(loc *time.Location) Option {
	return func(e *Enricher) { e.loc = loc }
}

// WithLogger задаёт логгер; nil оставляет логгер по умолчанию.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// New компилирует правила из конфига.
func New(cfg config.Enrich, fetcher Fetcher, opts ...Option) (*Enricher, error) {
	e := &Enricher{
		cfg:     cfg,
		fetcher: fetcher,
		loc:     time.UTC,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.Workers <= 0 {
		e.cfg.Workers = 1
	}

	for _, p := range cfg.CanonicalPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile canonical pattern %q: %w", p, err)
		}
		e.canonical = append(e.canonical, re)
	}
	acts, err := compileActRules(cfg.ActRules)
	if err != nil {
		return nil, fmt.Errorf("compile act rules: %w", err)
	}
	e.acts = acts

	e.title = []strategy{
		bySelectors(cfg.TitleSelectors, minLen(5)),
		func(p *page) string { return strings.TrimSpace(p.ref.DisplayTitle) },
		func(p *page) string {
			t := strings.TrimSpace(p.doc.Find("title").First().Text())
			return strings.TrimSpace(strings.TrimSuffix(t, cfg.TitleSuffix))
		},
	}
	e.organization = []strategy{
		bySelectors(cfg.OrganizationSelectors, cleanOrganization),
		byLabel(orgLabelRe, cleanOrganization),
	}
	e.date = []strategy{byDateSelectors(cfg.DateSelectors)}
	for _, re := range dateLabelRes {
		e.date = append(e.date, byLabel(re, isoFromText))
	}
	e.section = []strategy{bySelectors(cfg.SectionSelectors, firstNumber)}
	e.edition = []strategy{bySelectors(cfg.EditionSelectors, firstNumber)}
	e.pageNumber = []strategy{bySelectors(cfg.PageSelectors, firstNumber)}

	return e, nil
}

func (e *Enricher) today() civil.Date {
	return todayIn(e.clock(), e.loc)
}

// Enrich обогащает одну ссылку. Никогда не возвращает ошибку.
func (e *Enricher) Enrich(ctx context.Context, ref gazette.CandidateRef) gazette.Document {
	pg, canonicalURL, err := e.resolve(ctx, ref.URL)
	if err != nil {
		e.logger.Warn("enrich: fetch failed, keeping minimal document", "url", ref.URL, "error", err)
		return e.minimal(ref, canonicalURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.HTML))
	if err != nil {
		e.logger.Warn("enrich: parse failed, keeping minimal document", "url", canonicalURL, "error", err)
		return e.minimal(ref, canonicalURL)
	}
	return e.build(ref, canonicalURL, doc)
}

// resolve загружает каноническую страницу документа.
// Промежуточная страница загружается один раз; если на ней нет ссылки
// на канонический документ, она и считается документом.
func (e *Enricher) resolve(ctx context.Context, rawURL string) (fetch.Page, string, error) {
	if matchesAny(rawURL, e.canonical) {
		pg, err := e.fetcher.Get(ctx, rawURL)
		return pg, rawURL, err
	}

	pg, err := e.fetcher.Get(ctx, rawURL)
	if err != nil {
		return fetch.Page{}, rawURL, err
	}
	if matchesAny(pg.URL, e.canonical) {
		return pg, pg.URL, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pg.HTML))
	if err != nil {
		return pg, rawURL, nil
	}
	target := findCanonicalLink(doc, pg.URL, e.canonical)
	if target == "" {
		e.logger.Debug("enrich: no canonical link on intermediate page", "url", rawURL)
		return pg, rawURL, nil
	}

	canonicalPage, err := e.fetcher.Get(ctx, target)
	return canonicalPage, target, err
}

func (e *Enricher) minimal(ref gazette.CandidateRef, canonicalURL string) gazette.Document {
	if canonicalURL == "" {
		canonicalURL = ref.URL
	}
	title := strings.TrimSpace(ref.DisplayTitle)
	if title == "" {
		title = canonicalURL
	}
	return gazette.Document{
		CanonicalURL:    canonicalURL,
		Title:           title,
		PublicationDate: e.today(),
		Degraded:        true,
	}
}

func (e *Enricher) build(ref gazette.CandidateRef, canonicalURL string, doc *goquery.Document) gazette.Document {
	p := &page{doc: doc, ref: ref}
	if body := doc.Find("body").First(); body.Length() > 0 {
		p.flat = flatText(body)
	} else {
		p.flat = flatText(doc.Selection)
	}

	d := gazette.Document{
		CanonicalURL: canonicalURL,
		Title:        firstOf(p, e.title),
		Organization: firstOf(p, e.organization),
		Edition:      firstOf(p, e.edition),
		Page:         firstOf(p, e.pageNumber),
		RawBodyText:  p.flat,
	}
	if d.Title == "" {
		d.Title = canonicalURL
	}

	d.ActType, d.ActNumber = detectAct(d.Title, e.acts)
	if d.ActType == "" {
		d.ActType, d.ActNumber = detectAct(head(p.flat, actScanChars), e.acts)
	}
	if d.ActType == "" {
		d.ActType = gazette.ActOther
	}

	d.PublicationDate = e.today()
	if iso := firstOf(p, e.date); iso != "" {
		if date, err := civil.ParseDate(iso); err == nil {
			d.PublicationDate = date
		}
	}
	if sec := firstOf(p, e.section); sec != "" {
		if s, err := gazette.ParseSection(sec); err == nil {
			d.Section = s
		}
	}

	d.EditorialSynopsis = e.extractSynopsis(doc, d.Title)

	d.CleanBodyText = e.extractBody(doc)
	if len([]rune(d.CleanBodyText)) < e.cfg.MinBodyLength {
		d.CleanBodyText = p.flat
	}
	return d
}

// EnrichAll обогащает ссылки пулом из cfg.Workers горутин.
// Порядок результата совпадает с порядком входа.
func (e *Enricher) EnrichAll(ctx context.Context, refs []gazette.CandidateRef) []gazette.Document {
	out := make([]gazette.Document, len(refs))
	jobs := make(chan int)

	workers := e.cfg.Workers
	if workers > len(refs) {
		workers = len(refs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.Enrich(ctx, refs[i])
			}
		}()
	}
	for i := range refs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}
