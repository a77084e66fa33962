// Package listing извлекает ссылки-кандидаты со страницы выдачи портала.
//
// Три уровня по порядку: встроенный JSON, CSS-селекторы, обход всех <a>.
// Побеждает первый уровень, давший хотя бы одного кандидата после фильтра шума.
package listing

import (
	"encoding/json"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/textnorm"
)

// Названия уровней для логов.
const (
	TierPayload  = "payload"
	TierSelector = "selector"
	TierDeep     = "deep"
)

// NoiseFilter — фильтр шума (реализуется filter.Noise).
type NoiseFilter interface {
	Accept(ref gazette.CandidateRef) (bool, string)
}

// Extractor разбирает одну страницу выдачи.
type Extractor struct {
	base      *url.URL
	payloadID string
	selectors []string
	noise     NoiseFilter
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// New создаёт экстрактор. baseURL — адрес портала для относительных ссылок.
func New(baseURL string, cfg config.Listing, noise NoiseFilter, logger *slog.Logger) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		base:      base,
		payloadID: cfg.PayloadID,
		selectors: cfg.Selectors,
		noise:     noise,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}, nil
}

// Extract возвращает кандидатов в порядке появления, без повторов URL.
func (e *Extractor) Extract(pageHTML string) []gazette.CandidateRef {
	refs, _ := e.ExtractTier(pageHTML)
	return refs
}

// ExtractTier дополнительно сообщает, какой уровень дал результат ("" если никакой).
func (e *Extractor) ExtractTier(pageHTML string) ([]gazette.CandidateRef, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		e.logger.Warn("parse listing page", "error", err)
		return nil, ""
	}

	if refs := e.accept(e.fromPayload(doc)); len(refs) > 0 {
		return refs, TierPayload
	}
	if refs := e.accept(e.fromSelectors(doc)); len(refs) > 0 {
		return refs, TierSelector
	}
	if refs := e.accept(deepAnchors(pageHTML)); len(refs) > 0 {
		return refs, TierDeep
	}
	return nil, ""
}

type rawRef struct {
	href  string
	title string
}

type payload struct {
	JSONArray []payloadItem `json:"jsonArray"`
}

type payloadItem struct {
	Title        string `json:"title"`
	URLTitle     string `json:"urlTitle"`
	PubDate      string `json:"pubDate"`
	ArtType      string `json:"artType"`
	HierarchyStr string `json:"hierarchyStr"`
}

func (e *Extractor) fromPayload(doc *goquery.Document) []rawRef {
	if e.payloadID == "" {
		return nil
	}
	script := doc.Find(`script[id="` + e.payloadID + `"]`).First()
	if script.Length() == 0 {
		return nil
	}
	var p payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &p); err != nil {
		e.logger.Debug("listing payload is not valid JSON", "error", err)
		return nil
	}

	out := make([]rawRef, 0, len(p.JSONArray))
	for _, item := range p.JSONArray {
		slug := strings.Trim(strings.TrimSpace(item.URLTitle), "/")
		if slug == "" {
			continue
		}
		out = append(out, rawRef{
			href:  "/web/dou/-/" + slug,
			title: e.plainText(item.Title),
		})
	}
	return out
}

// plainText снимает разметку подсветки (<span class="highlight">) из заголовка.
func (e *Extractor) plainText(s string) string {
	return textnorm.CollapseSpace(html.UnescapeString(e.sanitizer.Sanitize(s)))
}

func (e *Extractor) fromSelectors(doc *goquery.Document) []rawRef {
	var out []rawRef
	for _, sel := range e.selectors {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			title := textnorm.CollapseSpace(a.Text())
			if title == "" {
				title = textnorm.CollapseSpace(a.AttrOr("title", ""))
			}
			out = append(out, rawRef{href: href, title: title})
		})
	}
	return out
}

// accept переводит ссылки в абсолютные, фильтрует шум и убирает повторы.
func (e *Extractor) accept(raw []rawRef) []gazette.CandidateRef {
	seen := make(map[string]struct{}, len(raw))
	out := make([]gazette.CandidateRef, 0, len(raw))
	for _, r := range raw {
		abs, ok := e.absolute(r.href)
		if !ok {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		ref := gazette.CandidateRef{URL: abs, DisplayTitle: r.title}
		if e.noise != nil {
			if ok, reason := e.noise.Accept(ref); !ok {
				e.logger.Debug("skip candidate", "url", abs, "title", r.title, "reason", reason)
				continue
			}
		}
		seen[abs] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func (e *Extractor) absolute(href string) (string, bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := e.base.ResolveReference(u)
	abs.Fragment = ""
	return abs.String(), true
}
