package enrich

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maine/dou_bot/internal/textnorm"
)

var (
	numericLineRe = regexp.MustCompile(`^[\d\s.\-/]+$`)
	urlLineRe     = regexp.MustCompile(`(?i)^https?://\S+$`)
	contentHintRe = regexp.MustCompile(`(?i)texto|conteudo|materia`)
)

// Порог длины для эвристического поиска контейнера по классу.
const hintedContainerMinChars = 500

// contentContainer находит основной контейнер текста: селекторы из конфига,
// затем div с "говорящим" классом и длинным текстом, затем <body>.
func contentContainer(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	var hinted *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if contentHintRe.MatchString(s.AttrOr("class", "")) && len(strings.TrimSpace(s.Text())) > hintedContainerMinChars {
			hinted = s
			return false
		}
		return true
	})
	if hinted != nil {
		return hinted
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// extractBody возвращает чистый текст документа. Контейнер клонируется,
// исходный DOM не меняется.
func (e *Enricher) extractBody(doc *goquery.Document) string {
	container := contentContainer(doc, e.cfg.ContentSelectors).Clone()
	for _, sel := range e.cfg.UnwantedSelectors {
		container.Find(sel).Remove()
	}

	var kept []string
	for _, line := range lines(container) {
		if e.keepLine(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (e *Enricher) keepLine(line string) bool {
	if len([]rune(line)) < e.cfg.MinLineLength {
		return false
	}
	if numericLineRe.MatchString(line) || urlLineRe.MatchString(line) {
		return false
	}
	return !textnorm.ContainsAny(line, e.cfg.Boilerplate)
}
