package enrich

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maine/dou_bot/internal/textnorm"
)

// extractSynopsis ищет ementa: первый абзац после элемента-заголовка.
// Если первый же абзац, отличный от заголовка, начинается с нормативной
// формулы ("Art.", "O MINISTRO"...), ementa у документа нет.
func (e *Enricher) extractSynopsis(doc *goquery.Document, title string) string {
	marker := e.cfg.SynopsisMarker
	if marker == "" {
		return ""
	}
	titleNorm := textnorm.Normalize(title)

	passed := false
	var synopsis string
	doc.Find(marker + ", p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is(marker) {
			passed = true
			return true
		}
		if !passed {
			return true
		}
		text := textnorm.CollapseSpace(s.Text())
		if text == "" || textnorm.Normalize(text) == titleNorm {
			return true
		}
		if !e.opener(text) {
			n := len([]rune(text))
			if n >= e.cfg.SynopsisMin && n <= e.cfg.SynopsisMax {
				synopsis = text
			}
		}
		return false
	})
	return synopsis
}

func (e *Enricher) opener(text string) bool {
	upper := strings.ToUpper(text)
	for _, o := range e.cfg.SynopsisOpeners {
		if o != "" && strings.HasPrefix(upper, strings.ToUpper(o)) {
			return true
		}
	}
	return false
}
