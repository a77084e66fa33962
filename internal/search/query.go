package search

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/textnorm"
)

// BuildQueryURL строит детерминированный URL поиска.
// Фраза оборачивается в кавычки и кодируется ровно один раз.
func BuildQueryURL(baseURL string, q gazette.SearchQuery) string {
	phrase := CleanPhrase(q.Phrase)
	v := "q=" + url.QueryEscape(`"`+phrase+`"`) +
		"&s=" + q.Section.Code() +
		"&exactDate=" + q.Window.Code() +
		"&sortType=0"
	return strings.TrimRight(baseURL, "/") + "/consulta/-/buscar/dou?" + v
}

// PageURL добавляет номер страницы к URL запроса (для режима без браузера).
func PageURL(queryURL string, page int) string {
	if page <= 1 {
		return queryURL
	}
	return queryURL + "&page=" + strconv.Itoa(page)
}

// CleanPhrase снимает внешние кавычки и лишние пробелы из фразы конфига.
func CleanPhrase(phrase string) string {
	p := strings.TrimSpace(phrase)
	p = strings.Trim(p, `"“”'`)
	return textnorm.CollapseSpace(p)
}

// Queries строит декартово произведение фраз и разделов для окна из конфига.
// Пустые фразы и повторы пропускаются.
func Queries(cfg config.Root) []gazette.SearchQuery {
	sections, err := cfg.Sections()
	if err != nil {
		return nil
	}
	window := cfg.Window()

	seen := make(map[gazette.SearchQuery]struct{})
	var out []gazette.SearchQuery
	for _, raw := range cfg.Search.Phrases {
		phrase := CleanPhrase(raw)
		if phrase == "" {
			continue
		}
		for _, s := range sections {
			q := gazette.SearchQuery{Phrase: phrase, Section: s, Window: window}
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// HasNoResults ищет в тексте страницы фразы "ничего не найдено".
// Совпадение засчитывается только на границе слова: "10 resultados" не равно "0 resultados".
func HasNoResults(pageText string, markers []string) bool {
	text := textnorm.Normalize(pageText)
	for _, m := range markers {
		m = textnorm.Normalize(m)
		if m == "" {
			continue
		}
		if containsAtBoundary(text, m) {
			return true
		}
	}
	return false
}

func containsAtBoundary(text, needle string) bool {
	from := 0
	for {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isWordRune(lastRune(text[:i])) {
			return true
		}
		from = i + 1
	}
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
