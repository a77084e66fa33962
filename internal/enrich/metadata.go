package enrich

import (
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/textnorm"
)

// Сколько символов плоского текста просматривают regex-стратегии.
const (
	labelScanChars = 3000
	actScanChars   = 3000
)

var (
	orgLabelRe    = regexp.MustCompile(`(?i)[ÓO]rg[ãa]o:\s*([^\n]+)`)
	orgPrefixRe   = regexp.MustCompile(`(?i)^[ÓO]rg[ãa]o:\s*`)
	dmyRe         = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	isoDateRe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
	firstNumberRe = regexp.MustCompile(`\d+(?:-[A-Z])?`)
	actNumberRe   = regexp.MustCompile(`(?i)^[\s,:-]{0,3}(?:[\p{L}/-]+\s+){0,4}?N(?:\.?\s*[º°o]|º|°|\.)?\s*\.?\s*(\d[\d./-]*)`)

	dateLabelRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Publicado em[:\s]+(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)Edi[cç][aã]o de[:\s]+(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)Data de publica[cç][aã]o[:\s]+(\d{2}/\d{2}/\d{4})`),
	}
)

// page — разобранная страница документа, вход для стратегий.
type page struct {
	doc  *goquery.Document
	flat string
	ref  gazette.CandidateRef
}

// strategy извлекает одно поле; "" означает "не нашлось".
type strategy func(p *page) string

// firstOf возвращает результат первой стратегии с непустым ответом.
func firstOf(p *page, strategies []strategy) string {
	for _, s := range strategies {
		if v := s(p); v != "" {
			return v
		}
	}
	return ""
}

// bySelectors — текст первого подходящего элемента, прошедший clean.
func bySelectors(selectors []string, clean func(string) string) strategy {
	return func(p *page) string {
		for _, sel := range selectors {
			var found string
			p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				found = clean(textnorm.CollapseSpace(s.Text()))
				return found == ""
			})
			if found != "" {
				return found
			}
		}
		return ""
	}
}

// byLabel — первая группа regex в начале плоского текста.
func byLabel(re *regexp.Regexp, clean func(string) string) strategy {
	return func(p *page) string {
		m := re.FindStringSubmatch(head(p.flat, labelScanChars))
		if m == nil {
			return ""
		}
		return clean(m[1])
	}
}

func minLen(n int) func(string) string {
	return func(s string) string {
		if len([]rune(s)) < n {
			return ""
		}
		return s
	}
}

func cleanOrganization(s string) string {
	s = textnorm.CollapseSpace(orgPrefixRe.ReplaceAllString(s, ""))
	if len([]rune(s)) > 300 {
		return ""
	}
	return s
}

// isoFromText ищет DD/MM/YYYY и возвращает YYYY-MM-DD, если дата корректна.
func isoFromText(s string) string {
	m := dmyRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	iso := m[3] + "-" + m[2] + "-" + m[1]
	if _, err := civil.ParseDate(iso); err != nil {
		return ""
	}
	return iso
}

func byDateSelectors(selectors []string) strategy {
	return func(p *page) string {
		for _, sel := range selectors {
			var found string
			p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if dt, ok := s.Attr("datetime"); ok {
					if m := isoDateRe.FindStringSubmatch(strings.TrimSpace(dt)); m != nil {
						if _, err := civil.ParseDate(m[1]); err == nil {
							found = m[1]
							return false
						}
					}
				}
				found = isoFromText(s.Text())
				return found == ""
			})
			if found != "" {
				return found
			}
		}
		return ""
	}
}

func firstNumber(s string) string {
	return firstNumberRe.FindString(s)
}

// actRule — скомпилированное правило вида акта.
type actRule struct {
	kind gazette.ActType
	re   *regexp.Regexp
}

func compileActRules(rules []config.ActRule) ([]actRule, error) {
	out := make([]actRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, actRule{kind: gazette.ActType(strings.ToUpper(strings.TrimSpace(r.Type))), re: re})
	}
	return out, nil
}

// detectAct ищет самое раннее совпадение правил; номер берётся после маркера "Nº".
func detectAct(text string, rules []actRule) (gazette.ActType, string) {
	best := -1
	var kind gazette.ActType
	var end int
	for _, r := range rules {
		loc := r.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best, kind, end = loc[0], r.kind, loc[1]
		}
	}
	if best == -1 {
		return "", ""
	}
	return kind, actNumber(text[end:])
}

func actNumber(rest string) string {
	m := actNumberRe.FindStringSubmatch(head(rest, 80))
	if m == nil {
		return ""
	}
	return strings.TrimRight(m[1], "./-")
}

func todayIn(now time.Time, loc *time.Location) civil.Date {
	if loc != nil {
		now = now.In(loc)
	}
	return civil.DateOf(now)
}
