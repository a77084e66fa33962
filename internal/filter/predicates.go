package filter

import (
	"regexp"
	"strings"
	"unicode"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/textnorm"
)

// Пункты фильтра дат на портале: "Última semana (12)", "Mês passado".
var menuRangeRe = regexp.MustCompile(`^(ultim\w*|semana|mes|ano|periodo|hoje|ontem|last|past|this|previous|today|yesterday)\b.*\(\d+\)$`)

// LooksLikeMenu сообщает, что текст похож на пункт навигации, а не на заголовок документа.
func LooksLikeMenu(text string, menuTexts []string) bool {
	norm := textnorm.Normalize(text)
	if len([]rune(norm)) < 3 {
		return true
	}
	for _, m := range menuTexts {
		if norm == textnorm.Normalize(m) {
			return true
		}
	}
	if onlyDigitsOrPunct(norm) {
		return true
	}
	return menuRangeRe.MatchString(norm)
}

func onlyDigitsOrPunct(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// URLRejected — URL содержит одну из запрещённых подстрок (без учёта регистра).
func URLRejected(url string, rejects []string) bool {
	lower := strings.ToLower(url)
	for _, r := range rejects {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" && strings.Contains(lower, r) {
			return true
		}
	}
	return false
}

// URLAccepted — список пуст или URL подходит хотя бы под один шаблон.
func URLAccepted(url string, accept []*regexp.Regexp) bool {
	if len(accept) == 0 {
		return true
	}
	for _, re := range accept {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// TitleRejected — заголовок содержит запрещённое слово. Это абсолютное вето.
func TitleRejected(title string, rejects []string) bool {
	return textnorm.ContainsAny(title, rejects)
}

// TitleAllowed — список пуст или заголовок содержит хотя бы одно ключевое слово.
func TitleAllowed(title string, keywords []string) bool {
	if !hasValues(keywords) {
		return true
	}
	return textnorm.ContainsAny(title, keywords)
}

// OrganizationAllowed — список пуст или орган содержит одно из ключевых слов.
// Документ без органа при заданном списке не проходит.
func OrganizationAllowed(org string, keywords []string) bool {
	if !hasValues(keywords) {
		return true
	}
	if strings.TrimSpace(org) == "" {
		return false
	}
	return textnorm.ContainsAny(org, keywords)
}

// SameEdition — дата публикации совпадает с сегодняшней датой портала.
func SameEdition(published, today civil.Date) bool {
	return published == today
}

func hasValues(list []string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
