// Package textnorm содержит общие функции нормализации строк
// для фильтров, группировки и извлечения метаданных.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents убирает диакритику: "Ministério" -> "Ministerio".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpace заменяет любые последовательности пробельных символов одним пробелом.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize приводит строку к виду для сравнения: без диакритики, в нижнем регистре.
func Normalize(s string) string {
	return CollapseSpace(strings.ToLower(StripAccents(s)))
}

// ContainsAny сообщает, содержит ли нормализованный текст хотя бы одно из нормализованных слов.
// Пустые элементы списка игнорируются.
func ContainsAny(text string, needles []string) bool {
	haystack := Normalize(text)
	for _, n := range needles {
		n = Normalize(n)
		if n == "" {
			continue
		}
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
