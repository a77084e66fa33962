package gazette

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	urlKeyPrefix = "url:"
	idKeyPrefix  = "id:"
)

// Хвост последнего сегмента пути: весь сегмент из цифр или суффикс после дефиса.
var trailingIDRe = regexp.MustCompile(`(?:^|-)(\d{6,})$`)

// NumericID извлекает стабильный числовой идентификатор материала из URL.
// Возвращает "", если идентификатор не найден.
func NumericID(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	m := trailingIDRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// URLKey возвращает ключ вида url:<canonicalURL>.
func URLKey(canonicalURL string) string {
	return urlKeyPrefix + strings.TrimSpace(canonicalURL)
}

// IDKey возвращает ключ вида id:<n> или "", если идентификатора нет.
func IDKey(canonicalURL string) string {
	id := NumericID(canonicalURL)
	if id == "" {
		return ""
	}
	return idKeyPrefix + id
}

// IdentityKeys возвращает все ключи идентичности документа.
// URL-ключ присутствует всегда, id-ключ — когда его удалось извлечь.
func IdentityKeys(doc Document) []string {
	keys := []string{URLKey(doc.CanonicalURL)}
	if id := IDKey(doc.CanonicalURL); id != "" {
		keys = append(keys, id)
	}
	return keys
}

// LegacyKey — голый URL, как его хранили старые файлы состояния.
func LegacyKey(doc Document) string {
	return strings.TrimSpace(doc.CanonicalURL)
}
