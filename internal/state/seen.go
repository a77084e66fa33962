package state

import (
	"sort"
	"strings"

	"github.com/maine/dou_bot/internal/gazette"
)

// SeenSet — множество ключей идентичности. Ключи только добавляются.
type SeenSet struct {
	keys   map[string]struct{}
	legacy bool
}

// NewSeenSet создаёт пустое множество.
// При legacy=true Contains дополнительно сверяет голый URL.
func NewSeenSet(legacy bool) *SeenSet {
	return &SeenSet{keys: make(map[string]struct{}), legacy: legacy}
}

func (s *SeenSet) add(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.keys[key] = struct{}{}
}

func (s *SeenSet) has(key string) bool {
	if key == "" {
		return false
	}
	_, ok := s.keys[key]
	return ok
}

// Contains сообщает, что документ уже встречался: достаточно совпадения любого ключа.
func (s *SeenSet) Contains(doc gazette.Document) bool {
	for _, k := range gazette.IdentityKeys(doc) {
		if s.has(k) {
			return true
		}
	}
	return s.legacy && s.has(gazette.LegacyKey(doc))
}

// Commit добавляет ключи документов. Возвращает число новых ключей.
func (s *SeenSet) Commit(docs []gazette.Document) int {
	before := len(s.keys)
	for _, d := range docs {
		for _, k := range gazette.IdentityKeys(d) {
			s.add(k)
		}
	}
	return len(s.keys) - before
}

// Len возвращает число ключей.
func (s *SeenSet) Len() int {
	return len(s.keys)
}

// Keys возвращает ключи в отсортированном порядке.
func (s *SeenSet) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
