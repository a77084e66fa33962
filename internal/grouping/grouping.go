// Package grouping сортирует документы и сворачивает серии однотипных актов в группы.
package grouping

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/textnorm"
)

// DefaultThreshold — минимальный размер группы.
const DefaultThreshold = 3

var (
	// "Nº 100", "N.º 100", "N° 7", "N. 1.234/2026", "NO 5" после приведения к верхнему регистру без диакритики.
	actNumberTokenRe = regexp.MustCompile(`\bN(?:\.?\s*[Oº°]\.?|\.)?\s*\d[\d./-]*`)
	// "DE 17 DE OUTUBRO DE 2026", "OF 5 OF MARCH".
	datePhraseRe = regexp.MustCompile(`\b(?:DE|OF)\s+\d{1,2}[º°O]?\s+(?:DE|OF)\s+[A-Z]+(?:\s+(?:DE|OF)\s+\d{4})?`)
	cleanIntRe   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$|^\d+$`)
)

// Key строит нормализованный ключ группы по заголовку.
func Key(title string) string {
	k := strings.ToUpper(textnorm.StripAccents(title))
	k = actNumberTokenRe.ReplaceAllString(k, " ")
	k = datePhraseRe.ReplaceAllString(k, " ")
	k = strings.ReplaceAll(k, ",", " ")
	return textnorm.CollapseSpace(k)
}

// Sort упорядочивает документы: дата по убыванию, затем заголовок, затем URL.
// Исходный срез не меняется.
func Sort(docs []gazette.Document) []gazette.Document {
	out := append([]gazette.Document(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PublicationDate != b.PublicationDate {
			return a.PublicationDate.After(b.PublicationDate)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.CanonicalURL < b.CanonicalURL
	})
	return out
}

// CleanNumber разбирает номер акта как целое: "1.234" -> 1234.
// Номера с "/" или "-" ("5/2026") чистыми не считаются.
func CleanNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !cleanIntRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ".", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Grouper сворачивает документы с общим ключом.
type Grouper struct {
	Threshold int
}

// New создаёт Grouper; threshold <= 0 означает DefaultThreshold.
func New(threshold int) *Grouper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Grouper{Threshold: threshold}
}

// Group сортирует документы и возвращает элементы дайджеста.
// Группа встаёт на место своего первого участника.
func (g *Grouper) Group(docs []gazette.Document) []gazette.Entry {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	sorted := Sort(docs)

	keys := make([]string, len(sorted))
	members := make(map[string][]gazette.Document)
	for i, d := range sorted {
		keys[i] = Key(d.Title)
		members[keys[i]] = append(members[keys[i]], d)
	}

	emitted := make(map[string]bool)
	entries := make([]gazette.Entry, 0, len(sorted))
	for i := range sorted {
		key := keys[i]
		if key != "" && len(members[key]) >= threshold {
			if emitted[key] {
				continue
			}
			emitted[key] = true
			entries = append(entries, gazette.Entry{Group: newGroup(key, members[key])})
			continue
		}
		d := sorted[i]
		entries = append(entries, gazette.Entry{Document: &d})
	}
	return entries
}

func newGroup(key string, docs []gazette.Document) *gazette.Group {
	members := append([]gazette.Document(nil), docs...)
	numbers := make([]int, len(members))
	numeric := true
	for i, d := range members {
		n, ok := CleanNumber(d.ActNumber)
		if !ok {
			numeric = false
			break
		}
		numbers[i] = n
	}

	g := &gazette.Group{Key: key}
	if numeric {
		idx := make([]int, len(members))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return numbers[idx[a]] < numbers[idx[b]] })
		ordered := make([]gazette.Document, len(members))
		for i, j := range idx {
			ordered[i] = members[j]
		}
		g.Members = ordered
		g.Range = &gazette.NumericRange{Min: numbers[idx[0]], Max: numbers[idx[len(idx)-1]]}
		return g
	}

	sort.SliceStable(members, func(a, b int) bool { return members[a].Title < members[b].Title })
	g.Members = members
	return g
}
