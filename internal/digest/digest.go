// Package digest превращает gazette.Digest в письмо и сообщения Telegram.
package digest

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/gazette"
)

// Options — параметры оформления.
type Options struct {
	SubjectPrefix string
	MaxMessages   int
	// Phrases и Sections попадают в блок "Critérios da busca".
	Phrases  []string
	Sections []string
}

// Formatter строит письмо и сообщения Telegram для одного дайджеста.
type Formatter struct {
	opts Options
}

// New создаёт экземпляр форматтера.
func New(opts Options) *Formatter {
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "DOU"
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 10
	}
	return &Formatter{opts: opts}
}

// FormatDate печатает дату как принято в DOU: 17/10/2026.
func FormatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// Subject возвращает тему письма.
func (f *Formatter) Subject(d gazette.Digest) string {
	prefix := "[" + strings.Trim(f.opts.SubjectPrefix, "[] ") + "]"
	date := FormatDate(d.Date)
	switch n := d.DocumentCount(); n {
	case 0:
		return fmt.Sprintf("%s Nenhuma publicação relevante - %s", prefix, date)
	case 1:
		return fmt.Sprintf("%s 1 publicação relevante - %s", prefix, date)
	default:
		return fmt.Sprintf("%s %d publicações relevantes - %s", prefix, n, date)
	}
}

type docView struct {
	Headline     string
	URL          string
	Organization string
	Date         string
	Section      string
	Edition      string
	Page         string
	Synopsis     string
	Summary      string
	Degraded     bool
}

type entryView struct {
	Number  int
	Doc     *docView
	Group   string
	Members []docView
}

func newDocView(doc gazette.Document, summaries map[string]string) docView {
	v := docView{
		Headline:     doc.Headline(),
		URL:          doc.CanonicalURL,
		Organization: doc.Organization,
		Date:         FormatDate(doc.PublicationDate),
		Edition:      doc.Edition,
		Page:         doc.Page,
		Synopsis:     doc.EditorialSynopsis,
		Summary:      summaries[doc.CanonicalURL],
		Degraded:     doc.Degraded,
	}
	if doc.Section != "" {
		v.Section = sectionLabel(doc.Section)
	}
	return v
}

func sectionLabel(s gazette.Section) string {
	switch s {
	case gazette.Section1:
		return "1"
	case gazette.Section2:
		return "2"
	case gazette.Section3:
		return "3"
	}
	return string(s)
}

// groupTitle: "PORTARIA (7 atos, nº 100 a 106)".
func groupTitle(g *gazette.Group) string {
	title := fmt.Sprintf("%s (%d atos", g.Key, len(g.Members))
	if g.Range != nil {
		if g.Range.Min == g.Range.Max {
			title += fmt.Sprintf(", nº %d", g.Range.Min)
		} else {
			title += fmt.Sprintf(", nº %d a %d", g.Range.Min, g.Range.Max)
		}
	}
	return title + ")"
}

func buildViews(d gazette.Digest) []entryView {
	views := make([]entryView, 0, len(d.Entries))
	for i, e := range d.Entries {
		v := entryView{Number: i + 1}
		switch {
		case e.Group != nil:
			v.Group = groupTitle(e.Group)
			for _, m := range e.Group.Members {
				v.Members = append(v.Members, newDocView(m, d.Summaries))
			}
		case e.Document != nil:
			dv := newDocView(*e.Document, d.Summaries)
			v.Doc = &dv
		default:
			continue
		}
		views = append(views, v)
	}
	return views
}
