package filter

import (
	"log/slog"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
)

// Filter применяет фильтры к обогащённым документам.
// Фильтры заголовка уже отработали на странице выдачи и здесь не повторяются.
type Filter struct {
	orgKeywords []string
	logger      *slog.Logger
}

// New создаёт экземпляр фильтра.
func New(cfg config.Filters, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{orgKeywords: cfg.OrganizationKeywords, logger: logger}
}

// Apply реализует app.Filter: сначала дата выпуска (только для окна DAY), затем орган.
func (f *Filter) Apply(docs []gazette.Document, window gazette.Window, today civil.Date) []gazette.Document {
	filtered := make([]gazette.Document, 0, len(docs))
	for _, doc := range docs {
		if window == gazette.WindowDay && !SameEdition(doc.PublicationDate, today) {
			f.logger.Debug("drop document: other edition", "url", doc.CanonicalURL, "published", doc.PublicationDate.String(), "today", today.String())
			continue
		}
		if !OrganizationAllowed(doc.Organization, f.orgKeywords) {
			f.logger.Debug("drop document: organization", "url", doc.CanonicalURL, "organization", doc.Organization)
			continue
		}
		filtered = append(filtered, doc)
	}
	return filtered
}
