package filter

import (
	"fmt"
	"regexp"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
)

// Причины отсева кандидатов (для debug-логов).
const (
	ReasonMenu        = "menu"
	ReasonURLReject   = "url_reject"
	ReasonTitleReject = "title_reject"
	ReasonTitleAllow  = "title_allow"
	ReasonURLAccept   = "url_accept"
)

// Noise отсеивает кандидатов со страницы выдачи.
type Noise struct {
	menuTexts     []string
	urlReject     []string
	titleReject   []string
	titleKeywords []string
	urlAccept     []*regexp.Regexp
}

// NewNoise компилирует правила; некорректный шаблон — ошибка конфигурации.
func NewNoise(cfg config.Filters) (*Noise, error) {
	accept := make([]*regexp.Regexp, 0, len(cfg.URLAccept))
	for _, p := range cfg.URLAccept {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile url_accept %q: %w", p, err)
		}
		accept = append(accept, re)
	}
	return &Noise{
		menuTexts:     cfg.MenuTexts,
		urlReject:     cfg.URLReject,
		titleReject:   cfg.TitleReject,
		titleKeywords: cfg.TitleKeywords,
		urlAccept:     accept,
	}, nil
}

// Accept проверяет правила по порядку и возвращает имя сработавшего.
func (n *Noise) Accept(ref gazette.CandidateRef) (bool, string) {
	switch {
	case LooksLikeMenu(ref.DisplayTitle, n.menuTexts):
		return false, ReasonMenu
	case URLRejected(ref.URL, n.urlReject):
		return false, ReasonURLReject
	case TitleRejected(ref.DisplayTitle, n.titleReject):
		return false, ReasonTitleReject
	case !TitleAllowed(ref.DisplayTitle, n.titleKeywords):
		return false, ReasonTitleAllow
	case !URLAccepted(ref.URL, n.urlAccept):
		return false, ReasonURLAccept
	default:
		return true, ""
	}
}
