package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/textnorm"
)

const (
	minSummaryChars = 20
	maxSummaryRunes = 600
)

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	codeFenceRe  = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	leadInRe     = regexp.MustCompile(`(?i)^(?:resumo\s*:|aqui est[aá][^:]{0,80}:|com base[^:]{0,80}:)\s*`)
	junkPhraseRe = regexp.MustCompile(`(?i)[^.!?]*(?:clique aqui|para mais informa[cç][oõ]es|consulte o texto completo|leia a mat[eé]ria completa|veja tamb[eé]m)[^.!?]*[.!?]?`)
)

// Summarizer реализует app.Summarizer, используя Gemini API для резюме документов DOU.
type Summarizer struct {
	client GeminiClient
	cfg    config.Gemini
	logger *slog.Logger
	// exhausted: дневная квота кончилась, дальше в этом прогоне не спрашиваем.
	exhausted bool
}

// NewSummarizer создаёт новый экземпляр суммаризатора.
func NewSummarizer(client GeminiClient, cfg config.Gemini, logger *slog.Logger) *Summarizer {
	if cfg.MaxCharsInput <= 0 {
		cfg.MaxCharsInput = 8000
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, cfg: cfg, logger: logger}
}

// Summarize реализует app.Summarizer.
// Пустая строка без ошибки означает, что резюме нет: текст слишком короткий или ответ бесполезен.
func (s *Summarizer) Summarize(ctx context.Context, text string, doc gazette.Document) (string, error) {
	text = preprocess(text)
	if utf8.RuneCountInString(text) < s.cfg.MinChars {
		s.logger.Debug("skip summary: text too short", "url", doc.CanonicalURL, "chars", utf8.RuneCountInString(text))
		return "", nil
	}
	if s.exhausted {
		return "", ErrQuotaExceeded
	}
	text = truncateRunes(text, s.cfg.MaxCharsInput)

	responseText, err := s.client.GenerateText(ctx, s.cfg.Model, buildPrompt(text, doc))
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.exhausted = true
		}
		return "", fmt.Errorf("generate summary for %s: %w", doc.CanonicalURL, err)
	}

	summary := postprocess(responseText)
	if len(summary) < minSummaryChars {
		s.logger.Debug("discard summary: too short", "url", doc.CanonicalURL, "summary", summary)
		return "", nil
	}
	return summary, nil
}

func preprocess(text string) string {
	text = urlRe.ReplaceAllString(text, " ")
	return textnorm.CollapseSpace(text)
}

func postprocess(raw string) string {
	s := codeFenceRe.ReplaceAllString(raw, "")
	s = textnorm.CollapseSpace(s)
	s = leadInRe.ReplaceAllString(s, "")
	s = junkPhraseRe.ReplaceAllString(s, " ")
	s = textnorm.CollapseSpace(s)
	s = strings.Trim(s, `"`)

	if utf8.RuneCountInString(s) > maxSummaryRunes {
		s = truncateRunes(s, maxSummaryRunes)
		if i := strings.LastIndex(s, " "); i > 0 {
			s = s[:i]
		}
		s = strings.TrimRight(s, ",;:") + "..."
	}
	if s != "" && !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
