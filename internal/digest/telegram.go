package digest

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/maine/dou_bot/internal/gazette"
)

const (
	// telegramMaxMessageLength - максимальная длина сообщения в Telegram (4096 символов)
	telegramMaxMessageLength = 4096
	// headerTemplate - шаблон для нумерации сообщений
	headerTemplate = "<b>DOU %s</b> (%d/%d)\n\n"
	// headerReserve - место под заголовок нумерации
	headerReserve  = 64
	blockSeparator = "\n\n"
)

// BuildMessages реализует telegram.MessageBuilder.
// Сообщения размечены для parse_mode=HTML; каждый элемент дайджеста — неразрывный блок.
// Для пустого дайджеста возвращается одно короткое уведомление.
func (f *Formatter) BuildMessages(d gazette.Digest) []string {
	views := buildViews(d)
	if len(views) == 0 {
		return []string{fmt.Sprintf("<b>Diário Oficial da União - %s</b>\nNenhuma publicação relevante.",
			html.EscapeString(FormatDate(d.Date)))}
	}

	blocks := make([]string, 0, len(views)+1)
	blocks = append(blocks, fmt.Sprintf("<b>Diário Oficial da União - %s</b>\n%d publicação(ões) relevante(s)",
		html.EscapeString(FormatDate(d.Date)), d.DocumentCount()))
	for _, v := range views {
		blocks = append(blocks, telegramBlock(v))
	}

	messages := splitIntoMessages(blocks, f.opts.MaxMessages)
	if len(messages) <= 1 {
		return messages
	}

	total := len(messages)
	result := make([]string, 0, total)
	for i, msg := range messages {
		result = append(result, fmt.Sprintf(headerTemplate, FormatDate(d.Date), i+1, total)+msg)
	}
	return result
}

func telegramBlock(v entryView) string {
	var lines []string
	if v.Doc != nil {
		lines = append(lines, fmt.Sprintf("%d. %s", v.Number, link(v.Doc.Headline, v.Doc.URL)))
		var meta []string
		if v.Doc.Organization != "" {
			meta = append(meta, html.EscapeString(v.Doc.Organization))
		}
		if v.Doc.Date != "" {
			meta = append(meta, v.Doc.Date)
		}
		if len(meta) > 0 {
			lines = append(lines, "<i>"+strings.Join(meta, " · ")+"</i>")
		}
		if v.Doc.Summary != "" {
			lines = append(lines, html.EscapeString(v.Doc.Summary))
		} else if v.Doc.Synopsis != "" {
			lines = append(lines, html.EscapeString(v.Doc.Synopsis))
		}
		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("%d. <b>%s</b>", v.Number, html.EscapeString(v.Group)))
	for _, m := range v.Members {
		lines = append(lines, "• "+link(m.Headline, m.URL))
	}
	return strings.Join(lines, "\n")
}

func link(text, url string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}

// splitIntoMessages раскладывает блоки по сообщениям, не разрывая блок без необходимости.
// Блок длиннее лимита режется построчно. После maxMessages остаток отбрасывается.
func splitIntoMessages(blocks []string, maxMessages int) []string {
	const limit = telegramMaxMessageLength - headerReserve

	var messages []string
	var current strings.Builder

	flush := func() bool {
		if current.Len() > 0 {
			messages = append(messages, current.String())
			current.Reset()
		}
		return len(messages) < maxMessages
	}

	for _, block := range blocks {
		sepLen := 0
		if current.Len() > 0 {
			sepLen = len(blockSeparator)
		}
		if current.Len()+sepLen+len(block) <= limit {
			if sepLen > 0 {
				current.WriteString(blockSeparator)
			}
			current.WriteString(block)
			continue
		}
		if !flush() {
			return messages
		}
		if len(block) <= limit {
			current.WriteString(block)
			continue
		}
		// Крайний случай: блок сам по себе не помещается.
		for _, line := range strings.Split(block, "\n") {
			line = truncateBytes(line, limit)
			if current.Len() > 0 && current.Len()+1+len(line) > limit {
				if !flush() {
					return messages
				}
			}
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()
	if len(messages) > maxMessages {
		messages = messages[:maxMessages]
	}
	return messages
}

// truncateBytes обрезает строку по границе руны.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
