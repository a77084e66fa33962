package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/maine/dou_bot/internal/gazette"
)

// Email — готовое письмо: тема, текстовая и HTML-версии.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #222; max-width: 720px; margin: 0 auto;">
<h1 style="font-size: 20px; border-bottom: 2px solid #1a5276; padding-bottom: 8px;">Boletim DOU - {{.Date}}</h1>
{{- if not .Entries}}
<p><strong>Nenhuma publicação relevante</strong> encontrada para os critérios atuais.</p>
{{- else}}
<p>Total de publicações: <strong>{{.Count}}</strong></p>
{{- range .Entries}}
{{- if .Doc}}
<div style="border-left: 4px solid #1a5276; padding: 8px 12px; margin: 16px 0;">
{{template "doc" .Doc}}
</div>
{{- else}}
<div style="border-left: 4px solid #7d3c98; padding: 8px 12px; margin: 16px 0;">
<div style="font-weight: bold;">{{.Group}}</div>
<ul>
{{- range .Members}}
<li><a href="{{.URL}}">{{.Headline}}</a>{{if .Summary}}<br><span style="color: #555;">{{.Summary}}</span>{{end}}</li>
{{- end}}
</ul>
</div>
{{- end}}
{{- end}}
{{- end}}
<hr>
<p style="font-size: 12px; color: #777;">
Frases: {{.Phrases}}<br>
Seções: {{.Sections}}<br>
{{- if .HasSummaries}}
Resumos gerados automaticamente por IA. Sempre confira o texto oficial no DOU.<br>
{{- end}}
Este boletim foi gerado automaticamente.
</p>
</body>
</html>
{{define "doc"}}<div style="font-weight: bold;"><a href="{{.URL}}">{{.Headline}}</a></div>
<div style="font-size: 13px; color: #555;">
{{- if .Organization}}{{.Organization}}{{end}}
{{- if .Date}} · {{.Date}}{{end}}
{{- if .Section}} · Seção {{.Section}}{{end}}
{{- if .Edition}} · Edição {{.Edition}}{{end}}
{{- if .Page}} · Página {{.Page}}{{end}}
</div>
{{- if .Degraded}}
<div style="font-size: 12px; color: #b03a2e;">Não foi possível carregar o texto da publicação.</div>
{{- end}}
{{- if .Synopsis}}
<p style="font-style: italic;">{{.Synopsis}}</p>
{{- end}}
{{- if .Summary}}
<p style="background: #f4f6f7; padding: 8px;">{{.Summary}}</p>
{{- end}}
{{end}}`))

type emailData struct {
	Subject      string
	Date         string
	Count        int
	Entries      []entryView
	Phrases      string
	Sections     string
	HasSummaries bool
}

// BuildEmail реализует email.Builder: письмо с текстовой и HTML-частью.
func (f *Formatter) BuildEmail(d gazette.Digest) (Email, error) {
	views := buildViews(d)
	data := emailData{
		Subject:      f.Subject(d),
		Date:         FormatDate(d.Date),
		Count:        d.DocumentCount(),
		Entries:      views,
		Phrases:      strings.Join(f.opts.Phrases, ", "),
		Sections:     strings.Join(f.opts.Sections, ", "),
		HasSummaries: len(d.Summaries) > 0,
	}

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render email html: %w", err)
	}

	return Email{
		Subject: data.Subject,
		Text:    f.buildText(data),
		HTML:    html.String(),
	}, nil
}

func (f *Formatter) buildText(data emailData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BOLETIM DOU - %s\n", data.Date)
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")

	if len(data.Entries) == 0 {
		sb.WriteString("Nenhuma publicação relevante encontrada para os critérios atuais.\n\n")
	} else {
		fmt.Fprintf(&sb, "Total de publicações: %d\n\n", data.Count)
		for _, e := range data.Entries {
			if e.Doc != nil {
				fmt.Fprintf(&sb, "%d. %s\n", e.Number, e.Doc.Headline)
				writeDocText(&sb, *e.Doc, "   ")
				sb.WriteString("\n")
				continue
			}
			fmt.Fprintf(&sb, "%d. %s\n", e.Number, e.Group)
			for _, m := range e.Members {
				fmt.Fprintf(&sb, "   - %s\n", m.Headline)
				if m.Summary != "" {
					fmt.Fprintf(&sb, "     Resumo: %s\n", m.Summary)
				}
				fmt.Fprintf(&sb, "     URL: %s\n", m.URL)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(strings.Repeat("-", 50))
	sb.WriteString("\n")
	if data.Phrases != "" {
		fmt.Fprintf(&sb, "Frases: %s\n", data.Phrases)
	}
	if data.Sections != "" {
		fmt.Fprintf(&sb, "Seções: %s\n", data.Sections)
	}
	if data.HasSummaries {
		sb.WriteString("Resumos gerados automaticamente por IA. Sempre confira o texto oficial no DOU.\n")
	}
	sb.WriteString("Este boletim foi gerado automaticamente.\n")
	return sb.String()
}

func writeDocText(sb *strings.Builder, v docView, indent string) {
	if v.Organization != "" {
		fmt.Fprintf(sb, "%sÓrgão: %s\n", indent, v.Organization)
	}
	if v.Date != "" {
		fmt.Fprintf(sb, "%sData: %s\n", indent, v.Date)
	}
	if v.Section != "" {
		fmt.Fprintf(sb, "%sSeção: %s\n", indent, v.Section)
	}
	if v.Synopsis != "" {
		fmt.Fprintf(sb, "%sEmenta: %s\n", indent, v.Synopsis)
	}
	if v.Summary != "" {
		fmt.Fprintf(sb, "%sResumo: %s\n", indent, v.Summary)
	}
	if v.Degraded {
		fmt.Fprintf(sb, "%s(texto indisponível)\n", indent)
	}
	fmt.Fprintf(sb, "%sURL: %s\n", indent, v.URL)
}

// TestEmail — письмо для команды test-email.
func (f *Formatter) TestEmail() Email {
	prefix := "[" + strings.Trim(f.opts.SubjectPrefix, "[] ") + "]"
	text := "Este é um email de teste do monitor do Diário Oficial da União.\n" +
		"Se você recebeu esta mensagem, a configuração SMTP está correta.\n"
	html := "<p>Este é um email de teste do monitor do Diário Oficial da União.</p>" +
		"<p>Se você recebeu esta mensagem, a configuração SMTP está correta.</p>"
	return Email{Subject: prefix + " Email de teste", Text: text, HTML: html}
}
