package digest

import (
	"fmt"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/gazette"
)

var today = civil.Date{Year: 2026, Month: 10, Day: 17}

func sampleDigest() gazette.Digest {
	single := gazette.Document{
		CanonicalURL:      "https://www.in.gov.br/web/dou/-/instrucao-normativa-700000001",
		Title:             "INSTRUÇÃO NORMATIVA RFB Nº 2.200, DE 16 DE OUTUBRO DE 2026",
		Organization:      "Ministério da Fazenda/Secretaria Especial da Receita Federal do Brasil",
		ActType:           gazette.ActNormativeInstruction,
		ActNumber:         "2.200",
		PublicationDate:   today,
		Section:           gazette.Section1,
		EditorialSynopsis: "Altera a Instrução Normativa RFB nº 2.005 <b>.",
	}
	var members []gazette.Document
	for n := 100; n <= 102; n++ {
		members = append(members, gazette.Document{
			CanonicalURL:    fmt.Sprintf("https://www.in.gov.br/web/dou/-/portaria-%d-70000%04d", n, n),
			Title:           fmt.Sprintf("PORTARIA Nº %d, DE 17 DE OUTUBRO DE 2026", n),
			ActType:         gazette.ActOrdinance,
			ActNumber:       fmt.Sprint(n),
			PublicationDate: today,
		})
	}
	return gazette.Digest{
		Date:   today,
		Window: gazette.WindowDay,
		Entries: []gazette.Entry{
			{Document: &single},
			{Group: &gazette.Group{Key: "PORTARIA", Members: members, Range: &gazette.NumericRange{Min: 100, Max: 102}}},
		},
		Summaries: map[string]string{single.CanonicalURL: "Resumo da IN & efeitos."},
	}
}

func TestFormatter_Subject(t *testing.T) {
	f := New(Options{SubjectPrefix: "DOU Fiscal"})
	tests := []struct {
		name string
		d    gazette.Digest
		want string
	}{
		{"empty", gazette.Digest{Date: today}, "[DOU Fiscal] Nenhuma publicação relevante - 17/10/2026"},
		{"one", gazette.Digest{Date: today, Entries: []gazette.Entry{{Document: &gazette.Document{}}}}, "[DOU Fiscal] 1 publicação relevante - 17/10/2026"},
		{"grouped counts members", sampleDigest(), "[DOU Fiscal] 4 publicações relevantes - 17/10/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Subject(tt.d); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatter_BuildEmail(t *testing.T) {
	f := New(Options{Phrases: []string{"imposto de renda"}, Sections: []string{"do1"}})
	email, err := f.BuildEmail(sampleDigest())
	if err != nil {
		t.Fatalf("BuildEmail() error = %v", err)
	}

	for _, want := range []string{
		"BOLETIM DOU - 17/10/2026",
		"Total de publicações: 4",
		"1. INSTRUÇÃO NORMATIVA RFB Nº 2.200, DE 16 DE OUTUBRO DE 2026",
		"Resumo: Resumo da IN & efeitos.",
		"2. PORTARIA (3 atos, nº 100 a 102)",
		"Frases: imposto de renda",
		"Resumos gerados automaticamente por IA",
	} {
		if !strings.Contains(email.Text, want) {
			t.Errorf("text part does not contain %q:\n%s", want, email.Text)
		}
	}

	for _, want := range []string{
		`<a href="https://www.in.gov.br/web/dou/-/instrucao-normativa-700000001">`,
		"PORTARIA (3 atos, nº 100 a 102)",
		"Resumo da IN &amp; efeitos.",
		"&lt;b&gt;",
		"Seção 1",
	} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("html part does not contain %q", want)
		}
	}
	if strings.Contains(email.HTML, "2.005 <b>") {
		t.Error("html part must escape document text")
	}
}

func TestFormatter_BuildEmail_Empty(t *testing.T) {
	email, err := New(Options{}).BuildEmail(gazette.Digest{Date: today})
	if err != nil {
		t.Fatalf("BuildEmail() error = %v", err)
	}
	if !strings.Contains(email.Text, "Nenhuma publicação relevante") {
		t.Errorf("empty digest text = %q", email.Text)
	}
	if !strings.Contains(email.HTML, "Nenhuma publicação relevante") {
		t.Error("empty digest html lacks notice")
	}
	if strings.Contains(email.Text, "Resumos gerados") {
		t.Error("AI notice without summaries")
	}
}

func TestFormatter_BuildMessages(t *testing.T) {
	f := New(Options{MaxMessages: 5})

	empty := f.BuildMessages(gazette.Digest{Date: today})
	if len(empty) != 1 || !strings.Contains(empty[0], "Nenhuma publicação relevante") {
		t.Errorf("BuildMessages(empty) = %v, want single notice", empty)
	}

	msgs := f.BuildMessages(sampleDigest())
	if len(msgs) != 1 {
		t.Fatalf("BuildMessages() len = %d, want 1", len(msgs))
	}
	msg := msgs[0]
	for _, want := range []string{
		"<b>Diário Oficial da União - 17/10/2026</b>",
		`<a href="https://www.in.gov.br/web/dou/-/instrucao-normativa-700000001">INSTRUÇÃO NORMATIVA RFB Nº 2.200, DE 16 DE OUTUBRO DE 2026</a>`,
		"Resumo da IN &amp; efeitos.",
		"<b>PORTARIA (3 atos, nº 100 a 102)</b>",
		"• <a href=",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message does not contain %q:\n%s", want, msg)
		}
	}
}

func manyDocs(n int) gazette.Digest {
	d := gazette.Digest{Date: today}
	for i := 0; i < n; i++ {
		doc := gazette.Document{
			CanonicalURL: fmt.Sprintf("https://www.in.gov.br/web/dou/-/aviso-%d-7%08d", i, i),
			Title:        fmt.Sprintf("AVISO %d %s", i, strings.Repeat("x", 200)),
		}
		d.Entries = append(d.Entries, gazette.Entry{Document: &doc})
	}
	return d
}

func TestFormatter_BuildMessages_Split(t *testing.T) {
	f := New(Options{MaxMessages: 10})
	msgs := f.BuildMessages(manyDocs(60))
	if len(msgs) < 2 {
		t.Fatalf("BuildMessages() len = %d, want several", len(msgs))
	}
	for i, msg := range msgs {
		if len(msg) > telegramMaxMessageLength {
			t.Errorf("message %d length = %d, exceeds limit", i, len(msg))
		}
		if want := fmt.Sprintf("(%d/%d)", i+1, len(msgs)); !strings.Contains(msg, want) {
			t.Errorf("message %d lacks numbering %q", i, want)
		}
	}
	joined := strings.Join(msgs, "\n")
	for _, n := range []int{0, 30, 59} {
		if !strings.Contains(joined, fmt.Sprintf("aviso-%d-", n)) {
			t.Errorf("entry %d lost during split", n)
		}
	}
}

func TestFormatter_BuildMessages_MaxMessages(t *testing.T) {
	f := New(Options{MaxMessages: 2})
	msgs := f.BuildMessages(manyDocs(200))
	if len(msgs) != 2 {
		t.Fatalf("BuildMessages() len = %d, want 2", len(msgs))
	}
}

func TestSplitIntoMessages_OversizedBlock(t *testing.T) {
	line := strings.Repeat("a", 1000)
	block := strings.Repeat(line+"\n", 9) + line
	msgs := splitIntoMessages([]string{"head", block}, 10)
	if len(msgs) < 3 {
		t.Fatalf("splitIntoMessages() len = %d, want >= 3", len(msgs))
	}
	for i, m := range msgs {
		if len(m) > telegramMaxMessageLength-headerReserve {
			t.Errorf("message %d length = %d", i, len(m))
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(civil.Date{Year: 2026, Month: 3, Day: 5}); got != "05/03/2026" {
		t.Errorf("FormatDate() = %q", got)
	}
	if got := FormatDate(civil.Date{}); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}
}
