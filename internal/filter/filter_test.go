package filter

import (
	"regexp"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/gazette"
)

func TestLooksLikeMenu(t *testing.T) {
	menu := []string{"Última hora", "Voltar ao topo", "Pesquisa avançada"}

	tests := []struct {
		text string
		want bool
	}{
		{"Última hora", true},
		{"  ultima   HORA ", true},
		{"Semana passada (12)", true},
		{"last week (12)", true},
		{"Últimos 30 dias (104)", true},
		{"12/10/2026", true},
		{"»", true},
		{"ab", true},
		{"PORTARIA Nº 100, DE 17 DE OUTUBRO DE 2026", false},
		{"Semana Nacional de Ciência e Tecnologia", false},
		{"Solução de Consulta nº 45 - tratamento tributário", false},
	}
	for _, tt := range tests {
		if got := LooksLikeMenu(tt.text, menu); got != tt.want {
			t.Errorf("LooksLikeMenu(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestURLPredicates(t *testing.T) {
	rejects := []string{"consulta/-/buscar/dou", "LOGIN"}
	if !URLRejected("https://www.in.gov.br/consulta/-/buscar/dou?q=x", rejects) {
		t.Error("search page must be rejected")
	}
	if !URLRejected("https://www.in.gov.br/c/portal/login", rejects) {
		t.Error("reject must be case-insensitive")
	}
	if URLRejected("https://www.in.gov.br/web/dou/-/portaria-1-612345678", rejects) {
		t.Error("document URL rejected")
	}

	accept := []*regexp.Regexp{regexp.MustCompile(`^https://www\.in\.gov\.br/(web/dou/-/|materia/-/)`)}
	if !URLAccepted("https://www.in.gov.br/web/dou/-/portaria-1-612345678", accept) {
		t.Error("canonical URL not accepted")
	}
	if URLAccepted("https://www.gov.br/receita", accept) {
		t.Error("foreign URL accepted")
	}
	if !URLAccepted("https://anything", nil) {
		t.Error("empty accept list must accept everything")
	}
}

func TestTitleAndOrganizationPredicates(t *testing.T) {
	if !TitleRejected("Extrato de Contrato nº 5", []string{"extrato de contrato"}) {
		t.Error("reject list must match normalized substrings")
	}
	if TitleRejected("Portaria", nil) {
		t.Error("empty reject list rejected")
	}
	if !TitleAllowed("Anything", []string{"", " "}) {
		t.Error("blank keyword list must allow")
	}
	if !TitleAllowed("SOLUÇÃO DE CONSULTA Nº 1", []string{"solucao de consulta"}) {
		t.Error("accent-insensitive keyword did not match")
	}
	if TitleAllowed("Aviso de licitação", []string{"tributário"}) {
		t.Error("unrelated title allowed")
	}

	if !OrganizationAllowed("", nil) {
		t.Error("no keywords must allow absent organization")
	}
	if OrganizationAllowed("", []string{"Fazenda"}) {
		t.Error("absent organization must fail a configured list")
	}
	if !OrganizationAllowed("Ministério da Fazenda/Secretaria Especial da Receita Federal", []string{"RECEITA FEDERAL"}) {
		t.Error("organization substring did not match")
	}
}

func TestNoise_Accept(t *testing.T) {
	n, err := NewNoise(config.Filters{
		MenuTexts:     []string{"Voltar ao topo"},
		URLReject:     []string{"leiturajornal"},
		TitleReject:   []string{"extrato"},
		TitleKeywords: []string{"portaria", "extrato"},
		URLAccept:     []string{`^https://www\.in\.gov\.br/web/dou/-/`},
	})
	if err != nil {
		t.Fatalf("NewNoise() error = %v", err)
	}

	doc := "https://www.in.gov.br/web/dou/-/"
	tests := []struct {
		name   string
		ref    gazette.CandidateRef
		ok     bool
		reason string
	}{
		{"accepted", gazette.CandidateRef{URL: doc + "portaria-1-612345678", DisplayTitle: "PORTARIA Nº 1"}, true, ""},
		{"menu", gazette.CandidateRef{URL: doc + "x", DisplayTitle: "Voltar ao topo"}, false, ReasonMenu},
		{"url reject", gazette.CandidateRef{URL: "https://www.in.gov.br/leiturajornal?x", DisplayTitle: "PORTARIA Nº 2"}, false, ReasonURLReject},
		// Вето заголовка сильнее совпадения по ключевому слову и URL.
		{"title veto", gazette.CandidateRef{URL: doc + "extrato-612345679", DisplayTitle: "EXTRATO DE PORTARIA"}, false, ReasonTitleReject},
		{"title allow", gazette.CandidateRef{URL: doc + "aviso-612345680", DisplayTitle: "AVISO DE LICITAÇÃO"}, false, ReasonTitleAllow},
		{"url accept", gazette.CandidateRef{URL: "https://www.in.gov.br/materia/-/portaria", DisplayTitle: "PORTARIA Nº 3"}, false, ReasonURLAccept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := n.Accept(tt.ref)
			if ok != tt.ok || reason != tt.reason {
				t.Errorf("Accept() = (%v, %q), want (%v, %q)", ok, reason, tt.ok, tt.reason)
			}
		})
	}
}

func TestNewNoise_BadPattern(t *testing.T) {
	if _, err := NewNoise(config.Filters{URLAccept: []string{"(unclosed"}}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestFilter_Apply(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 10, Day: 17}
	yesterday := today.AddDays(-1)

	docs := []gazette.Document{
		{CanonicalURL: "a", PublicationDate: today, Organization: "Ministério da Fazenda"},
		{CanonicalURL: "b", PublicationDate: yesterday, Organization: "Ministério da Fazenda"},
		{CanonicalURL: "c", PublicationDate: today, Organization: "Ministério da Saúde"},
		{CanonicalURL: "d", PublicationDate: today},
	}

	tests := []struct {
		name     string
		keywords []string
		window   gazette.Window
		want     []string
	}{
		{"day window without org filter", nil, gazette.WindowDay, []string{"a", "c", "d"}},
		{"day window with org filter", []string{"fazenda"}, gazette.WindowDay, []string{"a"}},
		{"week window skips edition filter", []string{"fazenda"}, gazette.WindowWeek, []string{"a", "b"}},
		{"nothing configured", nil, gazette.WindowAny, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(config.Filters{OrganizationKeywords: tt.keywords}, nil)
			got := f.Apply(docs, tt.window, today)
			if len(got) != len(tt.want) {
				t.Fatalf("Apply() returned %d docs, want %d", len(got), len(tt.want))
			}
			for i, doc := range got {
				if doc.CanonicalURL != tt.want[i] {
					t.Errorf("doc[%d] = %s, want %s", i, doc.CanonicalURL, tt.want[i])
				}
			}
		})
	}
}
