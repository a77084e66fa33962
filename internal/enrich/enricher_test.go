package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maine/dou_bot/internal/config"
	"github.com/maine/dou_bot/internal/fetch"
	"github.com/maine/dou_bot/internal/gazette"
)

const docURL = "https://www.in.gov.br/web/dou/-/solucao-de-consulta-n-45-de-15-de-outubro-de-2026-612345678"

var douPage = `<html><head><title>SOLUÇÃO DE CONSULTA Nº 45, DE 15 DE OUTUBRO DE 2026 - DOU - Imprensa Nacional</title></head>
<body>
<header><nav><a href="/">Portal</a> Voltar ao topo</nav></header>
<div class="detalhes-dou">
  <span class="publicado-dou-data">16/10/2026</span>
  <span class="edicao-dou-data">198</span>
  <span class="secao-dou-data">Seção 1</span>
  <span class="pagina-dou-data">Página: 45</span>
  <span class="orgao-dou-data">Ministério da Fazenda/Secretaria Especial da Receita Federal do Brasil</span>
</div>
<div class="texto-dou">
  <p class="identifica">SOLUÇÃO DE CONSULTA Nº 45, DE 15 DE OUTUBRO DE 2026</p>
  <p class="ementa">Assunto: Imposto sobre a Renda de Pessoa Jurídica. Tratamento tributário de subvenções para investimento.</p>
  <p>O COORDENADOR-GERAL DE TRIBUTAÇÃO, no uso de suas atribuições, declara:</p>
  <p>Art. 1º As subvenções concedidas pelos entes federativos não integram a base de cálculo do tributo.</p>
  <p>123/456</p>
  <p>https://www.in.gov.br/materia</p>
  <p>Este conteúdo não substitui o publicado na versão certificada.</p>
  <p class="assina">FULANO DE TAL</p>
</div>
<footer>Reportar erro</footer>
</body></html>`

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fetch.Page
	calls []string
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (fetch.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fetch.Page{}, err
	}
	p, ok := f.pages[url]
	if !ok {
		return fetch.Page{}, errors.New("connection reset")
	}
	if p.URL == "" {
		p.URL = url
	}
	return p, nil
}

var fixedNow = time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)

func newEnricher(t *testing.T, f Fetcher, mutate ...func(*config.Enrich)) *Enricher {
	t.Helper()
	root := config.Root{}
	root.ApplyDefaults()
	for _, m := range mutate {
		m(&root.Enrich)
	}
	loc, err := root.Location()
	require.NoError(t, err)
	e, err := New(root.Enrich, f, WithClock(func() time.Time { return fixedNow }), WithLocation(loc))
	require.NoError(t, err)
	return e
}

func TestEnrich_FullDocument(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fetch.Page{docURL: {HTML: douPage}}}
	e := newEnricher(t, f)

	d := e.Enrich(context.Background(), gazette.CandidateRef{URL: docURL, DisplayTitle: "listing title"})

	assert.False(t, d.Degraded)
	assert.Equal(t, docURL, d.CanonicalURL)
	assert.Equal(t, "SOLUÇÃO DE CONSULTA Nº 45, DE 15 DE OUTUBRO DE 2026", d.Title)
	assert.Equal(t, "Ministério da Fazenda/Secretaria Especial da Receita Federal do Brasil", d.Organization)
	assert.Equal(t, gazette.ActConsultationRuling, d.ActType)
	assert.Equal(t, "45", d.ActNumber)
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 16}, d.PublicationDate)
	assert.Equal(t, gazette.Section1, d.Section)
	assert.Equal(t, "198", d.Edition)
	assert.Equal(t, "45", d.Page)
	assert.Equal(t, "Assunto: Imposto sobre a Renda de Pessoa Jurídica. Tratamento tributário de subvenções para investimento.", d.EditorialSynopsis)

	assert.Contains(t, d.CleanBodyText, "Art. 1º As subvenções")
	assert.NotContains(t, d.CleanBodyText, "123/456")
	assert.NotContains(t, d.CleanBodyText, "https://www.in.gov.br/materia")
	assert.NotContains(t, d.CleanBodyText, "versão certificada")
	assert.NotContains(t, d.CleanBodyText, "Reportar erro")
	assert.Contains(t, d.RawBodyText, "Reportar erro")
}

func TestEnrich_DegradeNotDrop(t *testing.T) {
	e := newEnricher(t, &fakeFetcher{})
	d := e.Enrich(context.Background(), gazette.CandidateRef{URL: docURL, DisplayTitle: "PORTARIA Nº 9"})

	assert.True(t, d.Degraded)
	assert.Equal(t, docURL, d.CanonicalURL)
	assert.Equal(t, "PORTARIA Nº 9", d.Title)
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 16}, d.PublicationDate)
	assert.Empty(t, d.Organization)
	assert.Empty(t, d.CleanBodyText)
	assert.Empty(t, d.ActType)
}

func TestNew_NilLoggerKeepsDefault(t *testing.T) {
	root := config.Root{}
	root.ApplyDefaults()
	e, err := New(root.Enrich, &fakeFetcher{}, WithLogger(nil))
	require.NoError(t, err)
	require.NotNil(t, e.logger)
	assert.NotPanics(t, func() {
		d := e.Enrich(context.Background(), gazette.CandidateRef{URL: docURL, DisplayTitle: "t"})
		assert.True(t, d.Degraded)
	})
}

func TestEnrich_FollowsCanonicalLink(t *testing.T) {
	intermediate := "https://www.in.gov.br/leiturajornal?data=16-10-2026&secao=do1"
	f := &fakeFetcher{pages: map[string]fetch.Page{
		intermediate: {HTML: `<html><body><a href="/web/guest/x">x</a><a href="/web/dou/-/solucao-de-consulta-n-45-de-15-de-outubro-de-2026-612345678">abrir</a></body></html>`},
		docURL:       {HTML: douPage},
	}}
	d := newEnricher(t, f).Enrich(context.Background(), gazette.CandidateRef{URL: intermediate, DisplayTitle: "x"})

	assert.Equal(t, docURL, d.CanonicalURL)
	assert.Equal(t, gazette.ActConsultationRuling, d.ActType)
	assert.Equal(t, []string{intermediate, docURL}, f.calls)
}

func TestEnrich_IntermediateWithoutCanonicalLinkIsTheDocument(t *testing.T) {
	other := "https://www.in.gov.br/en/web/dou/some-page"
	f := &fakeFetcher{pages: map[string]fetch.Page{
		other: {HTML: `<html><head><title>Aviso - DOU - Imprensa Nacional</title></head><body><p>Publicado em: 16/10/2026</p></body></html>`},
	}}
	d := newEnricher(t, f).Enrich(context.Background(), gazette.CandidateRef{URL: other})

	assert.Equal(t, other, d.CanonicalURL)
	assert.Equal(t, "Aviso", d.Title)
	assert.Equal(t, gazette.ActOther, d.ActType)
	assert.Len(t, f.calls, 1)
}

func TestEnrich_FallbacksFromFlatText(t *testing.T) {
	html := `<html><body>
<h1>Ato</h1>
<p>Órgão: Ministério da Fazenda</p>
<p>Edição de 14/10/2026</p>
<p>PORTARIA SECEX Nº 1.234/2026, de 14 de outubro</p>
<p>Texto curto.</p>
</body></html>`
	f := &fakeFetcher{pages: map[string]fetch.Page{docURL: {HTML: html}}}
	d := newEnricher(t, f).Enrich(context.Background(), gazette.CandidateRef{URL: docURL, DisplayTitle: "Aviso geral"})

	assert.Equal(t, "Aviso geral", d.Title)
	assert.Equal(t, "Ministério da Fazenda", d.Organization)
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 14}, d.PublicationDate)
	assert.Equal(t, gazette.ActOrdinance, d.ActType)
	assert.Equal(t, "1.234/2026", d.ActNumber)
	// Текст короче min_body_length: берём сырой текст страницы.
	assert.Equal(t, d.RawBodyText, d.CleanBodyText)
	assert.Empty(t, d.EditorialSynopsis)
}

func TestSynopsis_AbsentWhenBodyStartsWithOpener(t *testing.T) {
	html := `<html><body><div class="texto-dou">
<p class="identifica">PORTARIA Nº 7, DE 1 DE OUTUBRO DE 2026</p>
<p>O MINISTRO DE ESTADO DA FAZENDA, no uso das atribuições que lhe confere o art. 87, resolve:</p>
<p>Designar servidor para compor comissão especial de acompanhamento de contratos.</p>
</div></body></html>`
	f := &fakeFetcher{pages: map[string]fetch.Page{docURL: {HTML: html}}}
	d := newEnricher(t, f).Enrich(context.Background(), gazette.CandidateRef{URL: docURL})

	assert.Empty(t, d.EditorialSynopsis)
	assert.Equal(t, gazette.ActOrdinance, d.ActType)
	assert.Equal(t, "7", d.ActNumber)
}

func TestDetectAct(t *testing.T) {
	root := config.Root{}
	root.ApplyDefaults()
	rules, err := compileActRules(root.Enrich.ActRules)
	require.NoError(t, err)

	tests := []struct {
		text   string
		kind   gazette.ActType
		number string
	}{
		{"LEI Nº 15.270, DE 26 DE NOVEMBRO DE 2025", gazette.ActLaw, "15.270"},
		{"INSTRUÇÃO NORMATIVA RFB Nº 2.250, DE 2 DE MARÇO", gazette.ActNormativeInstruction, "2.250"},
		{"ATO DECLARATÓRIO EXECUTIVO No. 12", gazette.ActDeclaratoryAct, "12"},
		{"DECRETO N. 11.999", gazette.ActDecree, "11.999"},
		{"Resolução nº 5/2026", gazette.ActResolution, "5/2026"},
		{"DESPACHO DE 3 DE OUTUBRO", gazette.ActDispatch, ""},
		{"PORTARIA CONJUNTA RFB/PGFN Nº 1, de 2026", gazette.ActOrdinance, "1"},
		// Побеждает самое раннее совпадение, а не порядок правил.
		{"PORTARIA Nº 30, que altera a Instrução Normativa nº 2.250", gazette.ActOrdinance, "30"},
		{"Aviso de licitação", "", ""},
	}
	for _, tt := range tests {
		kind, number := detectAct(tt.text, rules)
		assert.Equal(t, tt.kind, kind, tt.text)
		assert.Equal(t, tt.number, number, tt.text)
	}
}

func TestEnrichAll_OrderAndBoundedWorkers(t *testing.T) {
	pages := map[string]fetch.Page{}
	var refs []gazette.CandidateRef
	for i := 0; i < 10; i++ {
		u := docURL + strings.Repeat("0", i)
		pages[u] = fetch.Page{HTML: strings.ReplaceAll(douPage, "Nº 45", "Nº "+string(rune('0'+i)))}
		refs = append(refs, gazette.CandidateRef{URL: u})
	}
	refs = append(refs, gazette.CandidateRef{URL: "https://www.in.gov.br/web/dou/-/missing-999999999", DisplayTitle: "missing"})

	e := newEnricher(t, &fakeFetcher{pages: pages}, func(c *config.Enrich) { c.Workers = 3 })
	docs := e.EnrichAll(context.Background(), refs)

	require.Len(t, docs, len(refs))
	for i := range refs {
		assert.Equal(t, refs[i].URL, docs[i].CanonicalURL)
	}
	assert.Equal(t, "5", docs[5].ActNumber)
	assert.True(t, docs[10].Degraded)
}

func TestEnrichAll_CancelledContextDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{pages: map[string]fetch.Page{docURL: {HTML: douPage}}}
	docs := newEnricher(t, f).EnrichAll(ctx, []gazette.CandidateRef{{URL: docURL, DisplayTitle: "t"}})
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Degraded)
}

func TestEnrichAll_Empty(t *testing.T) {
	assert.Empty(t, newEnricher(t, &fakeFetcher{}).EnrichAll(context.Background(), nil))
}
