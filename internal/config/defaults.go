package config

import "time"

// DefaultTimezone — часовой пояс Imprensa Nacional.
const DefaultTimezone = "America/Sao_Paulo"

// DefaultBaseURL — адрес портала.
const DefaultBaseURL = "https://www.in.gov.br"

// DefaultPayloadID — id элемента <script> с JSON-выдачей.
const DefaultPayloadID = "_br_com_seatecnologia_in_buscadou_BuscaDouPortlet_params"

var (
	defaultNoResultsTexts = []string{
		"Nenhum resultado",
		"Não foram encontrados",
		"0 resultados",
		"nenhum registro",
		"Não encontramos",
		"Sua pesquisa não retornou resultados",
	}

	defaultMenuTexts = []string{
		"Última hora", "Últimas 24 horas", "Semana passada", "Mês passado",
		"Ano passado", "Período personalizado", "Pesquisa avançada", "Pesquisa",
		"Verificação de autenticidade", "Voltar ao topo", "Portal", "Tutorial",
		"Termo de Uso", "Ir para o conteúdo", "Ir para o rodapé", "Reportar erro",
		"Diário Oficial da União", "Acesse o script", "Compartilhe o conteúdo",
		"Versão certificada", "Diário Completo", "Impressão", "Acessibilidade",
		"Alto contraste", "Compartilhe", "Facebook", "Twitter", "WhatsApp",
		"LinkedIn", "Instagram", "YouTube",
	}

	defaultURLReject = []string{
		"consulta/-/buscar/dou",
		"web/guest/",
		"leiturajornal",
		"javascript:",
		"acesso-",
		"govbr",
		"logout",
		"login",
		"registro",
	}

	defaultURLAccept = []string{
		`^https://www\.in\.gov\.br/(web/dou/-/|materia/-/)`,
	}

	defaultListingSelectors = []string{
		"a.resultado-item-titulo",
		"a[href*='/web/dou/-/']",
		"a[href*='/materia/']",
		"div.resultado-item a",
		".resultado-titulo a",
	}

	defaultCanonicalPatterns = []string{
		`^https://www\.in\.gov\.br/(web/dou/-/|materia/-/)`,
	}

	defaultTitleSelectors = []string{"p.identifica", "h1", ".titulo-dou", "h2.portlet-title-text", ".identifica strong"}

	defaultOrganizationSelectors = []string{".orgao-dou-data", ".info-orgao", ".row-orgao", "span[class*=orgao]"}

	defaultDateSelectors = []string{".publicado-dou-data", ".data-publicacao", "span[class*=data]", "time"}

	defaultContentSelectors = []string{
		"div.texto-dou",
		"article#materia",
		"div.dou-conteudo",
		"div.materia-conteudo",
		"section.conteudo",
	}

	defaultUnwantedSelectors = []string{
		"header", "footer", "nav", "aside",
		".social-media-share", ".barra-botoes-materia", ".cabecalho-dou",
		".detalhes-dou", ".informacao-conteudo-dou", ".rodape-dou",
		".voltar-topo", ".back-to-top", ".modal", ".breadcrumb",
		"button", ".btn", ".compartilhe", "script", "style", "iframe",
		".advertisement", ".newsletter", ".related-content",
	}

	defaultBoilerplate = []string{
		"diário oficial da união",
		"publicado em:", "edição:", "seção:", "página:", "órgão:",
		"acesse o script", "compartilhe o conteúdo",
		"voltar ao topo", "portal da imprensa",
		"reportar erro", "versão certificada",
		"diário completo", "impressão",
		"este conteúdo não substitui o publicado na versão certificada",
		"brasão do brasil", "logo da imprensa",
	}

	defaultSynopsisOpeners = []string{
		"Art.", "Art ", "CONSIDERANDO", "WHEREAS", "RESOLVE", "RESOLVES",
		"O MINISTRO", "A MINISTRA", "O SECRETÁRIO", "A SECRETÁRIA",
		"O PRESIDENTE", "A PRESIDENTE", "O DIRETOR", "A DIRETORA",
		"O SUBSECRETÁRIO", "A SUBSECRETÁRIA", "O COORDENADOR", "A COORDENADORA",
		"O CHEFE", "A CHEFE", "O DELEGADO", "A DELEGADA",
	}

	defaultActRules = []ActRule{
		{Type: "NORMATIVE_INSTRUCTION", Pattern: `(?i)\binstru[cç][aã]o\s+normativa\b`},
		{Type: "DECLARATORY_ACT", Pattern: `(?i)\bato\s+declarat[oó]rio\b`},
		{Type: "CONSULTATION_RULING", Pattern: `(?i)\bsolu[cç][aã]o\s+de\s+consulta\b`},
		{Type: "ORDINANCE", Pattern: `(?i)\bportaria\b`},
		{Type: "DECREE", Pattern: `(?i)\bdecreto\b`},
		{Type: "RESOLUTION", Pattern: `(?i)\bresolu[cç][aã]o\b`},
		{Type: "DISPATCH", Pattern: `(?i)\bdespacho\b`},
		{Type: "LAW", Pattern: `(?i)\blei(?:\s+complementar)?\b`},
	}

	defaultNextSelectors = []string{
		"li.next a",
		"li.pagination-next a",
		"a.next",
		"a[title*='Próximo']",
		"a[title*='Proximo']",
	}

	defaultNextTexts = []string{"Próximo", "Proximo", "Próxima", "»"}
)

// ApplyDefaults заполняет незаданные параметры.
// Явно заданный пустой список (например, url_reject: []) сохраняется.
func (r *Root) ApplyDefaults() {
	s := &r.Search
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if len(s.Sections) == 0 {
		s.Sections = []string{"do1"}
	}
	if s.Window == "" {
		s.Window = "day"
	}
	if s.MaxPages <= 0 {
		s.MaxPages = 5
	}
	if s.NoResultsTexts == nil {
		s.NoResultsTexts = defaultNoResultsTexts
	}
	if s.SettleDelay <= 0 {
		s.SettleDelay = 2 * time.Second
	}
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = 3
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = 2 * time.Second
	}

	f := &r.Filters
	if f.URLReject == nil {
		f.URLReject = defaultURLReject
	}
	if f.URLAccept == nil {
		f.URLAccept = defaultURLAccept
	}
	if f.MenuTexts == nil {
		f.MenuTexts = defaultMenuTexts
	}

	if r.Listing.PayloadID == "" {
		r.Listing.PayloadID = DefaultPayloadID
	}
	if r.Listing.Selectors == nil {
		r.Listing.Selectors = defaultListingSelectors
	}

	e := &r.Enrich
	if e.Workers <= 0 {
		e.Workers = 3
	}
	if e.CanonicalPatterns == nil {
		e.CanonicalPatterns = defaultCanonicalPatterns
	}
	if e.TitleSelectors == nil {
		e.TitleSelectors = defaultTitleSelectors
	}
	if e.TitleSuffix == "" {
		e.TitleSuffix = " - DOU - Imprensa Nacional"
	}
	if e.OrganizationSelectors == nil {
		e.OrganizationSelectors = defaultOrganizationSelectors
	}
	if e.DateSelectors == nil {
		e.DateSelectors = defaultDateSelectors
	}
	if e.SectionSelectors == nil {
		e.SectionSelectors = []string{".secao-dou-data", "span[class*=secao]"}
	}
	if e.EditionSelectors == nil {
		e.EditionSelectors = []string{".edicao-dou-data", "span[class*=edicao]"}
	}
	if e.PageSelectors == nil {
		e.PageSelectors = []string{".pagina-dou-data", "span[class*=pagina]"}
	}
	if e.ContentSelectors == nil {
		e.ContentSelectors = defaultContentSelectors
	}
	if e.UnwantedSelectors == nil {
		e.UnwantedSelectors = defaultUnwantedSelectors
	}
	if e.Boilerplate == nil {
		e.Boilerplate = defaultBoilerplate
	}
	if e.MinBodyLength <= 0 {
		e.MinBodyLength = 200
	}
	if e.MinLineLength <= 0 {
		e.MinLineLength = 25
	}
	if e.SynopsisMarker == "" {
		e.SynopsisMarker = "p.identifica"
	}
	if e.SynopsisMin <= 0 {
		e.SynopsisMin = 40
	}
	if e.SynopsisMax <= 0 {
		e.SynopsisMax = 600
	}
	if e.SynopsisOpeners == nil {
		e.SynopsisOpeners = defaultSynopsisOpeners
	}
	if e.ActRules == nil {
		e.ActRules = defaultActRules
	}

	if r.Fetch.Timeout <= 0 {
		r.Fetch.Timeout = 30 * time.Second
	}
	if r.Fetch.RequestsPerSecond == 0 {
		r.Fetch.RequestsPerSecond = 2
	}
	if r.Fetch.Burst <= 0 {
		r.Fetch.Burst = 2
	}

	b := &r.Browser
	if b.Mode == "" {
		b.Mode = "browser"
	}
	if b.NavigationTimeout <= 0 {
		b.NavigationTimeout = 45 * time.Second
	}
	if b.NextSelectors == nil {
		b.NextSelectors = defaultNextSelectors
	}
	if b.NextTexts == nil {
		b.NextTexts = defaultNextTexts
	}

	if r.Pipeline.StatePath == "" {
		r.Pipeline.StatePath = "state/seen.json"
	}
	if r.Pipeline.GroupThreshold <= 0 {
		r.Pipeline.GroupThreshold = 3
	}

	if r.Gemini.Model == "" {
		r.Gemini.Model = "gemini-2.0-flash"
	}
	if r.Gemini.MaxCharsInput <= 0 {
		r.Gemini.MaxCharsInput = 8000
	}
	if r.Gemini.MinChars <= 0 {
		r.Gemini.MinChars = 100
	}

	if r.Email.SubjectPrefix == "" {
		r.Email.SubjectPrefix = "DOU"
	}
	if r.Telegram.MaxMessages <= 0 {
		r.Telegram.MaxMessages = 10
	}
}
