package gemini

import (
	"fmt"
	"strings"

	"github.com/maine/dou_bot/internal/gazette"
)

// promptSpec — заголовок акта по-португальски и то, на чём модель должна сосредоточиться.
type promptSpec struct {
	label    string
	focus    []string
	maxWords int
}

var promptSpecs = map[gazette.ActType]promptSpec{
	gazette.ActLaw: {
		label: "LEI",
		focus: []string{
			"o que a lei altera ou cria em termos tributários",
			"alterações em alíquotas, bases de cálculo e prazos",
			"novas obrigações acessórias ou benefícios fiscais",
			"vigência",
		},
		maxWords: 150,
	},
	gazette.ActOrdinance: {
		label: "PORTARIA",
		focus: []string{
			"finalidade da portaria",
			"procedimentos, formulários ou obrigações alterados",
			"prazos para cumprimento e a quem se aplica",
		},
		maxWords: 120,
	},
	gazette.ActDecree: {
		label: "DECRETO",
		focus: []string{
			"finalidade principal e lei regulamentada",
			"incentivos fiscais criados ou alterados",
			"setores alcançados, vigência e normas revogadas",
		},
		maxWords: 170,
	},
	gazette.ActNormativeInstruction: {
		label: "INSTRUÇÃO NORMATIVA",
		focus: []string{
			"objetivo da norma",
			"mudanças em procedimentos e declarações (SPED, ECD, ECF, DCTF)",
			"prazos para adequação e vigência",
		},
		maxWords: 130,
	},
	gazette.ActResolution: {
		label: "RESOLUÇÃO",
		focus: []string{
			"entidade emissora e matéria principal",
			"determinações contábeis ou tributárias",
			"setor afetado e efeitos práticos",
		},
		maxWords: 140,
	},
	gazette.ActDeclaratoryAct: {
		label: "ATO DECLARATÓRIO",
		focus: []string{
			"questão tratada e posicionamento oficial",
			"se é favorável ou desfavorável ao contribuinte",
			"vigência e revogações",
		},
		maxWords: 110,
	},
	gazette.ActConsultationRuling: {
		label: "SOLUÇÃO DE CONSULTA",
		focus: []string{
			"a dúvida apresentada e a resposta oficial",
			"fundamentação legal e condicionantes",
			"se o entendimento é vinculante",
		},
		maxWords: 160,
	},
	gazette.ActDispatch: {
		label: "DESPACHO",
		focus: []string{
			"decisão tomada e quem é afetado",
			"prazos e efeitos práticos",
		},
		maxWords: 100,
	},
}

var genericPrompt = promptSpec{
	label: "PUBLICAÇÃO",
	focus: []string{
		"pontos relacionados a tributos e obrigações acessórias",
		"prazos ou valores significativos",
		"a quem se destina e quando surte efeitos",
	},
	maxWords: 100,
}

func buildPrompt(text string, doc gazette.Document) string {
	spec, ok := promptSpecs[doc.ActType]
	if !ok {
		spec = genericPrompt
	}

	header := spec.label
	if doc.ActNumber != "" {
		header += " Nº " + doc.ActNumber
	}
	if doc.Organization != "" {
		header += " - " + doc.Organization
	}

	var focus strings.Builder
	for _, f := range spec.focus {
		focus.WriteString("- ")
		focus.WriteString(f)
		focus.WriteString("\n")
	}

	return fmt.Sprintf(`Você é um analista fiscal que acompanha o Diário Oficial da União para contadores e tributaristas.
Resuma a publicação abaixo em português, em no máximo %d palavras, em texto corrido sem marcadores nem formatação Markdown.
Não invente fatos que não estejam no texto. Se não houver conteúdo fiscal relevante, diga isso em uma frase.

Concentre-se em:
%s
%s
Título: %s

TEXTO:
%s

RESUMO:`, spec.maxWords, focus.String(), header, doc.Title, text)
}
