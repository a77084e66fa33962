package gazette

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/maine/dou_bot/internal/textnorm"
)

// Section — раздел Diário Oficial, в котором ведётся поиск.
type Section string

const (
	Section1   Section = "SECTION_1"
	Section2   Section = "SECTION_2"
	Section3   Section = "SECTION_3"
	SectionAll Section = "ALL"
)

// Code возвращает код раздела в словаре портала (параметр s=).
func (s Section) Code() string {
	switch s {
	case Section1:
		return "do1"
	case Section2:
		return "do2"
	case Section3:
		return "do3"
	case SectionAll:
		return "todos"
	default:
		return "do1"
	}
}

// ParseSection принимает как наши имена, так и коды портала.
func ParseSection(value string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "section_1", "do1", "1", "dou1":
		return Section1, nil
	case "section_2", "do2", "2", "dou2":
		return Section2, nil
	case "section_3", "do3", "3", "dou3":
		return Section3, nil
	case "all", "todos", "todas":
		return SectionAll, nil
	}
	return "", fmt.Errorf("unknown section %q", value)
}

// Window — временное окно поиска.
type Window string

const (
	WindowDay   Window = "DAY"
	WindowWeek  Window = "WEEK"
	WindowMonth Window = "MONTH"
	WindowAny   Window = "ANY"
)

// Code возвращает значение параметра exactDate портала.
func (w Window) Code() string {
	switch w {
	case WindowWeek:
		return "semana"
	case WindowMonth:
		return "mes"
	case WindowAny:
		return "all"
	default:
		return "dia"
	}
}

// ParseWindow понимает английские и португальские синонимы из старых конфигов.
func ParseWindow(value string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "day", "today", "dia", "hoje", "edicao", "edição":
		return WindowDay, nil
	case "week", "semana":
		return WindowWeek, nil
	case "month", "mes", "mês":
		return WindowMonth, nil
	case "any", "all", "qualquer":
		return WindowAny, nil
	}
	return "", fmt.Errorf("unknown window %q", value)
}

// SearchQuery — одна комбинация (фраза, раздел, окно). Неизменяемая.
type SearchQuery struct {
	Phrase  string
	Section Section
	Window  Window
}

// CandidateRef — ссылка, найденная на странице выдачи, до обогащения.
type CandidateRef struct {
	URL          string `json:"url"`
	DisplayTitle string `json:"display_title"`
}

// ActType — вид нормативного акта.
type ActType string

const (
	ActLaw                  ActType = "LAW"
	ActOrdinance            ActType = "ORDINANCE"
	ActDecree               ActType = "DECREE"
	ActNormativeInstruction ActType = "NORMATIVE_INSTRUCTION"
	ActResolution           ActType = "RESOLUTION"
	ActDeclaratoryAct       ActType = "DECLARATORY_ACT"
	ActConsultationRuling   ActType = "CONSULTATION_RULING"
	ActDispatch             ActType = "DISPATCH"
	ActOther                ActType = "OTHER"
)

var actLabels = map[ActType]string{
	ActLaw:                  "LEI",
	ActOrdinance:            "PORTARIA",
	ActDecree:               "DECRETO",
	ActNormativeInstruction: "INSTRUÇÃO NORMATIVA",
	ActResolution:           "RESOLUÇÃO",
	ActDeclaratoryAct:       "ATO DECLARATÓRIO",
	ActConsultationRuling:   "SOLUÇÃO DE CONSULTA",
	ActDispatch:             "DESPACHO",
}

// Label возвращает название вида акта по-португальски; "" для OTHER и неизвестных.
func (t ActType) Label() string {
	return actLabels[t]
}

// Document — обогащённая публикация. После сборки не изменяется.
type Document struct {
	CanonicalURL      string     `json:"canonical_url"`
	Title             string     `json:"title"`
	Organization      string     `json:"organization,omitempty"`
	ActType           ActType    `json:"act_type,omitempty"`
	ActNumber         string     `json:"act_number,omitempty"`
	PublicationDate   civil.Date `json:"publication_date"`
	Section           Section    `json:"section,omitempty"`
	Edition           string     `json:"edition,omitempty"`
	Page              string     `json:"page,omitempty"`
	RawBodyText       string     `json:"raw_body_text,omitempty"`
	CleanBodyText     string     `json:"clean_body_text,omitempty"`
	EditorialSynopsis string     `json:"editorial_synopsis,omitempty"`
	// Degraded выставляется, когда страницу документа загрузить не удалось.
	Degraded bool `json:"degraded,omitempty"`
}

// Headline возвращает заголовок для дайджеста: "PORTARIA 123 - Título".
// Если заголовок уже начинается с названия вида акта, он возвращается как есть.
func (d Document) Headline() string {
	label := d.ActType.Label()
	if label == "" || hasLabelPrefix(d.Title, label) {
		return d.Title
	}
	if d.ActNumber != "" {
		label += " " + d.ActNumber
	}
	return label + " - " + d.Title
}

func hasLabelPrefix(title, label string) bool {
	title = textnorm.StripAccents(strings.ToUpper(strings.TrimSpace(title)))
	return strings.HasPrefix(title, textnorm.StripAccents(label))
}

// NumericRange — диапазон номеров актов внутри группы.
type NumericRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Group объединяет однотипные документы одного выпуска.
type Group struct {
	Key     string        `json:"key"`
	Members []Document    `json:"members"`
	Range   *NumericRange `json:"numeric_range,omitempty"`
}

// Entry — элемент дайджеста: либо одиночный документ, либо группа.
type Entry struct {
	Document *Document `json:"document,omitempty"`
	Group    *Group    `json:"group,omitempty"`
}

// IsGroup сообщает, что элемент является группой.
func (e Entry) IsGroup() bool {
	return e.Group != nil
}

// Documents возвращает все документы элемента.
func (e Entry) Documents() []Document {
	if e.Group != nil {
		return e.Group.Members
	}
	if e.Document != nil {
		return []Document{*e.Document}
	}
	return nil
}

// Digest — то, что передаётся внешним получателям (почта, Telegram).
type Digest struct {
	Date    civil.Date `json:"date"`
	Window  Window     `json:"window"`
	Entries []Entry    `json:"entries"`
	// Summaries — AI-резюме по CanonicalURL; отсутствие ключа — нормальная ситуация.
	Summaries map[string]string `json:"summaries,omitempty"`
}

// DocumentCount возвращает число документов во всех элементах.
func (d Digest) DocumentCount() int {
	n := 0
	for _, e := range d.Entries {
		n += len(e.Documents())
	}
	return n
}
