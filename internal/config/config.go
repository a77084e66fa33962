package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // Location() не должен зависеть от системной базы зон

	"gopkg.in/yaml.v3"

	"github.com/maine/dou_bot/internal/gazette"
)

// ErrInvalid оборачивает любые нарушения контракта конфигурации.
var ErrInvalid = errors.New("invalid config")

type (
	// Root объединяет все конфигурационные блоки.
	Root struct {
		Search   Search   `yaml:"search"`
		Filters  Filters  `yaml:"filters"`
		Listing  Listing  `yaml:"listing"`
		Enrich   Enrich   `yaml:"enrich"`
		Fetch    Fetch    `yaml:"fetch"`
		Browser  Browser  `yaml:"browser"`
		Pipeline Pipeline `yaml:"pipeline"`
		Gemini   Gemini   `yaml:"gemini"`
		Email    Email    `yaml:"email"`
		Telegram Telegram `yaml:"telegram"`
	}

	// Search описывает поисковые запросы к порталу.
	Search struct {
		BaseURL  string   `yaml:"base_url"`
		Phrases  []string `yaml:"phrases"`
		Sections []string `yaml:"sections"`
		Window   string   `yaml:"window"`
		MaxPages int      `yaml:"max_pages"`
		// Timezone портала; по нему считается "сегодня" для фильтра выпуска.
		Timezone       string        `yaml:"timezone"`
		UTCOffsetHours *int          `yaml:"utc_offset_hours,omitempty"`
		NoResultsTexts []string      `yaml:"no_results_texts"`
		SettleDelay    time.Duration `yaml:"settle_delay"`
		RetryAttempts  int           `yaml:"retry_attempts"`
		RetryDelay     time.Duration `yaml:"retry_delay"`
	}

	// Filters — списки ключевых слов и шаблонов для отсева.
	Filters struct {
		TitleKeywords        []string `yaml:"title_keywords"`
		TitleReject          []string `yaml:"title_reject"`
		OrganizationKeywords []string `yaml:"organization_keywords"`
		URLReject            []string `yaml:"url_reject"`
		URLAccept            []string `yaml:"url_accept"`
		MenuTexts            []string `yaml:"menu_texts"`
	}

	// Listing настраивает разбор страницы выдачи.
	Listing struct {
		PayloadID string   `yaml:"payload_id"`
		Selectors []string `yaml:"selectors"`
	}

	// ActRule — одно правило распознавания вида акта.
	ActRule struct {
		Type    string `yaml:"type"`
		Pattern string `yaml:"pattern"`
	}

	// Enrich настраивает извлечение метаданных и текста документа.
	Enrich struct {
		Workers               int       `yaml:"workers"`
		CanonicalPatterns     []string  `yaml:"canonical_patterns"`
		TitleSelectors        []string  `yaml:"title_selectors"`
		TitleSuffix           string    `yaml:"title_suffix"`
		OrganizationSelectors []string  `yaml:"organization_selectors"`
		DateSelectors         []string  `yaml:"date_selectors"`
		SectionSelectors      []string  `yaml:"section_selectors"`
		EditionSelectors      []string  `yaml:"edition_selectors"`
		PageSelectors         []string  `yaml:"page_selectors"`
		ContentSelectors      []string  `yaml:"content_selectors"`
		UnwantedSelectors     []string  `yaml:"unwanted_selectors"`
		Boilerplate           []string  `yaml:"boilerplate"`
		MinBodyLength         int       `yaml:"min_body_length"`
		MinLineLength         int       `yaml:"min_line_length"`
		SynopsisMarker        string    `yaml:"synopsis_marker"`
		SynopsisMin           int       `yaml:"synopsis_min"`
		SynopsisMax           int       `yaml:"synopsis_max"`
		SynopsisOpeners       []string  `yaml:"synopsis_openers"`
		ActRules              []ActRule `yaml:"act_rules"`
	}

	// Fetch — параметры HTTP-клиента.
	Fetch struct {
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		UserAgent         string        `yaml:"user_agent"`
		MaxBytes          int64         `yaml:"max_bytes"`
	}

	// Browser — параметры сессии браузера для пагинации выдачи.
	Browser struct {
		// Mode: "browser" (go-rod) или "http" (пагинация через &page=N).
		Mode              string        `yaml:"mode"`
		ShowWindow        bool          `yaml:"show_window"`
		RemoteURL         string        `yaml:"remote_url"`
		BinPath           string        `yaml:"bin_path"`
		NavigationTimeout time.Duration `yaml:"navigation_timeout"`
		NextSelectors     []string      `yaml:"next_selectors"`
		NextTexts         []string      `yaml:"next_texts"`
		BlockResources    bool          `yaml:"block_resources"`
		// Stealth открывает вкладки через go-rod/stealth; по умолчанию выключено.
		Stealth bool `yaml:"stealth"`
	}

	// Pipeline описывает параметры главного пайплайна.
	Pipeline struct {
		StatePath      string `yaml:"state_path"`
		GroupThreshold int    `yaml:"group_threshold"`
		SendEmpty      bool   `yaml:"send_empty"`
		// LegacyKeys включает проверку голых URL из старых файлов состояния.
		LegacyKeys bool `yaml:"legacy_keys"`
	}

	// Gemini содержит настройки модели для резюме.
	Gemini struct {
		Enabled       bool   `yaml:"enabled"`
		Model         string `yaml:"model"`
		MaxCharsInput int    `yaml:"max_chars_input"`
		MinChars      int    `yaml:"min_chars"`
	}

	// Email — получатели письма; SMTP-доступ берётся из окружения.
	Email struct {
		Enabled       bool     `yaml:"enabled"`
		From          string   `yaml:"from"`
		To            []string `yaml:"to"`
		Cc            []string `yaml:"cc"`
		Bcc           []string `yaml:"bcc"`
		SubjectPrefix string   `yaml:"subject_prefix"`
	}

	// Telegram — чаты для рассылки дайджеста.
	Telegram struct {
		Enabled     bool    `yaml:"enabled"`
		ChatIDs     []int64 `yaml:"chat_ids"`
		MaxMessages int     `yaml:"max_messages"`
	}
)

// LoadRoot читает основной файл конфигурации и заполняет значения по умолчанию.
func LoadRoot(path string) (Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Root{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Root
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Root{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate проверяет контракт до любых сетевых обращений.
func (r Root) Validate() error {
	var problems []string

	phrases := 0
	for _, p := range r.Search.Phrases {
		if strings.TrimSpace(strings.Trim(p, `"`)) != "" {
			phrases++
		}
	}
	if phrases == 0 {
		problems = append(problems, "search.phrases is empty")
	}
	if _, err := r.Sections(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := gazette.ParseWindow(r.Search.Window); err != nil {
		problems = append(problems, err.Error())
	}
	if r.Search.MaxPages < 1 {
		problems = append(problems, "search.max_pages must be positive")
	}
	if _, err := r.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	for _, group := range [][]string{r.Filters.URLAccept, r.Enrich.CanonicalPatterns} {
		for _, p := range group {
			if _, err := regexp.Compile(p); err != nil {
				problems = append(problems, fmt.Sprintf("bad pattern %q: %v", p, err))
			}
		}
	}
	for _, rule := range r.Enrich.ActRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf("bad act rule %s: %v", rule.Type, err))
		}
	}
	switch r.Browser.Mode {
	case "browser", "http":
	default:
		problems = append(problems, fmt.Sprintf("unknown browser.mode %q", r.Browser.Mode))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Sections разбирает список разделов.
func (r Root) Sections() ([]gazette.Section, error) {
	out := make([]gazette.Section, 0, len(r.Search.Sections))
	for _, s := range r.Search.Sections {
		sec, err := gazette.ParseSection(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	if len(out) == 0 {
		return nil, errors.New("search.sections is empty")
	}
	return out, nil
}

// Window возвращает окно поиска; некорректное значение отсекает Validate.
func (r Root) Window() gazette.Window {
	w, err := gazette.ParseWindow(r.Search.Window)
	if err != nil {
		return gazette.WindowDay
	}
	return w
}

// Location возвращает часовой пояс портала.
// Явный timezone важнее utc_offset_hours.
func (r Root) Location() (*time.Location, error) {
	if r.Search.Timezone != "" {
		loc, err := time.LoadLocation(r.Search.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", r.Search.Timezone, err)
		}
		return loc, nil
	}
	if r.Search.UTCOffsetHours != nil {
		h := *r.Search.UTCOffsetHours
		if h < -12 || h > 14 {
			return nil, fmt.Errorf("utc_offset_hours %d out of range", h)
		}
		return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*3600), nil
	}
	return time.LoadLocation(DefaultTimezone)
}
