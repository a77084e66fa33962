package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// EnvConfig содержит секреты и флаги из переменных окружения.
type EnvConfig struct {
	GeminiAPIKey     string
	TelegramBotToken string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string
	MailFrom         string
	SkipAI           bool // Не вызывать Gemini даже при gemini.enabled
	DryRun           bool // Ничего не отправлять и не сохранять состояние
	ForceTestEmail   bool // Отправить только тестовое письмо
	LogLevel         string
}

// LoadEnvConfig читает переменные окружения.
// Обязательность секретов проверяет Require, так как она зависит от включённых каналов.
func LoadEnvConfig() (*EnvConfig, error) {
	port := 587
	if raw := strings.TrimSpace(os.Getenv("SMTP_PORT")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("SMTP_PORT must be a valid port, got %q", raw)
		}
		port = p
	}

	return &EnvConfig{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         port,
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		MailFrom:         os.Getenv("MAIL_FROM"),
		SkipAI:           envFlag("SKIP_AI"),
		DryRun:           envFlag("DRY_RUN"),
		ForceTestEmail:   envFlag("FORCE_TEST_EMAIL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}, nil
}

// Require проверяет, что для включённых каналов заданы секреты.
func (e *EnvConfig) Require(cfg Root) error {
	var missing []string
	if cfg.Email.Enabled {
		for name, v := range map[string]string{"SMTP_HOST": e.SMTPHost, "SMTP_USER": e.SMTPUser, "SMTP_PASS": e.SMTPPass} {
			if v == "" {
				missing = append(missing, name)
			}
		}
		if e.MailFrom == "" && cfg.Email.From == "" {
			missing = append(missing, "MAIL_FROM")
		}
	}
	if cfg.Telegram.Enabled && e.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.Gemini.Enabled && !e.SkipAI && e.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY (or set SKIP_AI=1)")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing environment variables: %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
