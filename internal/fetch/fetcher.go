// Package fetch загружает HTML-страницы портала с ограничением частоты,
// повторами и декодированием кодировки.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/maine/dou_bot/internal/retry"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StatusError — ответ сервера с кодом вне 2xx/3xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Temporary сообщает, имеет ли смысл повторять запрос.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// Page — загруженная страница.
type Page struct {
	// URL после всех редиректов.
	URL  string
	HTML string
}

// Config настраивает Fetcher.
type Config struct {
	Timeout           time.Duration // Таймаут одного запроса. По умолчанию 30с.
	MaxBytes          int64         // Лимит тела ответа. По умолчанию 10MB.
	UserAgent         string
	AcceptLanguage    string
	RequestsPerSecond float64 // 0 — без ограничения.
	Burst             int
	Retry             retry.Policy
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.Retry.Attempts <= 0 {
		c.Retry = retry.DefaultPolicy
	}
}

// Fetcher выполняет GET-запросы к порталу.
type Fetcher struct {
	client  *http.Client
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New создаёт Fetcher. client и logger могут быть nil.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Fetcher{
		client:  client,
		config:  cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}
}

// Get загружает страницу с повторами на временных ошибках.
// 4xx (кроме 408 и 429) не повторяются.
func (f *Fetcher) Get(ctx context.Context, url string) (Page, error) {
	var page Page
	attempt := 0
	err := retry.Do(ctx, f.config.Retry, func(ctx context.Context) error {
		attempt++
		p, err := f.getOnce(ctx, url)
		if err == nil {
			page = p
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return retry.Permanent(err)
		}
		f.logger.Debug("fetch attempt failed", "url", url, "attempt", attempt, "error", err)
		return err
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

func (f *Fetcher) getOnce(ctx context.Context, url string) (Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Page{}, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.config.AcceptLanguage)
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return Page{}, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.config.MaxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return Page{}, fmt.Errorf("detect charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return Page{URL: final, HTML: string(body)}, nil
}
