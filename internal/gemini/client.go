package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient определяет интерфейс для работы с Gemini API.
// Это позволяет легко создавать моки для тестирования.
type GeminiClient interface {
	GenerateText(ctx context.Context, model string, prompt string) (string, error)
}

// ErrQuotaExceeded возвращается, когда дневная квота исчерпана и повторы бессмысленны.
var ErrQuotaExceeded = errors.New("gemini quota exceeded")

// RetryDelays задаёт паузы между попытками по классу ошибки.
type RetryDelays struct {
	Base        time.Duration // обычные временные ошибки, растёт линейно
	RateLimit   time.Duration // 429 RPM/TPM
	Unavailable time.Duration // 503, модель перегружена
	Max         time.Duration
}

// DefaultRetryDelays подобраны под бесплатный тариф.
var DefaultRetryDelays = RetryDelays{
	Base:        5 * time.Second,
	RateLimit:   time.Minute,
	Unavailable: 2 * time.Minute,
	Max:         time.Minute,
}

// Client инкапсулирует работу с Gemini API через официальный SDK.
type Client struct {
	client     *genai.Client
	maxRetries int
	delays     RetryDelays
	logger     *slog.Logger
}

// Убеждаемся, что Client реализует интерфейс GeminiClient.
var _ GeminiClient = (*Client)(nil)

// NewClient создаёт новый клиент для работы с Gemini API.
func NewClient(ctx context.Context, apiKey string, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:     client,
		maxRetries: 3,
		delays:     DefaultRetryDelays,
		logger:     logger,
	}, nil
}

// GenerateText отправляет запрос к Gemini API и возвращает текстовый ответ.
// Временные ошибки (429 RPM/TPM, 5xx) повторяются, исчерпанная квота и прочие ошибки возвращаются сразу.
func (c *Client) GenerateText(ctx context.Context, model string, prompt string) (string, error) {
	var lastErr error
	var kind errorKind
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.delays.forKind(kind, attempt)
			c.logger.Warn("retrying gemini request", "attempt", attempt+1, "max_attempts", c.maxRetries, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err == nil {
			text, textErr := result.Text()
			if textErr != nil {
				return "", fmt.Errorf("get text from result: %w", textErr)
			}
			return text, nil
		}

		lastErr = err
		kind = classify(err.Error())
		switch kind {
		case kindQuota:
			return "", fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case kindRateLimit, kindUnavailable, kindTemporary:
			continue
		default:
			return "", fmt.Errorf("generate content: %w", err)
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

type errorKind int

const (
	kindFatal errorKind = iota
	kindQuota
	kindRateLimit
	kindUnavailable
	kindTemporary
)

func (d RetryDelays) forKind(kind errorKind, attempt int) time.Duration {
	switch kind {
	case kindRateLimit:
		return d.RateLimit
	case kindUnavailable:
		return d.Unavailable
	}
	delay := d.Base * time.Duration(attempt)
	if d.Max > 0 && delay > d.Max {
		delay = d.Max
	}
	return delay
}

// classify разбирает текст ошибки SDK: типизированных кодов у genai нет.
func classify(errStr string) errorKind {
	switch {
	case isRPDQuotaError(errStr):
		return kindQuota
	case isRateLimitError(errStr):
		return kindRateLimit
	case isServiceUnavailableError(errStr):
		return kindUnavailable
	case isTemporaryError(errStr):
		return kindTemporary
	case isQuotaExceededError(errStr):
		return kindQuota
	}
	return kindFatal
}

// isRPDQuotaError проверяет, что 429 означает исчерпанный дневной лимит (RPD).
func isRPDQuotaError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	if !strings.Contains(errLower, "429") {
		return false
	}
	return strings.Contains(errLower, "per day") ||
		strings.Contains(errLower, "perday") ||
		strings.Contains(errLower, "generate_content_free_tier_requests")
}

// isRateLimitError — 429 по RPM/TPM.
func isRateLimitError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "429") ||
		strings.Contains(errLower, "too many requests") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "resource_exhausted")
}

func isServiceUnavailableError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "service unavailable") ||
		strings.Contains(errLower, "overloaded")
}

// isTemporaryError — 500, 502, 504.
func isTemporaryError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "500") ||
		strings.Contains(errLower, "502") ||
		strings.Contains(errLower, "504") ||
		strings.Contains(errLower, "internal server error") ||
		strings.Contains(errLower, "bad gateway") ||
		strings.Contains(errLower, "gateway timeout")
}

func isQuotaExceededError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "daily limit")
}
