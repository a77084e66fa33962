package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/maine/dou_bot/internal/gazette"
	"github.com/maine/dou_bot/internal/retry"
)

const (
	// telegramRateLimitPerSecond - лимит Telegram Bot API: 30 сообщений в секунду
	telegramRateLimitPerSecond = 30
	// parseMode - разметка сообщений дайджеста
	parseMode = "HTML"
)

// MessageBuilder строит сообщения по дайджесту.
type MessageBuilder interface {
	BuildMessages(d gazette.Digest) []string
}

// Sender реализует app.Notifier для отправки дайджеста в чаты Telegram.
type Sender struct {
	client  TelegramClient
	chatIDs []int64
	builder MessageBuilder
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

// NewSender создаёт новый экземпляр отправителя.
func NewSender(client TelegramClient, chatIDs []int64, builder MessageBuilder, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		client:  client,
		chatIDs: chatIDs,
		builder: builder,
		limiter: rate.NewLimiter(rate.Limit(telegramRateLimitPerSecond), 1),
		policy:  retry.Policy{Attempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second},
		logger:  logger,
	}
}

// Name реализует app.Notifier.
func (s *Sender) Name() string {
	return "telegram"
}

// Notify реализует app.Notifier.
// Ошибка одного чата не прерывает рассылку; ошибка возвращается, только если не доставлено ничего.
func (s *Sender) Notify(ctx context.Context, d gazette.Digest) error {
	if len(s.chatIDs) == 0 {
		return fmt.Errorf("no telegram chats configured")
	}
	messages := s.builder.BuildMessages(d)
	if len(messages) == 0 {
		return fmt.Errorf("no messages to send")
	}

	total := len(s.chatIDs) * len(messages)
	s.logger.Info("sending telegram digest", "messages", len(messages), "chats", len(s.chatIDs), "total", total)

	sent := 0
	var lastErr error
	for _, id := range s.chatIDs {
		chatID := strconv.FormatInt(id, 10)
		for i, message := range messages {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := s.sendWithRetry(ctx, chatID, message); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lastErr = err
				s.logger.Warn("telegram send failed", "chat_id", chatID, "message", i+1, "error", err)
				continue
			}
			sent++
		}
	}

	s.logger.Info("telegram digest sent", "sent", sent, "total", total)
	if sent == 0 {
		return fmt.Errorf("telegram: nothing delivered: %w", lastErr)
	}
	return nil
}

// sendWithRetry отправляет сообщение с повторными попытками при ошибках.
func (s *Sender) sendWithRetry(ctx context.Context, chatID string, message string) error {
	return retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := s.client.SendMessage(ctx, chatID, message, parseMode)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			wait := time.Duration(apiErr.RetryAfter) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if !isRetryableError(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

// isRetryableError определяет, можно ли повторить отправку при данной ошибке.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	// Ошибки, при которых повтор не поможет
	nonRetryableErrors := []string{
		"chat not found",
		"bot was blocked",
		"user is deactivated",
		"chat_id is empty",
		"message is too long",
		"bad request",
	}

	errStr := strings.ToLower(err.Error())
	for _, nonRetryable := range nonRetryableErrors {
		if strings.Contains(errStr, nonRetryable) {
			return false
		}
	}

	// По умолчанию считаем ошибку повторяемой (сетевые ошибки, временные проблемы API)
	return true
}
