package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient определяет интерфейс для работы с Telegram Bot API.
// Это позволяет легко создавать моки для тестирования.
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID string, text string, parseMode string) error
}

// Client инкапсулирует работу с Telegram Bot API.
type Client struct {
	client *http.Client
	apiURL string
}

// Убеждаемся, что Client реализует интерфейс TelegramClient.
var _ TelegramClient = (*Client)(nil)

// NewClient создаёт клиента. token обязателен.
func NewClient(token string) *Client {
	return NewClientWithBase(token, defaultAPIBase, nil)
}

// NewClientWithBase позволяет указать другой адрес API (тесты, локальный Bot API сервер).
func NewClientWithBase(token, base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		client: httpClient,
		apiURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(base, "/"), token),
	}
}

// SendMessage отправляет текстовое сообщение.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string, parseMode string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	return c.post(ctx, "sendMessage", payload)
}

func (c *Client) post(ctx context.Context, method string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out APIResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode >= 400 || (decodeErr == nil && !out.OK) {
		apiErr := &APIError{StatusCode: resp.StatusCode, Description: out.Description}
		if out.Parameters != nil {
			apiErr.RetryAfter = out.Parameters.RetryAfter
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode telegram response: %w", decodeErr)
	}
	return nil
}
