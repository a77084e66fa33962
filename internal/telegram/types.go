package telegram

import "fmt"

// APIResponse — общая обёртка ответа Bot API.
type APIResponse struct {
	OK          bool                `json:"ok"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters содержит подсказки API, например паузу при 429.
type ResponseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// APIError — ошибка Bot API с кодом и описанием.
type APIError struct {
	StatusCode  int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram api status %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram api status %d: %s", e.StatusCode, e.Description)
}
