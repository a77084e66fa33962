package search

import (
	"context"
	"errors"

	"github.com/maine/dou_bot/internal/fetch"
)

// Getter загружает страницу по URL (реализуется fetch.Fetcher).
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Page, error)
}

// HTTPPage — сессия без браузера: листает выдачу параметром &page=N.
// Next всегда "находит" следующую страницу; конец выдачи определяет
// правило "ни одного нового кандидата".
type HTTPPage struct {
	getter   Getter
	queryURL string
	page     int
	html     string
}

// NewHTTPPage создаёт HTTP-сессию.
func NewHTTPPage(getter Getter) *HTTPPage {
	return &HTTPPage{getter: getter}
}

// Open загружает первую страницу выдачи.
func (p *HTTPPage) Open(ctx context.Context, url string) error {
	page, err := p.getter.Get(ctx, url)
	if err != nil {
		return err
	}
	p.queryURL = url
	p.page = 1
	p.html = page.HTML
	return nil
}

// Content возвращает HTML текущей страницы.
func (p *HTTPPage) Content(ctx context.Context) (string, error) {
	if p.queryURL == "" {
		return "", errors.New("page not opened")
	}
	return p.html, nil
}

// Next загружает страницу с номером на единицу больше.
func (p *HTTPPage) Next(ctx context.Context) (bool, error) {
	if p.queryURL == "" {
		return false, errors.New("page not opened")
	}
	page, err := p.getter.Get(ctx, PageURL(p.queryURL, p.page+1))
	if err != nil {
		return false, err
	}
	p.page++
	p.html = page.HTML
	return true, nil
}

// ScrollToEnd ничего не делает: без браузера подгружать нечего.
func (p *HTTPPage) ScrollToEnd(ctx context.Context) error {
	return nil
}

// Close сбрасывает состояние сессии.
func (p *HTTPPage) Close() error {
	p.queryURL, p.html, p.page = "", "", 0
	return nil
}
