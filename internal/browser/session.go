package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Сериализует DOM вместе с открытыми shadow root в виде <template shadowrootmode>.
const contentJS = `() => {
	const roots = [];
	const walk = (root) => {
		root.querySelectorAll('*').forEach((el) => {
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				walk(el.shadowRoot);
			}
		});
	};
	walk(document);
	const html = document.documentElement;
	if (roots.length > 0 && typeof html.getHTML === 'function') {
		return '<html>' + html.getHTML({serializableShadowRoots: true, shadowRoots: roots}) + '</html>';
	}
	return html.outerHTML;
}`

// Нажимает первый видимый элемент "следующая страница". Возвращает true при клике.
const nextJS = `(selectors, texts) => {
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none' &&
			!el.hasAttribute('disabled') && el.getAttribute('aria-disabled') !== 'true';
	};
	for (const sel of selectors) {
		for (const el of document.querySelectorAll(sel)) {
			if (visible(el)) { el.click(); return true; }
		}
	}
	const wanted = texts.map((t) => t.trim().toLowerCase());
	for (const el of document.querySelectorAll('a, button')) {
		const t = (el.innerText || el.textContent || '').trim().toLowerCase();
		if (wanted.includes(t) && visible(el)) { el.click(); return true; }
	}
	return false;
}`

const scrollJS = `() => { window.scrollTo(0, document.body ? document.body.scrollHeight : 0); }`

// Session — одна вкладка, используется последовательно.
type Session struct {
	page   *rod.Page
	router *rod.HijackRouter
	cfg    Config
	logger *slog.Logger
	// pending: клик по "следующей" выполнен, но страница не дождалась загрузки.
	pending bool
}

func newTab(b *rod.Browser, cfg Config) (*rod.Page, error) {
	if cfg.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{})
}

func newSession(b *rod.Browser, cfg Config) (*Session, error) {
	page, err := newTab(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	s := &Session{page: page, cfg: cfg, logger: cfg.Logger}
	if cfg.BlockResources {
		router, err := applyResourceBlocking(page)
		if err != nil {
			s.logger.Warn("browser: resource blocking failed", "error", err)
		}
		s.router = router
	}
	return s, nil
}

// Open реализует search.Page: навигация с таймаутом и ожидание загрузки.
func (s *Session) Open(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := s.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	s.pending = false
	return nil
}

// Content возвращает сериализованный DOM текущей страницы.
func (s *Session) Content(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(contentJS)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Next нажимает элемент перехода на следующую страницу выдачи.
// Если страница не загрузилась за NavigationTimeout, возвращается ошибка;
// повторный вызов снова ждёт загрузки, не нажимая второй раз.
func (s *Session) Next(ctx context.Context) (bool, error) {
	if !s.pending {
		res, err := s.page.Context(ctx).Eval(nextJS, s.cfg.NextSelectors, s.cfg.NextTexts)
		if err != nil {
			return false, fmt.Errorf("browser: click next: %w", err)
		}
		if !res.Value.Bool() {
			return false, nil
		}
		s.pending = true
	}
	if err := s.waitSettled(ctx); err != nil {
		return false, fmt.Errorf("browser: next page: %w", err)
	}
	s.pending = false
	return true, nil
}

// ScrollToEnd прокручивает страницу до конца.
func (s *Session) ScrollToEnd(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(scrollJS); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	if err := s.waitSettled(ctx); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// errNotSettled — страница не успокоилась за NavigationTimeout.
var errNotSettled = errors.New("page did not settle")

// waitSettled ждёт затишья DOM после клика или прокрутки.
func (s *Session) waitSettled(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()
	if err := s.page.Context(waitCtx).WaitStable(500 * time.Millisecond); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errNotSettled, err)
	}
	return nil
}

// Close закрывает вкладку.
func (s *Session) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	if s.page != nil {
		return s.page.Close()
	}
	return nil
}
