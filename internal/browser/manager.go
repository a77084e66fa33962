// Package browser запускает headless Chrome через go-rod и предоставляет
// сессию пагинации выдачи (реализация search.Page).
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config настраивает Manager и его сессии.
type Config struct {
	// RemoteURL — WebSocket уже запущенного Chrome; пусто — запустить локально.
	RemoteURL  string
	BinPath    string
	ShowWindow bool
	// NavigationTimeout ограничивает навигацию и ожидание загрузки.
	NavigationTimeout time.Duration
	NextSelectors     []string
	NextTexts         []string
	// BlockResources отключает картинки, шрифты и медиа.
	BlockResources bool
	// Stealth открывает вкладки через go-rod/stealth. По умолчанию выключено.
	Stealth bool
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 45 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager владеет процессом Chrome.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewManager создаёт менеджер. Chrome запускается в Start.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start запускает Chrome или подключается к удалённому.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return nil
	}
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(!m.cfg.ShowWindow)
		if m.cfg.BinPath != "" {
			l = l.Bin(m.cfg.BinPath)
		}

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.killLocked()
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return nil
}

// OpenSession открывает новую вкладку.
func (m *Manager) OpenSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, errors.New("browser: not started")
	}
	return newSession(b, m.cfg)
}

// Close закрывает браузер и завершает локальный процесс.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.killLocked()
	return err
}

func (m *Manager) killLocked() {
	if m.lnch != nil {
		m.lnch.Kill()
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
