package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maine/dou_bot/internal/config"
)

func TestSearchPolicy(t *testing.T) {
	var cfg config.Root
	cfg.ApplyDefaults()
	cfg.Search.RetryAttempts = 3
	cfg.Search.RetryDelay = 2 * time.Second

	cfg.Browser.Mode = "browser"
	p := searchPolicy(cfg)
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)

	// В режиме http страница загружается fetcher'ом, который сам делает retry_attempts попыток.
	cfg.Browser.Mode = "http"
	assert.Equal(t, 1, searchPolicy(cfg).Attempts)
}

func TestPortalTimezoneAvailable(t *testing.T) {
	t.Setenv("ZONEINFO", t.TempDir())
	var cfg config.Root
	cfg.ApplyDefaults()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimezone, loc.String())
}
