// Package state хранит множество уже отправленных документов между запусками.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileStore хранит SeenSet в JSON-файле: отсортированный массив строк.
type FileStore struct {
	path   string
	legacy bool
	logger *slog.Logger
}

// Option настраивает FileStore.
type Option func(*FileStore)

// WithLegacyKeys включает сопоставление по голому URL из старых файлов.
func WithLegacyKeys(enabled bool) Option {
	return func(s *FileStore) { s.legacy = enabled }
}

// WithLogger задаёт логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore создаёт новый файловый стор.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path возвращает путь к файлу состояния.
func (s *FileStore) Path() string {
	return s.path
}

// Load читает состояние из файла.
// Отсутствующий файл даёт пустое множество. Повреждённый тоже, с предупреждением в лог.
func (s *FileStore) Load(ctx context.Context) (*SeenSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set := NewSeenSet(s.legacy)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		s.logger.Warn("state file unreadable, starting with empty set", "path", s.path, "error", err)
		return set, nil
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		// Старый файл остаётся рядом как .broken для диагностики.
		brokenPath := s.path + ".broken"
		if werr := os.WriteFile(brokenPath, data, 0o644); werr != nil {
			s.logger.Warn("save broken state copy", "path", brokenPath, "error", werr)
		}
		s.logger.Warn("state file corrupted, starting with empty set", "path", s.path, "broken_copy", brokenPath, "error", err)
		return set, nil
	}

	for _, k := range keys {
		set.add(k)
	}
	return set, nil
}

// Save записывает состояние в файл атомарно (через временный файл).
func (s *FileStore) Save(ctx context.Context, set *SeenSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys := set.Keys()
	sort.Strings(keys)
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp state file: %w", err)
	}

	s.logger.Debug("state saved", "path", s.path, "keys", len(keys))
	return nil
}
