// Package settings reads and merges the user-editable KEY=value settings file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

// Store guards a single settings file
type Store struct {
	mu        sync.Mutex
	path      string
	arrayKeys map[string]struct{}
}

// NewStore creates a store for the configured file
func NewStore(cfg config.SettingsConfig) *Store {
	keys := make(map[string]struct{})
	for _, k := range config.SplitList(cfg.ArrayKeys) {
		keys[strings.ToUpper(k)] = struct{}{}
	}
	return &Store{path: cfg.File, arrayKeys: keys}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// All returns every setting. Array keys are split on commas. A missing file
// reads as empty.
func (s *Store) All() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if s.isArray(k) {
			out[k] = config.SplitList(v)
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Merge upserts updates into the file, leaving keys it does not mention untouched.
// Values may be strings, numbers, booleans or lists of those; a nil value removes
// the key.
func (s *Store) Merge(updates map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	raw, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	for k, v := range updates {
		key := strings.TrimSpace(k)
		if key == "" || strings.ContainsAny(key, "= \t\n") {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: invalid setting key %q", entities.ErrValidation, k)
		}
		if v == nil {
			delete(raw, key)
			continue
		}
		value, err := encodeValue(v)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: setting %s: %v", entities.ErrValidation, key, err)
		}
		raw[key] = value
	}

	err = s.write(raw)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.All()
}

func (s *Store) isArray(key string) bool {
	_, ok := s.arrayKeys[strings.ToUpper(key)]
	return ok
}

func (s *Store) read() (map[string]string, error) {
	values, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return values, nil
}

// write replaces the file through a rename so readers never see a partial file
func (s *Store) write(values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

func encodeValue(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case bool, float64, int, int64:
		return fmt.Sprint(value), nil
	case []string:
		return strings.Join(value, ","), nil
	case []interface{}:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			part, err := encodeValue(item)
			if err != nil {
				return "", err
			}
			if _, nested := item.([]interface{}); nested {
				return "", errors.New("nested lists are not supported")
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// Keys returns the sorted keys of values
func Keys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
