package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"flashcards-client/internal/session/domain/repository"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCorruptStore is returned when the store file cannot be opened or parsed.
var ErrCorruptStore = errors.New("storage file is corrupt or sealed with a different key")

// FileStorage persists all keys as one JSON document. With a key configured the
// document is sealed with XChaCha20-Poly1305 and the random nonce is prepended.
type FileStorage struct {
	mu   sync.Mutex
	path string
	aead cipher.AEAD
}

// NewFileStorage creates a store at path. key must be nil or exactly 32 bytes.
func NewFileStorage(path string, key []byte) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("storage file path cannot be empty")
	}

	s := &FileStorage{path: path}
	if len(key) > 0 {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("invalid storage encryption key: %w", err)
		}
		s.aead = aead
	}
	return s, nil
}

func (s *FileStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", repository.ErrKeyNotFound
	}
	return value, nil
}

func (s *FileStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		// An unreadable store is replaced rather than blocking every write.
		values = make(map[string]string)
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStorage) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		values = make(map[string]string)
	}
	for _, key := range keys {
		delete(values, key)
	}
	return s.save(values)
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if s.aead != nil {
		nonceSize := s.aead.NonceSize()
		if len(data) < nonceSize {
			return nil, ErrCorruptStore
		}
		data, err = s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
		if err != nil {
			return nil, ErrCorruptStore
		}
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, ErrCorruptStore
	}
	return values, nil
}

// save writes to a temp file in the same directory and renames it over the store.
func (s *FileStorage) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}

	if s.aead != nil {
		nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(data)+s.aead.Overhead())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		data = s.aead.Seal(nonce, nonce, data, nil)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set storage file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close storage file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
