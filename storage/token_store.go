package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrTokenSealed  = errors.New("stored token is sealed but no secret is configured")
	ErrTokenCorrupt = errors.New("stored token cannot be decrypted")
)

const (
	sealedPrefix = "v1:"
	hkdfInfo     = "mob-esports token store"
)

// TokenStore persists the single credential the client holds between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a 0600 file. With a secret the token is
// sealed with XChaCha20-Poly1305.
type FileTokenStore struct {
	path string
	aead cipher.AEAD

	mu sync.Mutex
}

func NewFileTokenStore(path, secret string) (*FileTokenStore, error) {
	if path == "" {
		return nil, errors.New("token file path must not be empty")
	}
	s := &FileTokenStore{path: path}
	if secret == "" {
		return s, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init token cipher: %w", err)
	}
	s.aead = aead
	return s, nil
}

// Load returns "" without error when nothing is stored.
func (s *FileTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	content := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(content, sealedPrefix) {
		return content, nil
	}
	if s.aead == nil {
		return "", ErrTokenSealed
	}

	sealed, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(content, sealedPrefix))
	if err != nil || len(sealed) < s.aead.NonceSize() {
		return "", ErrTokenCorrupt
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrTokenCorrupt
	}
	return string(plain), nil
}

// Save replaces the stored token. An empty token clears it.
func (s *FileTokenStore) Save(token string) error {
	if token == "" {
		return s.Clear()
	}
	content := token
	if s.aead != nil {
		nonce := make([]byte, s.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		sealed := s.aead.Seal(nonce, nonce, []byte(token), nil)
		content = sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token in memory only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Save("")
}
