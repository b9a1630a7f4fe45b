package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/repository"
)

var (
	_ repository.CredentialBackend = (*MemoryBackend)(nil)
	_ repository.CredentialBackend = (*FileBackend)(nil)
)

// MemoryBackend keeps a pair for as long as the value lives. Tests share one
// instance between two Stores to simulate a restart over the same scope.
type MemoryBackend struct {
	mu   sync.Mutex
	cred *model.Credential
}

func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (m *MemoryBackend) Load(ctx context.Context) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return model.Credential{}, domain.ErrNotFound
	}
	return *m.cred, nil
}

func (m *MemoryBackend) Save(ctx context.Context, c model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.cred = &cp
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}

// FileBackend stores the pair as a 0600 YAML file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend { return &FileBackend{path: path} }

// EphemeralPath lives in the OS temp dir, which does not outlive the login session.
func EphemeralPath(namespace string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("verifyctl-%d", os.Getuid()), "credential-"+namespace+".yaml")
}

// DurablePath lives under dir, or the user config dir when dir is empty.
func DurablePath(dir, namespace string) (string, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "verifyctl")
	}
	return filepath.Join(dir, "credential-"+namespace+".yaml"), nil
}

func (f *FileBackend) Load(ctx context.Context) (model.Credential, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Credential{}, domain.ErrNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("read credential: %w", err)
	}
	var c model.Credential
	if err := yaml.Unmarshal(b, &c); err != nil {
		return model.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	if !c.Valid() {
		return model.Credential{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *FileBackend) Save(ctx context.Context, c model.Credential) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileBackend) Delete(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
