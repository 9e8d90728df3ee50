package secret

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// MemoryStore keeps secrets in process memory, for tests and
// --secrets memory. Nothing survives the process.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// EnvStore reads secrets from environment variables named
// <prefix><KEY>, with the key upper-cased and non-alphanumerics turned
// into underscores. It is read-only: deployments set the variables.
type EnvStore struct {
	prefix string
}

func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix}
}

// VarName returns the variable a key is read from.
func (s *EnvStore) VarName(key string) string {
	var b strings.Builder
	b.WriteString(s.prefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(s.VarName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (s *EnvStore) Set(key string, _ []byte) error {
	return fmt.Errorf("env secret store is read-only: set %s instead", s.VarName(key))
}

func (s *EnvStore) Delete(string) error {
	return nil
}

// New returns the store named by kind: "keychain", "env" or "memory".
func New(kind, envPrefix string) (SecretStore, error) {
	switch kind {
	case "", "env":
		return NewEnvStore(envPrefix), nil
	case "keychain":
		return NewKeychainStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret store %q", kind)
	}
}
