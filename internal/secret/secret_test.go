package secret

import "testing"

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	key := ConnectionKey("c1")

	if v, err := s.Get(key); v != nil || err != nil {
		t.Fatalf("expected empty, got %q %v", v, err)
	}
	buf := []byte("hunter2")
	_ = s.Set(key, buf)
	buf[0] = 'X'

	v, _ := s.Get(key)
	if string(v) != "hunter2" {
		t.Errorf("Get = %q, store should copy its input", v)
	}
	_ = s.Delete(key)
	if v, _ := s.Get(key); v != nil {
		t.Error("value survived delete")
	}
}

func TestEnvStore(t *testing.T) {
	s := NewEnvStore("PAGEBUILDER_SECRET_")
	key := ConnectionKey("conn-42")

	if got := s.VarName(key); got != "PAGEBUILDER_SECRET_DB_CONNECTION_CONN_42" {
		t.Fatalf("VarName = %s", got)
	}
	t.Setenv(s.VarName(key), "pw")

	v, err := s.Get(key)
	if err != nil || string(v) != "pw" {
		t.Errorf("Get = %q, %v", v, err)
	}
	if err := s.Set(key, []byte("x")); err == nil {
		t.Error("env store should be read-only")
	}
	if v, _ := s.Get(ConnectionKey("other")); v != nil {
		t.Error("unset variable should read as empty")
	}
}

func TestNew(t *testing.T) {
	for _, kind := range []string{"", "env", "keychain", "memory"} {
		if _, err := New(kind, "P_"); err != nil {
			t.Errorf("New(%q): %v", kind, err)
		}
	}
	if _, err := New("vault", "P_"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

type fakeTool struct {
	items map[string][]byte
}

func (f *fakeTool) set(service, account string, v []byte) error {
	f.items[service+"/"+account] = v
	return nil
}

func (f *fakeTool) get(service, account string) ([]byte, bool, error) {
	v, ok := f.items[service+"/"+account]
	return v, ok, nil
}

func (f *fakeTool) delete(service, account string) error {
	delete(f.items, service+"/"+account)
	return nil
}

func TestKeychainStore(t *testing.T) {
	tool := &fakeTool{items: map[string][]byte{}}
	k := &KeychainStore{service: KeychainService, tool: tool}
	key := ConnectionKey("c9")

	if v, err := k.Get(key); v != nil || err != nil {
		t.Fatalf("missing item: %q %v", v, err)
	}
	if err := k.Set(key, []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if _, ok := tool.items[KeychainService+"/db-connection:c9"]; !ok {
		t.Fatalf("items = %v", tool.items)
	}
	if v, _ := k.Get(key); string(v) != "pw" {
		t.Errorf("Get = %q", v)
	}
	_ = k.Delete(key)
	if v, _ := k.Get(key); v != nil {
		t.Error("value survived delete")
	}
}
