package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/watch"
)

type changes struct {
	mu  sync.Mutex
	ids []string
}

func (c *changes) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
}

func (c *changes) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

func jsonPages(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

func TestDir_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	got := &changes{}
	w, err := watch.NewDir(dir, jsonPages, got.add, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	path := filepath.Join(dir, "home.json")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"id":"home"}`), 0644); err != nil {
			t.Fatal(err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, ".home-123.tmp"), []byte("x"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	deadline := time.Now().Add(3 * time.Second)
	for len(got.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(250 * time.Millisecond)

	ids := got.snapshot()
	if len(ids) != 1 || ids[0] != "home" {
		t.Fatalf("changes = %v, want one [home]", ids)
	}
}

func TestNewDir_MissingDirectory(t *testing.T) {
	if _, err := watch.NewDir(filepath.Join(t.TempDir(), "nope"), jsonPages, func(string) {}, 0); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// stampStore serves pages whose UpdatedAt the test controls.
type stampStore struct {
	mu     sync.Mutex
	stamps map[string]time.Time
}

func (s *stampStore) LoadPage(_ context.Context, id string) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.stamps[id]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	return &domain.Page{ID: id, UpdatedAt: ts}, nil
}

func (s *stampStore) SavePage(context.Context, string, *domain.Page) error { return nil }

func (s *stampStore) touch(id string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[id] = ts
}

func TestPoller_ReportsChangedPages(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &stampStore{stamps: map[string]time.Time{"a": t0, "b": t0}}
	got := &changes{}
	p := watch.NewPoller(store, got.add, time.Hour)
	ctx := context.Background()

	p.Watch("a")
	p.Watch("b")
	p.Watch("gone")
	p.Check(ctx)
	if ids := got.snapshot(); len(ids) != 0 {
		t.Fatalf("first check should only record, got %v", ids)
	}

	store.touch("b", t0.Add(time.Second))
	p.Check(ctx)
	p.Check(ctx)
	if ids := got.snapshot(); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("changes = %v, want [b]", ids)
	}

	p.Unwatch("a")
	store.touch("a", t0.Add(time.Minute))
	p.Check(ctx)
	if ids := got.snapshot(); len(ids) != 1 {
		t.Errorf("unwatched page reported: %v", ids)
	}
}

func TestPoller_FollowsOpenPages(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &stampStore{stamps: map[string]time.Time{"a": t0, "b": t0}}
	got := &changes{}
	p := watch.NewPoller(store, got.add, time.Hour)
	ctx := context.Background()

	open := []string{"a"}
	p.Follow(func() []string { return open })
	p.Check(ctx)

	store.touch("a", t0.Add(time.Second))
	store.touch("b", t0.Add(time.Second))
	p.Check(ctx)
	if ids := got.snapshot(); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("changes = %v, want [a]", ids)
	}

	// b is seen for the first time here, so it is only recorded.
	open = []string{"b"}
	p.Check(ctx)
	store.touch("a", t0.Add(time.Minute))
	p.Check(ctx)
	if ids := got.snapshot(); len(ids) != 1 {
		t.Errorf("closed page reported: %v", ids)
	}
}
