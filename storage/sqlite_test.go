package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/eringen/ratatouille/recipe"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test_recipes.db")

	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		s.Close()
	}

	return s, cleanup
}

func TestNewStore(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := s.Scope("visitor-1").Get(context.Background(), FavouritesKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get on missing key = %v, want empty collection", got)
	}
}

func TestAppendAndGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scope := s.Scope("visitor-1")

	pasta := recipe.Summary{ID: 1, Title: "Pasta"}
	if err := scope.Append(ctx, FavouritesKey, pasta); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := scope.Append(ctx, FavouritesKey, pasta); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	got, err := scope.Get(ctx, FavouritesKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Get count = %d, want 2 (no dedup)", len(got))
	}
	var first recipe.Summary
	if err := json.Unmarshal(got[0], &first); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if first != pasta {
		t.Errorf("entry = %+v, want %+v", first, pasta)
	}
}

func TestScopesAreIsolated(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Scope("alice").Append(ctx, FavouritesKey, recipe.Summary{ID: 1, Title: "Pasta"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got, err := s.Scope("bob").Get(ctx, FavouritesKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("bob sees %d favourites, want 0", len(got))
	}
}

func TestMalformedCollection(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scope := s.Scope("visitor-1")

	if err := s.writeBody(ctx, "visitor-1", FavouritesKey, []byte("{not json")); err != nil {
		t.Fatalf("writeBody failed: %v", err)
	}

	got, err := scope.Get(ctx, FavouritesKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("malformed collection should read as empty, got %d entries", len(got))
	}

	if err := scope.Append(ctx, FavouritesKey, recipe.Summary{ID: 3, Title: "Soup"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	body, err := s.readBody(ctx, "visitor-1", FavouritesKey)
	if err != nil {
		t.Fatalf("readBody failed: %v", err)
	}
	var entries []recipe.Summary
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("stored body is not a JSON array: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 3 {
		t.Errorf("entries = %+v, want single Soup entry", entries)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scope := s.Scope("visitor-1")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := scope.Append(ctx, FavouritesKey, recipe.Summary{ID: id + 1, Title: "r"}); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := scope.Get(ctx, FavouritesKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != n {
		t.Errorf("Get count = %d, want %d", len(got), n)
	}
}
