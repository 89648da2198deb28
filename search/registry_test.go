package search

import (
	"context"
	"testing"
	"time"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/storage"
)

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, map[string]*storage.Memory) {
	t.Helper()
	stores := map[string]*storage.Memory{}
	scope := func(owner string) storage.Collections {
		m, ok := stores[owner]
		if !ok {
			m = storage.NewMemory()
			stores[owner] = m
		}
		return m
	}
	r := NewRegistry(pastaSearcher(), scope, ttl, nil)
	t.Cleanup(r.Close)
	return r, stores
}

func TestRegistryReturnsSameVisitor(t *testing.T) {
	r, _ := newTestRegistry(t, time.Hour)

	a := r.Get("visitor-a")
	if again := r.Get("visitor-a"); again != a {
		t.Fatalf("Get returned a different visitor for the same id")
	}
	if b := r.Get("visitor-b"); b == a {
		t.Fatalf("Get returned the same visitor for different ids")
	}
	if n := r.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestRegistryVisitorsAreIsolated(t *testing.T) {
	ctx := context.Background()
	r, stores := newTestRegistry(t, time.Hour)

	a := r.Get("visitor-a")
	if err := a.Session.SubmitSearch(ctx, "pasta"); err != nil {
		t.Fatalf("SubmitSearch failed: %v", err)
	}
	first, _ := a.Session.Result(1)
	if err := a.Session.SaveFavourite(ctx, first); err != nil {
		t.Fatalf("SaveFavourite failed: %v", err)
	}

	b := r.Get("visitor-b")
	if snap := b.Session.Snapshot(); snap.Query != "" || len(snap.Results) != 0 {
		t.Errorf("visitor-b sees visitor-a's search: %+v", snap)
	}
	if raw := stores["visitor-b"].Raw(storage.FavouritesKey); raw != nil {
		t.Errorf("visitor-b favourites = %s, want none", raw)
	}
	if msgs := b.Notices.Drain(); len(msgs) != 0 {
		t.Errorf("visitor-b notices = %v, want none", msgs)
	}
	if msgs := a.Notices.Drain(); len(msgs) != 1 || msgs[0] != FavouriteSavedMessage {
		t.Errorf("visitor-a notices = %v", msgs)
	}
}

func TestRegistryExpiresIdleVisitors(t *testing.T) {
	r, _ := newTestRegistry(t, 50*time.Millisecond)

	a := r.Get("visitor-a")
	time.Sleep(120 * time.Millisecond)

	if again := r.Get("visitor-a"); again == a {
		t.Fatalf("expected a fresh visitor after the inactivity timeout")
	}
}

func TestRegistryCloseCancelsFetches(t *testing.T) {
	started := make(chan struct{})
	fs := &fakeSearcher{respond: func(ctx context.Context, req recipe.SearchRequest) (recipe.SearchPage, error) {
		close(started)
		<-ctx.Done()
		return recipe.SearchPage{}, ctx.Err()
	}}
	r := NewRegistry(fs, func(string) storage.Collections { return storage.NewMemory() }, time.Hour, nil)

	v := r.Get("visitor-a")
	done := make(chan error, 1)
	go func() { done <- v.Session.SubmitSearch(context.Background(), "pasta") }()
	<-started
	r.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not cancelled by Close")
	}
	if n := r.Len(); n != 0 {
		t.Errorf("Len after Close = %d, want 0", n)
	}
}
