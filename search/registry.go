package search

import (
	"io"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/patrickmn/go-cache"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/storage"
)

// Visitor is the server-side state of one browser.
type Visitor struct {
	ID      string
	Session *Session
	Notices *Notices
	// Store holds the visitor's persisted collections.
	Store storage.Collections
}

// Registry keeps visitors in memory and forgets them after a period of
// inactivity. Persisted collections outlive the registry entry.
type Registry struct {
	searcher recipe.Searcher
	scope    func(owner string) storage.Collections
	logger   echo.Logger

	mu       sync.Mutex
	visitors *cache.Cache
}

// NewRegistry creates a Registry. scope returns the persisted collections of
// a visitor id; ttl is the inactivity timeout.
func NewRegistry(searcher recipe.Searcher, scope func(owner string) storage.Collections, ttl time.Duration, logger echo.Logger) *Registry {
	if logger == nil {
		l := log.New("search")
		l.SetOutput(io.Discard)
		logger = l
	}
	cleanup := time.Minute
	if ttl < cleanup {
		cleanup = ttl
	}
	r := &Registry{
		searcher: searcher,
		scope:    scope,
		logger:   logger,
		visitors: cache.New(ttl, cleanup),
	}
	r.visitors.OnEvicted(func(id string, v interface{}) {
		v.(*Visitor).Session.Close()
		r.logger.Debugf("search: visitor %s expired", id)
	})
	return r
}

// Get returns the visitor with id, creating it on first use. Every call
// restarts the visitor's inactivity timer.
func (r *Registry) Get(id string) *Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.visitors.Get(id); ok {
		r.visitors.SetDefault(id, v)
		return v.(*Visitor)
	}
	store := r.scope(id)
	notices := &Notices{}
	v := &Visitor{
		ID:      id,
		Session: NewSession(r.searcher, store, notices, r.logger),
		Notices: notices,
		Store:   store,
	}
	r.visitors.SetDefault(id, v)
	return v
}

// Len reports the number of visitors held in memory.
func (r *Registry) Len() int {
	return r.visitors.ItemCount()
}

// Close cancels every fetch in flight and forgets all visitors.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.visitors.Items() {
		item.Object.(*Visitor).Session.Close()
	}
	r.visitors.Flush()
}
