// Package search holds a visitor's search session: the current query, the
// page being shown, the last results and the status of the fetch that
// produced them.
package search

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/storage"
)

// User-facing messages.
const (
	FetchErrorMessage     = "Error fetching recipes. Please try again later."
	FavouriteSavedMessage = "Recipe added to favourites!"
)

var (
	// ErrSuperseded is returned by a fetch whose response arrived after a
	// newer fetch was issued. Its response is discarded.
	ErrSuperseded = errors.New("search: superseded by a newer request")

	// ErrPageOutOfRange is returned by GoToPage for pages outside
	// [1, TotalPages].
	ErrPageOutOfRange = errors.New("search: page out of range")
)

// Notifier shows a message to the visitor.
type Notifier interface {
	Notify(msg string)
}

// Snapshot is a consistent copy of a Session for rendering.
type Snapshot struct {
	Query        string
	Page         int
	TotalResults int
	TotalPages   int
	Results      []recipe.Summary
	Loading      bool
	Err          string
	// Searched is false until the first fetch completes.
	Searched bool
}

// HasPrevious reports whether a Previous control should be enabled.
func (s Snapshot) HasPrevious() bool { return s.Page > 1 }

// HasNext reports whether a Next control should be enabled.
func (s Snapshot) HasNext() bool { return s.Page < s.TotalPages }

// Session is the state of one visitor's search page. It is safe for
// concurrent use; fetches run outside the lock and only the most recently
// issued one may update the state.
type Session struct {
	searcher   recipe.Searcher
	favourites *storage.Collection[recipe.Favourite]
	notify     Notifier
	logger     echo.Logger

	mu       sync.Mutex
	query    string
	page     int
	total    int
	results  []recipe.Summary
	loading  bool
	errMsg   string
	searched bool
	token    uint64
	cancel   context.CancelFunc
}

// NewSession creates an empty session that searches with searcher and saves
// favourites into store.
func NewSession(searcher recipe.Searcher, store storage.Collections, notify Notifier, logger echo.Logger) *Session {
	if logger == nil {
		l := log.New("search")
		l.SetOutput(io.Discard)
		logger = l
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Session{
		searcher:   searcher,
		favourites: storage.Favourites(store, logger),
		notify:     notify,
		logger:     logger,
		page:       1,
		results:    []recipe.Summary{},
	}
}

// SubmitSearch starts a new search for query at page 1. An empty query is
// ignored. Remote failures are recorded in the session and returned.
func (s *Session) SubmitSearch(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}
	return s.fetch(ctx, query, 1)
}

// GoToPage fetches page n of the current query.
func (s *Session) GoToPage(ctx context.Context, n int) error {
	s.mu.Lock()
	query, total := s.query, s.total
	s.mu.Unlock()
	if query == "" {
		return nil
	}
	if !recipe.InRange(n, total) {
		return ErrPageOutOfRange
	}
	return s.fetch(ctx, query, n)
}

// NextPage moves one page forward unless already on the last page.
func (s *Session) NextPage(ctx context.Context) error {
	s.mu.Lock()
	query, page, last := s.query, s.page, recipe.TotalPages(s.total)
	s.mu.Unlock()
	if query == "" || page >= last {
		return nil
	}
	return s.fetch(ctx, query, page+1)
}

// PreviousPage moves one page back unless already on the first page.
func (s *Session) PreviousPage(ctx context.Context) error {
	s.mu.Lock()
	query, page := s.query, s.page
	s.mu.Unlock()
	if query == "" || page <= 1 {
		return nil
	}
	return s.fetch(ctx, query, page-1)
}

// fetch loads page of query. The session keeps showing its current query
// and page until the response arrives; a failed or cancelled fetch leaves
// them, and the results they describe, untouched.
func (s *Session) fetch(ctx context.Context, query string, page int) error {
	fctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.token++
	token := s.token
	s.cancel = cancel
	s.loading = true
	s.mu.Unlock()

	res, err := s.searcher.Search(fctx, recipe.SearchRequest{
		Query:  query,
		Number: recipe.PageSize,
		Offset: recipe.Offset(page),
	})
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Debugf("search: dropping stale response for %q page %d", query, page)
		return ErrSuperseded
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Debugf("search: fetch of %q page %d cancelled, keeping %q page %d", query, page, s.query, s.page)
			return ctx.Err()
		}
		s.searched = true
		s.errMsg = FetchErrorMessage
		s.logger.Errorf("search: fetching %q page %d: %v", query, page, err)
		return err
	}
	s.searched = true
	s.errMsg = ""
	s.query = query
	s.page = page
	s.results = res.Results
	if s.results == nil {
		s.results = []recipe.Summary{}
	}
	s.total = res.TotalResults
	return nil
}

// Result returns the summary with id from the current results.
func (s *Session) Result(id int) (recipe.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return recipe.Summary{}, false
}

// SaveFavourite appends a copy of r to the favourites collection and
// notifies the visitor. Saving the same recipe twice stores it twice.
func (s *Session) SaveFavourite(ctx context.Context, r recipe.Summary) error {
	if err := s.favourites.Append(ctx, r); err != nil {
		s.logger.Errorf("search: saving favourite %d: %v", r.ID, err)
		return err
	}
	s.notify.Notify(FavouriteSavedMessage)
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Query:        s.query,
		Page:         s.page,
		TotalResults: s.total,
		TotalPages:   recipe.TotalPages(s.total),
		Results:      append([]recipe.Summary(nil), s.results...),
		Loading:      s.loading,
		Err:          s.errMsg,
		Searched:     s.searched,
	}
}

// Close cancels any fetch in flight.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
