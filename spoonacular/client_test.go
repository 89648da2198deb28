package spoonacular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eringen/ratatouille/recipe"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRateLimit(0, 0)}, opts...)
	return New("test-key", opts...)
}

func TestSearchQueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipes/complexSearch" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"apiKey": "test-key",
			"query":  "pasta bake",
			"number": "10",
			"offset": "20",
		}
		for k, v := range want {
			if got := q.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if q.Has("addRecipeInformation") {
			t.Error("addRecipeInformation should not be sent by default")
		}
		fmt.Fprint(w, `{"results":[{"id":1,"title":"Pasta Bake","image":"https://img.spoonacular.com/1.jpg"}],"totalResults":25}`)
	})

	page, err := c.Search(context.Background(), recipe.SearchRequest{Query: "pasta bake", Offset: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalResults != 25 {
		t.Errorf("TotalResults = %d, want 25", page.TotalResults)
	}
	if len(page.Results) != 1 || page.Results[0].Title != "Pasta Bake" {
		t.Errorf("Results = %+v", page.Results)
	}
}

func TestSearchRecipeInformation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("addRecipeInformation") != "true" {
			t.Error("addRecipeInformation=true expected")
		}
		fmt.Fprint(w, `{"results":[],"totalResults":0}`)
	}, WithRecipeInformation(true))

	if _, err := c.Search(context.Background(), recipe.SearchRequest{Query: "soup"}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestSearchNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	_, err := c.Search(context.Background(), recipe.SearchRequest{Query: "pasta"})
	var apiErr *recipe.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode = %d, want 402", apiErr.StatusCode)
	}
	if apiErr.Message != "quota exceeded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestSearchMissingFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	page, err := c.Search(context.Background(), recipe.SearchRequest{Query: "pasta"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Results == nil || len(page.Results) != 0 || page.TotalResults != 0 {
		t.Errorf("page = %+v, want empty results", page)
	}
}

func TestSearchMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>`)
	})

	if _, err := c.Search(context.Background(), recipe.SearchRequest{Query: "pasta"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchTransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New("secret-key", WithBaseURL(base), WithRateLimit(0, 0))
	_, err := c.Search(context.Background(), recipe.SearchRequest{Query: "pasta"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks api key: %v", err)
	}
}

func TestSearchCache(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"results":[{"id":1,"title":"Pasta"}],"totalResults":1}`)
	}, WithCacheTTL(time.Minute))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Search(ctx, recipe.SearchRequest{Query: "pasta"}); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if _, err := c.Search(ctx, recipe.SearchRequest{Query: "pasta", Offset: 10}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestSearchHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, recipe.SearchRequest{Query: "pasta"})
	if err == nil {
		t.Fatal("expected context error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
