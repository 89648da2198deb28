package ratatouille

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/eringen/ratatouille/cookbook"
	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/search"
)

// stubSearcher serves 25 results for any query unless fail is set.
type stubSearcher struct {
	mu       sync.Mutex
	requests []recipe.SearchRequest
	fail     error
}

func (s *stubSearcher) Search(ctx context.Context, req recipe.SearchRequest) (recipe.SearchPage, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return recipe.SearchPage{}, fail
	}
	const total = 25
	var results []recipe.Summary
	for i := req.Offset; i < req.Offset+req.Number && i < total; i++ {
		results = append(results, recipe.Summary{
			ID:        i + 1,
			Title:     fmt.Sprintf("%s %d", req.Query, i+1),
			Summary:   fmt.Sprintf("<b>%s</b> number %d is tasty", req.Query, i+1),
			SourceURL: fmt.Sprintf("https://example.com/recipes/%d", i+1),
		})
	}
	return recipe.SearchPage{Results: results, TotalResults: total}, nil
}

func (s *stubSearcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubSearcher) lastRequest() recipe.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type testSite struct {
	app      *App
	server   *httptest.Server
	searcher *stubSearcher
}

func setupTestSite(t *testing.T, cfg SiteConfig) *testSite {
	t.Helper()
	cfg.SessionSecret = "test-secret"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "recipes.db")
	cfg.LogLevel = "off"
	searcher := &stubSearcher{}
	a := New(cfg, WithSearcher(searcher))
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	srv := httptest.NewServer(a.Echo)
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return &testSite{app: a, server: srv, searcher: searcher}
}

// newBrowser returns a client with its own cookie jar, i.e. a new visitor.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func (s *testSite) get(t *testing.T, c *http.Client, path string) (int, string) {
	t.Helper()
	resp, err := c.Get(s.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, string(body)
}

var csrfRe = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

// post submits a form the way a browser would: it loads a page first to get
// a CSRF token, then follows the redirect of the submit.
func (s *testSite) post(t *testing.T, c *http.Client, path string, form url.Values) (int, string) {
	t.Helper()
	_, page := s.get(t, c, "/")
	m := csrfRe.FindStringSubmatch(page)
	if m == nil {
		t.Fatalf("no CSRF token on the search page")
	}
	form.Set("_csrf", m[1])
	resp, err := c.PostForm(s.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, string(body)
}

func TestSearchPageInitialRender(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	code, body := site.get(t, newBrowser(t), "/")

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	for _, want := range []string{
		"RATATOUILLE RECIPES",
		`action="/search"`,
		`name="q"`,
		"No recipes found.",
		`href="/add-recipe"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestPastaScenario(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	code, body := site.post(t, browser, "/search", url.Values{"q": {"  pasta  "}})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	req := site.searcher.lastRequest()
	if req.Query != "pasta" || req.Offset != 0 || req.Number != 10 {
		t.Errorf("request = %+v, want pasta offset 0 number 10", req)
	}
	if n := strings.Count(body, `class="recipe-card"`); n != 10 {
		t.Errorf("cards = %d, want 10", n)
	}
	if !strings.Contains(body, "Page 1 of 3") {
		t.Errorf("page missing %q", "Page 1 of 3")
	}
	if !strings.Contains(body, `value="prev" disabled`) {
		t.Errorf("Previous should be disabled on page 1")
	}
	if strings.Contains(body, `value="next" disabled`) {
		t.Errorf("Next should be enabled on page 1")
	}
	if !strings.Contains(body, "pasta number 1 is tasty") {
		t.Errorf("summary should be rendered without markup")
	}

	_, body = site.post(t, browser, "/page", url.Values{"dir": {"next"}})
	if req := site.searcher.lastRequest(); req.Offset != 10 {
		t.Errorf("offset after Next = %d, want 10", req.Offset)
	}
	if !strings.Contains(body, "Page 2 of 3") {
		t.Errorf("page missing %q", "Page 2 of 3")
	}

	_, body = site.post(t, browser, "/page", url.Values{"n": {"3"}})
	if req := site.searcher.lastRequest(); req.Offset != 20 {
		t.Errorf("offset on page 3 = %d, want 20", req.Offset)
	}
	if n := strings.Count(body, `class="recipe-card"`); n != 5 {
		t.Errorf("cards on last page = %d, want 5", n)
	}
	if !strings.Contains(body, `value="next" disabled`) {
		t.Errorf("Next should be disabled on the last page")
	}
}

func TestPageOutOfRangeRejected(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	site.post(t, browser, "/search", url.Values{"q": {"pasta"}})
	before := site.searcher.count()
	code, _ := site.post(t, browser, "/page", url.Values{"n": {"9"}})
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
	if after := site.searcher.count(); after != before {
		t.Errorf("out of range page issued %d requests", after-before)
	}
}

func TestSearchErrorShown(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	site.searcher.fail = &recipe.APIError{API: "spoonacular", StatusCode: 500, Message: "boom"}

	code, body := site.post(t, newBrowser(t), "/search", url.Values{"q": {"pasta"}})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !strings.Contains(body, search.FetchErrorMessage) {
		t.Errorf("page missing error message")
	}
	if strings.Contains(body, `class="recipe-card"`) || strings.Contains(body, `class="loader"`) {
		t.Errorf("error page should show neither cards nor loader")
	}
}

func TestSaveFavouriteTwice(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	site.post(t, browser, "/search", url.Values{"q": {"pasta"}})
	_, body := site.post(t, browser, "/favourites", url.Values{"id": {"1"}})
	if !strings.Contains(body, search.FavouriteSavedMessage) {
		t.Errorf("page missing %q notice", search.FavouriteSavedMessage)
	}
	site.post(t, browser, "/favourites", url.Values{"id": {"1"}})

	_, saved := site.get(t, browser, "/saved")
	if n := strings.Count(saved, "<h3>pasta 1</h3>"); n != 2 {
		t.Errorf("saved copies = %d, want 2", n)
	}
	if !strings.Contains(saved, `href="https://example.com/recipes/1"`) {
		t.Errorf("saved card missing source link")
	}
}

func TestSaveUnknownFavouriteRejected(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	code, _ := site.post(t, newBrowser(t), "/favourites", url.Values{"id": {"42"}})
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestVisitorsDoNotShareFavourites(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	alice, bob := newBrowser(t), newBrowser(t)

	site.post(t, alice, "/search", url.Values{"q": {"pasta"}})
	site.post(t, alice, "/favourites", url.Values{"id": {"2"}})

	_, body := site.get(t, bob, "/saved")
	if strings.Contains(body, "pasta 2") {
		t.Errorf("bob sees alice's favourite")
	}
	if !strings.Contains(body, "No favourites yet.") {
		t.Errorf("bob's saved page should be empty")
	}
	_, home := site.get(t, bob, "/")
	if strings.Contains(home, `class="recipe-card"`) {
		t.Errorf("bob sees alice's search results")
	}
}

func TestAddRecipeMissingFieldWritesNothing(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	code, body := site.post(t, browser, "/add-recipe", url.Values{
		"title":        {"Toast"},
		"ingredients":  {"bread, butter"},
		"instructions": {"   "},
	})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", code)
	}
	if !strings.Contains(body, cookbook.RequiredFieldsMessage) {
		t.Errorf("page missing %q", cookbook.RequiredFieldsMessage)
	}
	if !strings.Contains(body, `value="Toast"`) {
		t.Errorf("form should keep the submitted title")
	}

	_, saved := site.get(t, browser, "/saved")
	if !strings.Contains(saved, "You have not added any recipes yet.") {
		t.Errorf("a recipe was written despite the missing field")
	}
}

func TestAddRecipeReturnsToOrigin(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	code, body := site.post(t, browser, "/add-recipe", url.Values{
		"title":        {"Toast"},
		"ingredients":  {"bread, butter"},
		"instructions": {"1. Toast the bread\n2. Butter it"},
		"return":       {"/saved"},
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	for _, want := range []string{
		cookbook.RecipeAddedMessage,
		"<h3>Toast</h3>",
		"<li>bread</li>",
		"<li>Toast the bread</li>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("saved page missing %q", want)
		}
	}
}

func TestAddRecipeFormCancelUsesReferrer(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	req, _ := http.NewRequest(http.MethodGet, site.server.URL+"/add-recipe", nil)
	req.Header.Set("Referer", site.server.URL+"/saved")
	resp, err := browser.Do(req)
	if err != nil {
		t.Fatalf("GET /add-recipe: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `name="return" value="/saved"`) {
		t.Errorf("return field should carry the referrer path")
	}
	if !strings.Contains(string(body), "Ingredients (comma-separated)") {
		t.Errorf("form missing ingredients field")
	}
}

func TestPostWithoutCSRFTokenForbidden(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	resp, err := newBrowser(t).PostForm(site.server.URL+"/search", url.Values{"q": {"pasta"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if n := site.searcher.count(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestSearchLimitPerIP(t *testing.T) {
	site := setupTestSite(t, SiteConfig{SearchLimit: 1})
	browser := newBrowser(t)

	if code, _ := site.post(t, browser, "/search", url.Values{"q": {"pasta"}}); code != http.StatusOK {
		t.Fatalf("first search status = %d, want 200", code)
	}
	if code, _ := site.post(t, browser, "/search", url.Values{"q": {"soup"}}); code != http.StatusTooManyRequests {
		t.Errorf("second search status = %d, want 429", code)
	}
}

func TestNotFoundPage(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	code, body := site.get(t, newBrowser(t), "/no-such-page")
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
	if !strings.Contains(body, "Page not found") {
		t.Errorf("body missing not found message")
	}
}

func TestHealthAndStylesheet(t *testing.T) {
	site := setupTestSite(t, SiteConfig{})
	browser := newBrowser(t)

	if code, body := site.get(t, browser, "/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", code, body)
	}
	if code, body := site.get(t, browser, "/public/style.css"); code != http.StatusOK || !strings.Contains(body, ".recipe-card") {
		t.Errorf("stylesheet = %d", code)
	}
}

func TestSetupRequiresSecrets(t *testing.T) {
	if err := New(SiteConfig{LogLevel: "off"}).Setup(); err == nil {
		t.Errorf("expected error without a session secret")
	}
	cfg := SiteConfig{SessionSecret: "s", LogLevel: "off", DatabasePath: filepath.Join(t.TempDir(), "x.db")}
	if err := New(cfg).Setup(); err == nil {
		t.Errorf("expected error without an API key")
	}
}

func TestSitemapAndRobots(t *testing.T) {
	site := setupTestSite(t, SiteConfig{URL: "https://recipes.example.com"})
	browser := newBrowser(t)

	code, body := site.get(t, browser, "/sitemap.xml")
	if code != http.StatusOK {
		t.Fatalf("sitemap status = %d", code)
	}
	for _, want := range []string{
		"<loc>https://recipes.example.com/</loc>",
		"<loc>https://recipes.example.com/add-recipe</loc>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %q", want)
		}
	}
	if strings.Contains(body, "/saved") {
		t.Errorf("sitemap should not list per-visitor pages")
	}

	_, robots := site.get(t, browser, "/robots.txt")
	if !strings.Contains(robots, "Sitemap: https://recipes.example.com/sitemap.xml") {
		t.Errorf("robots.txt missing sitemap line:\n%s", robots)
	}
}
