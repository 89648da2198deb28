package ratatouille

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/spoonacular"
	"github.com/eringen/ratatouille/views"
)

// SiteConfig holds all configuration for a ratatouille site.
type SiteConfig struct {
	Name        string // Site name (default "Ratatouille Recipes")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Meta description

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default $XDG_DATA_HOME/ratatouille/recipes.db)

	SessionSecret string // Required: cookie signing secret
	CookieSecure  bool   // Set true for HTTPS

	SpoonacularAPIKey  string        // Required unless a searcher is injected
	SpoonacularBaseURL string        // default https://api.spoonacular.com
	RecipeInformation  bool          // ask the API for summaries and source links
	APITimeout         time.Duration // per remote call (default 15s)
	APIRate            float64       // remote calls per second, negative disables (default 1)
	APIBurst           int           // (default 3)
	SearchCacheTTL     time.Duration // remote response cache (default 10min)

	SessionTTL  time.Duration // idle visitor eviction (default 2h)
	SearchLimit int           // searches per IP per minute, negative disables (default 30)
	ImageHosts  []string      // hosts the thumbnail proxy fetches from
	LogLevel    string        // debug, info, warn, error, off (default info)
}

const dataDirName = "ratatouille"

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Ratatouille Recipes"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Description == "" {
		c.Description = "Search recipes, save your favourites and keep your own."
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(xdg.DataHome, dataDirName, "recipes.db")
	}
	if c.SpoonacularBaseURL == "" {
		c.SpoonacularBaseURL = spoonacular.DefaultBaseURL
	}
	if c.APITimeout == 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.APIRate == 0 {
		c.APIRate = 1
	}
	if c.APIBurst == 0 {
		c.APIBurst = 3
	}
	if c.SearchCacheTTL == 0 {
		c.SearchCacheTTL = 10 * time.Minute
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 2 * time.Hour
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = 30
	}
	if c.ImageHosts == nil {
		c.ImageHosts = []string{"spoonacular.com"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c SiteConfig) site() views.SiteConfig {
	return views.SiteConfig{Name: c.Name, URL: c.URL, Description: c.Description}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithSearcher replaces the Spoonacular client.
func WithSearcher(s recipe.Searcher) Option {
	return func(a *App) {
		a.searcher = s
	}
}
