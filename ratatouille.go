// Package ratatouille is a recipe search and bookmarking site built with Go,
// Echo, and templ. It searches the Spoonacular API ten results at a time and
// lets every visitor keep favourites and their own recipes.
package ratatouille

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/search"
	"github.com/eringen/ratatouille/spoonacular"
	"github.com/eringen/ratatouille/storage"
)

// App wires together the store, the remote searcher, the visitor registry,
// handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *storage.Store
	Visitors *search.Registry

	searcher      recipe.Searcher
	searchLimiter *SearchLimiter
	thumbs        *Thumbnails
	customRoutes  []func(*App)
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(parseLevel(cfg.LogLevel))

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store and registers middleware and routes without
// starting the listener.
func (a *App) Setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("ratatouille: SessionSecret is required")
	}
	logger := a.Echo.Logger

	if a.searcher == nil {
		if a.Config.SpoonacularAPIKey == "" {
			return fmt.Errorf("ratatouille: SpoonacularAPIKey is required")
		}
		a.searcher = spoonacular.New(a.Config.SpoonacularAPIKey,
			spoonacular.WithBaseURL(a.Config.SpoonacularBaseURL),
			spoonacular.WithTimeout(a.Config.APITimeout),
			spoonacular.WithRateLimit(a.Config.APIRate, a.Config.APIBurst),
			spoonacular.WithCacheTTL(a.Config.SearchCacheTTL),
			spoonacular.WithRecipeInformation(a.Config.RecipeInformation),
			spoonacular.WithLogger(logger),
		)
	}

	store, err := storage.NewStore(a.Config.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("ratatouille: init store: %w", err)
	}
	a.Store = store

	a.Visitors = search.NewRegistry(a.searcher, func(owner string) storage.Collections {
		return store.Scope(owner)
	}, a.Config.SessionTTL, logger)

	a.searchLimiter = NewSearchLimiter(a.Config.SearchLimit, time.Minute)
	a.thumbs = NewThumbnails(a.Config.ImageHosts, a.Config.APITimeout)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealth)
	e.GET("/img", a.handleImage)

	e.GET("/", a.handleHome)
	e.POST("/search", a.handleSearch)
	e.POST("/page", a.handlePage)
	e.POST("/favourites", a.handleSaveFavourite)
	e.GET("/add-recipe", a.handleAddRecipeForm)
	e.POST("/add-recipe", a.handleAddRecipe)
	e.GET("/saved", a.handleSaved)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Visitors != nil {
		a.Visitors.Close()
	}
	if a.searchLimiter != nil {
		a.searchLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("ratatouille: required environment variable %s is not set", key)
	}
	return v
}

func parseLevel(s string) glog.Lvl {
	switch s {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	default:
		return glog.INFO
	}
}
