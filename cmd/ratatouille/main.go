package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/eringen/ratatouille"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("ratatouille %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg := ratatouille.SiteConfig{
		Name:               os.Getenv("SITE_NAME"),
		URL:                os.Getenv("SITE_URL"),
		Addr:               os.Getenv("ADDR"),
		DatabasePath:       os.Getenv("DATABASE_PATH"),
		SessionSecret:      ratatouille.MustEnv("SESSION_SECRET"),
		CookieSecure:       envBool("COOKIE_SECURE"),
		SpoonacularAPIKey:  ratatouille.MustEnv("SPOONACULAR_API_KEY"),
		SpoonacularBaseURL: os.Getenv("SPOONACULAR_BASE_URL"),
		RecipeInformation:  envBool("SPOONACULAR_RECIPE_INFO"),
		APIBurst:           envInt("API_BURST"),
		SearchLimit:        envInt("SEARCH_LIMIT"),
		LogLevel:           ratatouille.EnvOr("LOG_LEVEL", "info"),
	}
	var err error
	if cfg.APITimeout, err = envDuration("API_TIMEOUT"); err != nil {
		return err
	}
	if cfg.SearchCacheTTL, err = envDuration("SEARCH_CACHE_TTL"); err != nil {
		return err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("API_RATE"); v != "" {
		if cfg.APIRate, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("API_RATE: %w", err)
		}
	}
	if v := os.Getenv("IMAGE_HOSTS"); v != "" {
		cfg.ImageHosts = ratatouille.SplitList(v)
	}

	app := ratatouille.New(cfg)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	app.Echo.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func printUsage() {
	fmt.Println(`ratatouille - recipe search and bookmarking built with Go, Echo, and templ

Usage:
  ratatouille <command>

Commands:
  serve         Start the web server
  version       Print the ratatouille version
  help          Show this help message

Environment:
  SESSION_SECRET        cookie signing secret (required)
  SPOONACULAR_API_KEY   Spoonacular API key (required)
  SITE_NAME, SITE_URL, ADDR, DATABASE_PATH, COOKIE_SECURE
  SPOONACULAR_BASE_URL, SPOONACULAR_RECIPE_INFO, API_TIMEOUT, API_RATE, API_BURST
  SEARCH_CACHE_TTL, SESSION_TTL, SEARCH_LIMIT, IMAGE_HOSTS, LOG_LEVEL`)
}
