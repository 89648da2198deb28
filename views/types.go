package views

// SiteConfig holds site-wide settings populated from environment variables.
// Every handler passes this to templates so nothing is hardcoded.
type SiteConfig struct {
	Name        string // SITE_NAME  (default "Ratatouille Recipes")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
}

// PageMeta carries per-page metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical
}

// Page is what every full-page component receives.
type Page struct {
	Site SiteConfig
	Meta PageMeta
	// CSRF is the token echoed back by every form.
	CSRF string
	// Notices are shown as a modal before the page content.
	Notices []string
	// ImageURL maps a remote image URL to the URL the page should load.
	// Nil means use the remote URL directly.
	ImageURL func(string) string
}

// AddRecipeForm holds the values shown in the add-recipe form.
type AddRecipeForm struct {
	Title        string
	Ingredients  string
	Instructions string
	// Return is where Cancel and a successful submit go back to.
	Return string
}
