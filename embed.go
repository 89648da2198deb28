package ratatouille

import "embed"

// EmbeddedAssets contains the site stylesheet served at /public/style.css.
//
//go:embed embedded/style.css
var EmbeddedAssets embed.FS
