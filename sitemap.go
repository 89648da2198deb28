package ratatouille

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"path"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// publicPages are the pages worth indexing. Everything else is per visitor.
var publicPages = []string{"/", "/add-recipe"}

func (a *App) handleSitemap(c echo.Context) error {
	urls := make([]sitemapURL, 0, len(publicPages))
	for _, p := range publicPages {
		urls = append(urls, sitemapURL{Loc: absURL(a.Config.URL, p), ChangeFreq: "monthly"})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, "User-agent: *\nDisallow: /saved\nDisallow: /img\n\nSitemap: "+absURL(a.Config.URL, "/sitemap.xml")+"\n")
}

// absURL joins base and an absolute path.
func absURL(base, p string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + p
	}
	u.Path = path.Join("/", u.Path, p)
	return u.String()
}
