package ratatouille

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/image/draw"
)

const (
	thumbWidth    = 480
	jpegQuality   = 80
	maxImageBytes = 8 << 20
	thumbCacheTTL = time.Hour
	maxRedirects  = 5
)

var errRedirectNotAllowed = errors.New("redirect target not allowed")

// Thumbnails fetches remote recipe images from a fixed set of hosts and
// serves them scaled down to card width.
type Thumbnails struct {
	hosts  []string
	client *http.Client
	cache  *cache.Cache
}

// NewThumbnails creates a proxy that fetches from hosts and their subdomains.
func NewThumbnails(hosts []string, timeout time.Duration) *Thumbnails {
	t := &Thumbnails{
		hosts: hosts,
		cache: cache.New(thumbCacheTTL, 10*time.Minute),
	}
	t.client = &http.Client{Timeout: timeout, CheckRedirect: t.checkRedirect}
	return t
}

// checkRedirect holds every redirect hop to the same host allowlist as the
// first request.
func (t *Thumbnails) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if _, ok := t.allowed(req.URL.String()); !ok {
		return fmt.Errorf("%w: %s", errRedirectNotAllowed, req.URL.Host)
	}
	return nil
}

// allowed parses src and reports whether the proxy may fetch it.
func (t *Thumbnails) allowed(src string) (*url.URL, bool) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, false
	}
	return u, hostAllowed(u.Hostname(), t.hosts)
}

// imageURL is the src a page uses for a remote image: the proxy for allowed
// hosts, the sanitized remote URL otherwise.
func (a *App) imageURL(remote string) string {
	if _, ok := a.thumbs.allowed(remote); ok {
		return "/img?src=" + url.QueryEscape(remote)
	}
	return string(templ.URL(remote))
}

func (a *App) handleImage(c echo.Context) error {
	src := c.QueryParam("src")
	u, ok := a.thumbs.allowed(src)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "image host not allowed")
	}
	if data, found := a.thumbs.cache.Get(u.String()); found {
		return c.Blob(http.StatusOK, "image/jpeg", data.([]byte))
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image url")
	}
	resp, err := a.thumbs.client.Do(req)
	if err != nil {
		c.Logger().Warnf("thumbnail: fetch %s: %v", u.Host, err)
		return echo.NewHTTPError(http.StatusBadGateway, "image unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, "image unavailable")
	}

	data, err := scaleImage(io.LimitReader(resp.Body, maxImageBytes), thumbWidth)
	if err != nil {
		c.Logger().Warnf("thumbnail: %s: %v", u.Host, err)
		return echo.NewHTTPError(http.StatusBadGateway, "image unavailable")
	}
	a.thumbs.cache.SetDefault(u.String(), data)
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// scaleImage decodes an image from src, shrinks it to width if wider, and
// encodes it as JPEG.
func scaleImage(src io.Reader, width int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > width {
		dst := image.NewRGBA(image.Rect(0, 0, width, h*width/w))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
