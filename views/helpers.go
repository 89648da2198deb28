package views

import (
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// SummaryLength is the number of characters of a summary shown on a card.
const SummaryLength = 100

// Excerpt returns the text content of an HTML summary, whitespace collapsed
// and cut to n characters with "..." appended when cut.
func Excerpt(summary string, n int) string {
	text := StripHTML(summary)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// StripHTML returns the text nodes of s joined with single spaces. Script
// and style content is dropped.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

// imageSrc resolves the src attribute for a remote image.
func (p Page) imageSrc(remote string) string {
	if p.ImageURL != nil {
		return p.ImageURL(remote)
	}
	return string(templ.URL(remote))
}

func (p Page) title() string {
	if p.Meta.Title == "" {
		return p.Site.Name
	}
	return p.Meta.Title + " | " + p.Site.Name
}

func (p Page) description() string {
	if p.Meta.Description != "" {
		return p.Meta.Description
	}
	return p.Site.Description
}

func withTitle(p Page, title string) Page {
	p.Meta.Title = title
	return p
}

// returnPath is where Cancel and a successful submit go back to.
func (f AddRecipeForm) returnPath() string {
	if f.Return == "" {
		return "/"
	}
	return f.Return
}
