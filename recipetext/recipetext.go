// Package recipetext renders the free text of a visitor's own recipes
// (ingredient lists and cooking steps) as escaped HTML with a small amount
// of inline formatting.
package recipetext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`(^|\s)_([^_]+)_`)
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reStep             = regexp.MustCompile(`^(\d+)[.)]\s+`)
	reBullet           = regexp.MustCompile(`^[-*•]\s+`)
)

// Ingredients returns a component rendering a comma or newline separated
// ingredient list as <ul>.
func Ingredients(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderIngredients(&buf, s)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Instructions returns a component rendering cooking instructions.
func Instructions(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderInstructions(&buf, s)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// SplitIngredients splits s on commas and newlines, dropping blanks and any
// leading bullet marker.
func SplitIngredients(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(reBullet.ReplaceAllString(strings.TrimSpace(f), ""))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// RenderIngredients writes the HTML list for s to buf.
func RenderIngredients(buf *bytes.Buffer, s string) {
	items := SplitIngredients(s)
	if len(items) == 0 {
		return
	}
	buf.WriteString(`<ul class="ingredients">`)
	for _, it := range items {
		buf.WriteString("<li>" + FormatInline(it) + "</li>")
	}
	buf.WriteString("</ul>")
}

// RenderInstructions writes the HTML for s to buf. Lines starting with
// "1." or "1)" become an ordered list, lines starting with "-" or "*" a
// bullet list, and other runs of lines paragraphs.
func RenderInstructions(buf *bytes.Buffer, s string) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	inSteps := false
	inList := false
	inPara := false

	closeBlocks := func() {
		if inSteps {
			buf.WriteString("</ol>")
			inSteps = false
		}
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
		if inPara {
			buf.WriteString("</p>")
			inPara = false
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			closeBlocks()
		case reStep.MatchString(line):
			if !inSteps {
				closeBlocks()
				buf.WriteString(`<ol class="steps">`)
				inSteps = true
			}
			buf.WriteString("<li>" + FormatInline(reStep.ReplaceAllString(line, "")) + "</li>")
		case reBullet.MatchString(line):
			if !inList {
				closeBlocks()
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>" + FormatInline(reBullet.ReplaceAllString(line, "")) + "</li>")
		default:
			if inSteps || inList {
				closeBlocks()
			}
			if inPara {
				buf.WriteString("<br/>")
			} else {
				buf.WriteString("<p>")
				inPara = true
			}
			buf.WriteString(FormatInline(line))
		}
	}
	closeBlocks()
}

// ApplyOutsideTags calls fn on the text segments of s that are not inside
// an HTML tag.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		buf.WriteString(fn(s[:lt]))
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// FormatInline escapes s and applies bold, italic and link formatting.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `" target="_blank" rel="noopener noreferrer">` + match[1] + `</a>`
	})
	return ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "$1<em>$2</em>")
		return seg
	})
}

// SafeURL validates and sanitizes a URL for use in HTML attributes. It
// returns "" for anything other than relative, http(s), mailto or tel URLs.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if (strings.HasPrefix(val, "/") && !strings.HasPrefix(val, "//")) || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
