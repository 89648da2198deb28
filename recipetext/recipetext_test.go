package recipetext

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFormatInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"stir _gently_", "stir <em>gently</em>"},
		{"olive_oil", "olive_oil"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"salt & pepper", "salt &amp; pepper"},
		{"<script>", "&lt;script&gt;"},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input)
		if got != tt.expected {
			t.Errorf("FormatInline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineLinks(t *testing.T) {
	got := FormatInline("see [video](https://example.com/a_b_c)")
	want := `see <a href="https://example.com/a_b_c" target="_blank" rel="noopener noreferrer">video</a>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = FormatInline("[click](javascript:alert(1))")
	if strings.Contains(got, "href") {
		t.Errorf("unsafe link rendered: %q", got)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"/saved", "/saved"},
		{"#top", "#top"},
		{"mailto:chef@example.com", "mailto:chef@example.com"},
		{"//evil.example.com", ""},
		{"javascript:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitIngredients(t *testing.T) {
	got := SplitIngredients("2 eggs, 1 cup flour\n- milk;  ,salt")
	want := []string{"2 eggs", "1 cup flour", "milk", "salt"}
	if len(got) != len(want) {
		t.Fatalf("SplitIngredients = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRenderIngredients(t *testing.T) {
	var buf bytes.Buffer
	RenderIngredients(&buf, "eggs, **fresh** basil")
	want := `<ul class="ingredients"><li>eggs</li><li><strong>fresh</strong> basil</li></ul>`
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	RenderIngredients(&buf, " , ")
	if buf.Len() != 0 {
		t.Errorf("blank list rendered %q", buf.String())
	}
}

func TestRenderInstructions(t *testing.T) {
	input := "Prep first.\nWash hands.\n\n1. Boil water\n2) Add pasta\n\n- serve hot\n- enjoy"
	var buf bytes.Buffer
	RenderInstructions(&buf, input)
	want := `<p>Prep first.<br/>Wash hands.</p>` +
		`<ol class="steps"><li>Boil water</li><li>Add pasta</li></ol>` +
		`<ul><li>serve hot</li><li>enjoy</li></ul>`
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestInstructionsComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Instructions("Mix <b>well</b>").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); got != "<p>Mix &lt;b&gt;well&lt;/b&gt;</p>" {
		t.Errorf("got %q", got)
	}
}
