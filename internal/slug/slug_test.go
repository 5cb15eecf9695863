package slug

import "testing"

func TestMarked(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Section One", "Section-One"},
		{"  Hello,   World!  ", "Hello-World"},
		{"Café Crème", "Cafe-Creme"},
		{"Straße", "Strasse"},
		{"a <em>b</em> c", "a-b-c"},
		{"Tom &amp; Jerry", "Tom-Jerry"},
		{"中文 标题", "中文-标题"},
		{"--a--b--", "a-b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Marked.Slugify(tt.in); got != tt.want {
			t.Errorf("Marked(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarkdownItPlus(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Section One", "section-one"},
		{"Hello, World!", "hello-world"},
		{"Ｆｕｌｌ Width", "full-width"},
		{"a - b", "a-b"},
		{"keep_under~tilde", "keep_under~tilde"},
		{"中文 标题", "中文-标题"},
		{"Café", "café"},
	}
	for _, tt := range tests {
		if got := MarkdownItPlus.Slugify(tt.in); got != tt.want {
			t.Errorf("MarkdownItPlus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnknownFlavorIsIdentity(t *testing.T) {
	if got := Slugify("Keep Me", "Other"); got != "Keep Me" {
		t.Errorf("Slugify = %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML("x <b>y</b> <br/>z"); got != "x y z" {
		t.Errorf("StripHTML = %q", got)
	}
	if got := StripHTML("a > b"); got != "a > b" {
		t.Errorf("StripHTML = %q", got)
	}
}
