package convert

import (
	"strings"
	"testing"
)

func TestSplitSpans_Lossless(t *testing.T) {
	lines := []string{
		"",
		"plain text",
		"a `code` b",
		"`x` and `y`",
		"ends with `tail`",
		"`not code with space` here",
		"``",
		"a ![[img.png]] `![[kept.png]]` b",
	}
	for _, line := range lines {
		var b strings.Builder
		for _, s := range SplitSpans(line) {
			b.WriteString(s.Text)
		}
		if b.String() != line {
			t.Errorf("SplitSpans(%q) joined = %q", line, b.String())
		}
	}
}

func TestSplitSpans_Kinds(t *testing.T) {
	spans := SplitSpans("a `b` c")
	if len(spans) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(spans), spans)
	}
	want := []Span{{SpanText, "a "}, {SpanCode, "`b`"}, {SpanText, " c"}}
	for i, s := range spans {
		if s != want[i] {
			t.Errorf("span[%d] = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestSplitSpans_SpaceInsideBackticksIsText(t *testing.T) {
	spans := SplitSpans("`a b`")
	if len(spans) != 1 || spans[0].Kind != SpanText {
		t.Errorf("spans = %+v, want a single text span", spans)
	}
}

func TestToggleFence(t *testing.T) {
	in, delim := ToggleFence(false, "```go")
	if !in || !delim {
		t.Fatalf("opening fence: in=%v delim=%v", in, delim)
	}
	in, delim = ToggleFence(in, "![[a.png]]")
	if !in || delim {
		t.Fatalf("inside fence: in=%v delim=%v", in, delim)
	}
	in, delim = ToggleFence(in, "  ```")
	if in || !delim {
		t.Fatalf("closing fence: in=%v delim=%v", in, delim)
	}
	in, delim = ToggleFence(in, "``not a fence")
	if in || delim {
		t.Fatalf("two backticks: in=%v delim=%v", in, delim)
	}
}
