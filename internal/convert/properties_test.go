package convert

import (
	"reflect"
	"strings"
	"testing"
)

func filterLines(allow []string, doc string) ([]string, *PropertiesFilter) {
	f := NewPropertiesFilter(allow)
	var kept []string
	for i, line := range strings.Split(doc, "\n") {
		if f.Handle(i, line) != Discarded {
			kept = append(kept, line)
		}
	}
	return kept, f
}

func TestPropertiesFilter_NoFrontMatter(t *testing.T) {
	doc := "# Title\n---\ntitle: x\nextra: y\n---"
	kept, f := filterLines([]string{"title"}, doc)
	if len(kept) != 5 {
		t.Errorf("kept = %v, want every line", kept)
	}
	if f.State().Indicator != IndicatorNone {
		t.Errorf("indicator = %v, want none", f.State().Indicator)
	}
}

func TestPropertiesFilter_AllowList(t *testing.T) {
	doc := "---\ntitle: T\nextra: E\ntags:\n  - a\n  - b\ndraft: true\n---\nbody: text"
	kept, f := filterLines([]string{" title ", "tags"}, doc)
	want := []string{"---", "title: T", "tags:", "  - a", "  - b", "---", "body: text"}
	if !reflect.DeepEqual(kept, want) {
		t.Errorf("kept = %q\nwant %q", kept, want)
	}
	if f.State().Indicator != IndicatorEnd {
		t.Errorf("indicator = %v, want end", f.State().Indicator)
	}
}

func TestPropertiesFilter_ContinuationFollowsKey(t *testing.T) {
	doc := "---\nextra:\n  - dropped\ntitle: T\n---"
	kept, _ := filterLines([]string{"title"}, doc)
	want := []string{"---", "title: T", "---"}
	if !reflect.DeepEqual(kept, want) {
		t.Errorf("kept = %q, want %q", kept, want)
	}
}

func TestPropertiesFilter_CapturesImageService(t *testing.T) {
	doc := "---\nhexo-image-service:  svc2 \n---"
	kept, f := filterLines([]string{"title"}, doc)
	if got := f.State().ImageService; got != "svc2" {
		t.Errorf("image service = %q, want svc2", got)
	}
	if len(kept) != 2 {
		t.Errorf("kept = %q, want only delimiters", kept)
	}
}

func TestPropertiesFilter_ColonAtStartIsNotAKey(t *testing.T) {
	doc := "---\ntitle: T\n: odd\n---"
	kept, _ := filterLines([]string{"title"}, doc)
	if len(kept) != 4 {
		t.Errorf("kept = %q, want the odd line to follow title", kept)
	}
}

func TestParseAllowList(t *testing.T) {
	got := ParseAllowList(" title, date ,,tags ")
	want := []string{"title", "date", "tags"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseAllowList = %q, want %q", got, want)
	}
}
