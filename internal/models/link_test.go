package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLinkMatchJSONSizes(t *testing.T) {
	tests := []struct {
		name    string
		match   LinkMatch
		want    []string
		notWant []string
	}{
		{
			name:  "embed with width only",
			match: LinkMatch{MatchedText: "![[a|40]]", Type: LinkEmbedFile, Src: "a", Width: 40},
			want:  []string{`"width":40`, `"height":0`},
		},
		{
			name:  "embed without size",
			match: LinkMatch{MatchedText: "![[pic.png]]", Type: LinkEmbedFile, Src: "pic.png"},
			want:  []string{`"width":0`, `"height":0`},
		},
		{
			name:    "link file",
			match:   LinkMatch{MatchedText: "[[Note]]", Type: LinkFile, Src: "Note"},
			want:    []string{`"matched_text":"[[Note]]"`},
			notWant: []string{`"width"`, `"height"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Runs hold matches by pointer; both forms must encode alike.
			for _, v := range []any{tt.match, &tt.match} {
				raw, err := json.Marshal(v)
				if err != nil {
					t.Fatal(err)
				}
				s := string(raw)
				for _, w := range tt.want {
					if !strings.Contains(s, w) {
						t.Errorf("%s missing %s", s, w)
					}
				}
				for _, w := range tt.notWant {
					if strings.Contains(s, w) {
						t.Errorf("%s has %s", s, w)
					}
				}
			}
		})
	}
}

func TestLinkMatchJSONRoundTrip(t *testing.T) {
	in := LinkMatch{MatchedText: "![x|20](pic.png)", Type: LinkEmbedFile, Src: "pic.png", Alt: "x", Width: 20}
	raw, err := json.Marshal(&in)
	if err != nil {
		t.Fatal(err)
	}
	var out LinkMatch
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Width != 20 || out.Height != 0 || out.Src != "pic.png" {
		t.Errorf("round trip = %+v", out)
	}
}
