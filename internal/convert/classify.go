package convert

import (
	"regexp"
	"strings"
)

// inlineCodeRe matches a single-backtick code span without spaces.
var inlineCodeRe = regexp.MustCompile("`[^ `]+`")

// SpanKind tells whether a span is scanned for references.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanCode
)

// Span is a contiguous piece of a line.
type Span struct {
	Kind SpanKind
	Text string
}

// SplitSpans partitions line into alternating text and inline-code spans.
// Concatenating the spans yields line again.
func SplitSpans(line string) []Span {
	locs := inlineCodeRe.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return []Span{{Kind: SpanText, Text: line}}
	}
	spans := make([]Span, 0, 2*len(locs)+1)
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			spans = append(spans, Span{Kind: SpanText, Text: line[last:loc[0]]})
		}
		spans = append(spans, Span{Kind: SpanCode, Text: line[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(line) {
		spans = append(spans, Span{Kind: SpanText, Text: line[last:]})
	}
	return spans
}

// ToggleFence reports the fence state after line and whether line itself
// opens or closes a fenced code block.
func ToggleFence(inFence bool, line string) (next, delimiter bool) {
	if strings.HasPrefix(strings.TrimSpace(line), "```") {
		return !inFence, true
	}
	return inFence, false
}
