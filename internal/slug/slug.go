// Package slug computes heading anchor ids the way Hexo renderers do.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Flavor names a renderer whose anchor algorithm is reproduced.
type Flavor string

const (
	// Marked is hexo-renderer-marked: hexo-util slugize, case preserved.
	Marked Flavor = "HexoRendererMarked"
	// MarkdownItPlus is hexo-renderer-markdown-it-plus: uslug, lower-cased.
	MarkdownItPlus Flavor = "HexoRendererMarkdownItPlus"
)

// Flavors lists the supported renderers.
var Flavors = []Flavor{Marked, MarkdownItPlus}

// Slugify returns the anchor id of a heading for the flavor.
// Unknown flavors return text unchanged.
func (f Flavor) Slugify(text string) string {
	if text == "" {
		return text
	}
	switch f {
	case Marked:
		return Slugize(strings.TrimSpace(StripHTML(html.UnescapeString(text))), "-")
	case MarkdownItPlus:
		return Uslug(text)
	}
	return text
}

// Slugify is Flavor(flavor).Slugify(text).
func Slugify(text, flavor string) string {
	return Flavor(flavor).Slugify(text)
}

// StripHTML drops tags and keeps text content.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

var (
	controlRe = regexp.MustCompile(`[\x00-\x1f]`)
	specialRe = regexp.MustCompile(`[\s\p{Zs}~` + "`" + `!@#$%^&*()\-_+=\[\]{}|\\;:"'<>,.?/]+`)

	ligatures = strings.NewReplacer(
		"ß", "ss", "Æ", "AE", "æ", "ae", "Œ", "OE", "œ", "oe",
		"Ø", "O", "ø", "o", "Đ", "D", "đ", "d", "Ł", "L", "ł", "l",
		"Þ", "TH", "þ", "th", "Ð", "D", "ð", "d",
	)
)

// Slugize mirrors hexo-util's slugize with no case transform.
func Slugize(s, sep string) string {
	s = EscapeDiacritics(s)
	s = controlRe.ReplaceAllString(s, "")
	s = specialRe.ReplaceAllString(s, sep)
	if sep != "" {
		for strings.Contains(s, sep+sep) {
			s = strings.ReplaceAll(s, sep+sep, sep)
		}
		s = strings.Trim(s, sep)
	}
	return s
}

// EscapeDiacritics folds accented Latin letters to their ASCII base.
func EscapeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return ligatures.Replace(out)
}

var lower = cases.Lower(language.Und)

// Uslug mirrors the uslug package: NFKC, letters, numbers and marks kept,
// separators become '-', result lower-cased.
func Uslug(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune("-_~", r):
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), unicode.In(r, unicode.Zs, unicode.Zl, unicode.Zp):
			b.WriteRune(' ')
		}
	}
	out := strings.TrimSpace(b.String())
	out = dashRunRe.ReplaceAllString(out, "-")
	return lower.String(out)
}

var dashRunRe = regexp.MustCompile(`[-\s]+`)
