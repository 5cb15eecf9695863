package convert

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/starford/hexokit/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[(.*?)\]\]`)
	// Alt and target exclude their closing bracket so a markdown embed
	// never swallows a neighbouring wikilink.
	markdownEmbedRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)

	widthRe = regexp.MustCompile(`^\d+$`)
	sizeRe  = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)
)

// ParseSize reads an image size segment: "W" or "WxH".
// ok is false when seg is not a size, in which case it belongs to the alt text.
func ParseSize(seg string) (width, height int, ok bool) {
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return 0, 0, false
	}
	if widthRe.MatchString(seg) {
		w, err := strconv.Atoi(seg)
		if err != nil {
			return 0, 0, false
		}
		return w, 0, true
	}
	m := sizeRe.FindStringSubmatch(seg)
	if m == nil {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	return w, h, true
}

// MatchWikilinks extracts [[...]] and ![[...]] references from text in order.
func MatchWikilinks(text string) []*models.LinkMatch {
	var out []*models.LinkMatch
	for _, sm := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		m := &models.LinkMatch{
			MatchedText: sm[0],
			Format:      models.FormatWikilink,
			Status:      models.StatusValid,
		}
		inner := sm[2]
		switch {
		case sm[1] == "!":
			m.Type = models.LinkEmbedFile
		case strings.HasPrefix(inner, "#"):
			m.Type = models.LinkInternalHeading
			inner = inner[1:]
		default:
			m.Type = models.LinkFile
		}

		segs := strings.Split(inner, "|")
		m.Src = strings.TrimSpace(segs[0])
		if m.Src == "" {
			m.Type = models.LinkException
			m.Status = models.StatusInvalid
			out = append(out, m)
			continue
		}

		if len(segs) > 1 {
			if m.Type == models.LinkEmbedFile {
				end := len(segs)
				if w, h, ok := ParseSize(segs[end-1]); ok {
					m.Width, m.Height = w, h
					end--
				}
				m.Alt = strings.TrimLeftFunc(strings.Join(segs[1:end], "|"), unicode.IsSpace)
			} else {
				m.Alt = strings.Join(segs[1:], "")
			}
		}
		out = append(out, m)
	}
	return out
}

// MatchMarkdownEmbeds extracts ![alt](target) references from text in order.
func MatchMarkdownEmbeds(text string) []*models.LinkMatch {
	var out []*models.LinkMatch
	for _, sm := range markdownEmbedRe.FindAllStringSubmatch(text, -1) {
		m := &models.LinkMatch{
			MatchedText: sm[0],
			Format:      models.FormatMarkdown,
			Type:        models.LinkEmbedFile,
			Status:      models.StatusValid,
		}
		target := sm[2]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		m.Src = strings.TrimSpace(target)
		if m.Src == "" {
			m.Type = models.LinkException
			m.Status = models.StatusInvalid
			out = append(out, m)
			continue
		}

		alt := sm[1]
		head, tail := "", alt
		if i := strings.LastIndex(alt, "|"); i >= 0 {
			head, tail = alt[:i], alt[i+1:]
		}
		if w, h, ok := ParseSize(tail); ok {
			m.Width, m.Height = w, h
			alt = head
		}
		m.Alt = strings.TrimLeftFunc(alt, unicode.IsSpace)
		out = append(out, m)
	}
	return out
}
