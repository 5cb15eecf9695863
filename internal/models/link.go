package models

import "encoding/json"

// MatchFormat is the syntax family a reference was written in.
type MatchFormat string

const (
	FormatWikilink MatchFormat = "wikilink" // [[...]] / ![[...]]
	FormatMarkdown MatchFormat = "markdown" // ![alt](target)
)

// LinkType classifies what a reference points at.
type LinkType string

const (
	LinkException       LinkType = "exception"
	LinkInternalHeading LinkType = "internal_heading"
	LinkFile            LinkType = "link_file"
	LinkEmbedFile       LinkType = "embed_file"
)

// MatchStatus tracks a reference through resolution.
// Invalid is fixed at parse time; Valid becomes Unmatched when resolution fails.
type MatchStatus string

const (
	StatusInvalid   MatchStatus = "invalid"
	StatusValid     MatchStatus = "valid"
	StatusUnmatched MatchStatus = "unmatched"
)

// LinkMatch is one reference found in a line of a note.
type LinkMatch struct {
	MatchedText string      `json:"matched_text"`
	Format      MatchFormat `json:"format"`
	Type        LinkType    `json:"type"`
	Src         string      `json:"src"`
	Alt         string      `json:"alt"`
	Status      MatchStatus `json:"status"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`

	File     *File  `json:"file,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FullPath string `json:"full_path,omitempty"`

	// ReplacedText is empty when the reference was left untouched.
	ReplacedText string `json:"replaced_text,omitempty"`
}

// MarshalJSON writes width and height on embeds only, zero when no size
// was given.
func (m LinkMatch) MarshalJSON() ([]byte, error) {
	type plain LinkMatch
	out := struct {
		plain
		Width  *int `json:"width,omitempty"`
		Height *int `json:"height,omitempty"`
	}{plain: plain(m)}
	if m.Type == LinkEmbedFile {
		out.Width, out.Height = &m.Width, &m.Height
	}
	return json.Marshal(out)
}

// Converted reports whether the reference was rewritten.
func (m *LinkMatch) Converted() bool {
	return m.ReplacedText != ""
}

// Unmatch marks a valid reference as failed and drops any replacement.
func (m *LinkMatch) Unmatch() {
	if m.Status == StatusValid {
		m.Status = StatusUnmatched
	}
	m.ReplacedText = ""
}
