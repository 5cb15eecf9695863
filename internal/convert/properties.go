package convert

import "strings"

// ImageServiceKey is the front-matter key that selects an image service
// for one note. It is read but never emitted unless allow-listed.
const ImageServiceKey = "hexo-image-service"

// DefaultFrontMatterProperties are the properties kept when none are configured.
var DefaultFrontMatterProperties = []string{"title", "date", "updated", "tags", "categories"}

// Indicator is the position of the filter relative to the front-matter block.
type Indicator int

const (
	IndicatorNone Indicator = iota
	IndicatorStart
	IndicatorInside
	IndicatorEnd
)

// Decision is what the engine does with a line after the filter saw it.
type Decision int

const (
	// Passthrough lines are not front matter and go on to link conversion.
	Passthrough Decision = iota
	Retained
	Discarded
)

// PropertiesState is the filter's view of the current note.
type PropertiesState struct {
	Indicator      Indicator
	IsHexoProperty bool
	ImageService   string
}

// PropertiesFilter drops front-matter properties that are not allow-listed.
// A filter is good for a single note.
type PropertiesFilter struct {
	allow map[string]struct{}
	state PropertiesState
}

// ParseAllowList splits a comma-separated property list, trimming each name.
func ParseAllowList(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewPropertiesFilter returns a filter keeping the given property names.
func NewPropertiesFilter(allow []string) *PropertiesFilter {
	set := make(map[string]struct{}, len(allow))
	for _, p := range allow {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return &PropertiesFilter{allow: set}
}

// State returns a copy of the current filter state.
func (f *PropertiesFilter) State() PropertiesState {
	return f.state
}

// Handle inspects line i of the note and decides what happens to it.
// Only a "---" on the very first line opens a front-matter block.
func (f *PropertiesFilter) Handle(i int, line string) Decision {
	switch f.state.Indicator {
	case IndicatorEnd:
		return Passthrough
	case IndicatorNone:
		if i != 0 || line != "---" {
			return Passthrough
		}
		f.state.Indicator = IndicatorStart
	case IndicatorInside:
		if line == "---" {
			f.state.Indicator = IndicatorEnd
			return Retained
		}
	}

	if f.state.Indicator == IndicatorStart {
		f.state.Indicator = IndicatorInside
		return Retained
	}

	// Lines without a key continue the previous property.
	if idx := strings.Index(line, ":"); idx > 0 {
		key := line[:idx]
		_, f.state.IsHexoProperty = f.allow[key]
		if key == ImageServiceKey {
			f.state.ImageService = strings.TrimSpace(line[idx+1:])
		}
	}
	if f.state.IsHexoProperty {
		return Retained
	}
	return Discarded
}
