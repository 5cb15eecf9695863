// Package diagram turns Excalidraw drawings into inline SVG.
package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/hexokit/internal/models"
)

// PluginKey marks a markdown note as an Excalidraw drawing.
const PluginKey = "excalidraw-plugin"

// ContainerClass is the class of the element wrapping an embedded drawing.
const ContainerClass = "excalidraw-svg"

// ErrNoSVG is returned when exported markup holds no <svg> element.
var ErrNoSVG = errors.New("diagram: no svg element")

// Reader is the subset of vault access the exporter needs.
type Reader interface {
	ReadFrontMatter(f *models.File) (map[string]string, error)
	Read(path string) ([]byte, error)
}

// SidecarExporter reads the SVG the Excalidraw plugin exports next to
// each drawing ("auto-export SVG" setting).
type SidecarExporter struct {
	vault Reader
}

// NewSidecarExporter creates an exporter reading from vault.
func NewSidecarExporter(vault Reader) *SidecarExporter {
	return &SidecarExporter{vault: vault}
}

// IsSupported reports whether f is an Excalidraw drawing.
func (e *SidecarExporter) IsSupported(f *models.File) bool {
	if f == nil {
		return false
	}
	if f.Extension == "excalidraw" || strings.HasSuffix(f.Name, ".excalidraw.md") {
		return true
	}
	if f.Extension != "md" {
		return false
	}
	props, err := e.vault.ReadFrontMatter(f)
	if err != nil {
		return false
	}
	_, ok := props[PluginKey]
	return ok
}

// Export returns the drawing's SVG markup.
func (e *SidecarExporter) Export(_ context.Context, f *models.File) (string, error) {
	var lastErr error
	for _, p := range sidecarPaths(f.Path) {
		data, err := e.vault.Read(p)
		if err != nil {
			lastErr = err
			continue
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no exported svg next to %s: %w", f.Path, lastErr)
}

// sidecarPaths lists where the plugin may have written the SVG:
// "Drawing.excalidraw.md" exports "Drawing.excalidraw.svg",
// a legacy "Drawing.excalidraw" exports "Drawing.svg".
func sidecarPaths(p string) []string {
	trimmed := strings.TrimSuffix(p, ".md")
	out := []string{trimmed + ".svg"}
	if ext := path.Ext(trimmed); ext != "" {
		if alt := strings.TrimSuffix(trimmed, ext) + ".svg"; alt != out[0] {
			out = append(out, alt)
		}
	}
	return out
}

var (
	betweenTagsRe = regexp.MustCompile(`\s*(>)\s*(<)\s*`)
	spaceRunRe    = regexp.MustCompile(`\s{2,}`)
)

// Embed strips the size of the root <svg> and wraps it in a container
// limited to width and height (each only when > 0), then collapses
// whitespace so the result fits on one markdown line.
func Embed(svg string, width, height int) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(svg), body)
	if err != nil {
		return "", fmt.Errorf("diagram: parse svg: %w", err)
	}
	var root *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.Data == "svg" {
			root = n
			break
		}
	}
	if root == nil {
		return "", ErrNoSVG
	}
	root.Attr = dropAttrs(root.Attr, "width", "height")

	div := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: ContainerClass}},
	}
	var style strings.Builder
	if width > 0 {
		fmt.Fprintf(&style, "max-width:%dpx;", width)
	}
	if height > 0 {
		fmt.Fprintf(&style, "max-height:%dpx;", height)
	}
	if style.Len() > 0 {
		div.Attr = append(div.Attr, html.Attribute{Key: "style", Val: style.String()})
	}
	div.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, div); err != nil {
		return "", fmt.Errorf("diagram: render: %w", err)
	}
	out := betweenTagsRe.ReplaceAllString(buf.String(), "$1$2")
	out = spaceRunRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out), nil
}

func dropAttrs(attrs []html.Attribute, keys ...string) []html.Attribute {
	out := attrs[:0]
next:
	for _, a := range attrs {
		for _, k := range keys {
			if a.Namespace == "" && strings.EqualFold(a.Key, k) {
				continue next
			}
		}
		out = append(out, a)
	}
	return out
}
