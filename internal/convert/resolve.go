package convert

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/hexokit/internal/diagram"
	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/models"
)

// HexoPathKey is the front-matter key holding a note's published path.
const HexoPathKey = "hexo-path"

var (
	remoteRe   = regexp.MustCompile(`(?i)^https?://`)
	imageExtRe = regexp.MustCompile(`(?i)^(jpe?g|png|gif|bmp|svg|webp|avif)$`)
)

// IsImage reports whether ext (without the dot) is a supported image format.
func IsImage(ext string) bool {
	return imageExtRe.MatchString(ext)
}

// resolve fills in m.ReplacedText, or marks m unmatched.
func (r *run) resolve(ctx context.Context, m *models.LinkMatch) {
	defer func() {
		if !m.Converted() {
			m.Unmatch()
		}
	}()

	// Remote references are left for the renderer.
	if remoteRe.MatchString(m.Src) {
		return
	}
	if m.Alt == "" {
		m.Alt = m.Src
	}

	switch m.Type {
	case models.LinkInternalHeading:
		r.resolveHeading(m)
	case models.LinkFile:
		r.resolveLinkFile(m)
	case models.LinkEmbedFile:
		r.resolveEmbed(ctx, m)
	}

	r.engine.logger.Debug("reference resolved",
		slog.String("source", r.source),
		slog.String("matched", m.MatchedText),
		slog.Bool("converted", m.Converted()),
	)
}

func (r *run) slugify(text string) string {
	if r.engine.slugger == nil {
		return text
	}
	return r.engine.slugger.Slugify(text)
}

func (r *run) resolveHeading(m *models.LinkMatch) {
	m.ReplacedText = fmt.Sprintf("[%s](#%s)", m.Alt, r.slugify(m.Src))
}

func (r *run) resolveLinkFile(m *models.LinkMatch) {
	target, subpath := splitTarget(m.Src)
	f, ok := r.engine.files.Resolve(target, r.source)
	if !ok {
		r.addError("Found no link file: " + m.MatchedText)
		return
	}
	m.File = f
	m.FullPath = f.FullPath

	props, err := r.engine.files.ReadFrontMatter(f)
	if err != nil {
		r.addError(fmt.Sprintf("Failed to read front matter of '%s': %v", f.Path, err))
		return
	}
	hexoPath := strings.TrimSpace(props[HexoPathKey])
	if hexoPath == "" {
		return
	}
	if subpath != "" {
		hexoPath += "#" + r.slugify(subpath)
	}
	m.ReplacedText = fmt.Sprintf("[%s](%s)", m.Alt, hexoPath)
}

func (r *run) resolveEmbed(ctx context.Context, m *models.LinkMatch) {
	target, _ := splitTarget(m.Src)
	f, ok := r.engine.files.Resolve(target, r.source)
	if !ok {
		r.addError("Found no image file: " + m.MatchedText)
		return
	}
	m.File = f
	m.FullPath = f.FullPath

	switch {
	case IsImage(f.Extension):
		m.MimeType = imageservice.ContentType(f.Extension)
		svc := r.imageService()
		if svc == nil {
			return
		}
		res := svc.Handle(ctx, m)
		for _, msg := range res.ErrorMessages {
			r.addError(msg)
		}
		m.ReplacedText = res.ReplacedText
	case r.engine.diagrams != nil && r.engine.diagrams.IsSupported(f):
		svg, err := r.engine.diagrams.Export(ctx, f)
		if err != nil {
			r.addError(fmt.Sprintf("Failed to export Excalidraw '%s': %v", f.Basename, err))
			return
		}
		html, err := diagram.Embed(svg, m.Width, m.Height)
		if err != nil {
			r.addError(fmt.Sprintf("Failed to export Excalidraw '%s': %v", f.Basename, err))
			return
		}
		m.ReplacedText = html
	}
}

// splitTarget percent-decodes a link target and splits off its "#subpath".
func splitTarget(src string) (target, subpath string) {
	if decoded, err := url.PathUnescape(src); err == nil {
		src = decoded
	}
	target, subpath, _ = strings.Cut(src, "#")
	return strings.TrimSpace(target), strings.TrimSpace(subpath)
}
