// Package convert rewrites Obsidian-flavored markdown into Hexo-ready markdown.
package convert

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/models"
)

// UnknownImageService is reported when no image service is configured.
const UnknownImageService = "Unknown Image Service"

// FileResolver looks up vault files referenced from a note.
type FileResolver interface {
	Resolve(target, sourcePath string) (*models.File, bool)
	ReadFrontMatter(f *models.File) (map[string]string, error)
}

// ImageServices hands out the uploader configured under name,
// or the default one when name is empty or unknown.
type ImageServices interface {
	Get(name string) (imageservice.Uploader, bool)
}

// DiagramExporter renders drawing files to SVG markup.
type DiagramExporter interface {
	IsSupported(f *models.File) bool
	Export(ctx context.Context, f *models.File) (string, error)
}

// Slugifier turns heading text into an anchor id.
type Slugifier interface {
	Slugify(text string) string
}

// Result is the outcome of converting one note.
type Result struct {
	Content      string
	Matches      []*models.LinkMatch
	Errors       []string
	ImageService string
}

// Failed counts the references left unconverted.
func (r *Result) Failed() int {
	n := 0
	for _, m := range r.Matches {
		if !m.Converted() {
			n++
		}
	}
	return n
}

// Engine converts note content line by line. It holds no per-note state
// and is safe for concurrent use.
type Engine struct {
	files     FileResolver
	services  ImageServices
	diagrams  DiagramExporter
	slugger   Slugifier
	allowList []string
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithImageServices sets the registry used for embedded images.
func WithImageServices(s ImageServices) EngineOption {
	return func(e *Engine) { e.services = s }
}

// WithDiagramExporter enables drawing embeds.
func WithDiagramExporter(d DiagramExporter) EngineOption {
	return func(e *Engine) { e.diagrams = d }
}

// WithSlugifier sets the heading anchor flavor.
func WithSlugifier(s Slugifier) EngineOption {
	return func(e *Engine) { e.slugger = s }
}

// WithFrontMatterProperties sets the front-matter allow-list.
func WithFrontMatterProperties(props []string) EngineOption {
	return func(e *Engine) { e.allowList = props }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine resolving references through files.
func NewEngine(files FileResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		files:     files,
		allowList: DefaultFrontMatterProperties,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Convert rewrites content, a note stored at sourcePath inside the vault.
// Lines are processed strictly in order; the result keeps one entry per
// reference found, converted or not.
func (e *Engine) Convert(ctx context.Context, content, sourcePath string) *Result {
	r := &run{
		engine: e,
		source: sourcePath,
		props:  NewPropertiesFilter(e.allowList),
		result: &Result{},
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for i, line := range lines {
		switch r.props.Handle(i, line) {
		case Discarded:
			continue
		case Retained:
			out = append(out, line)
			continue
		}
		if line == "" {
			out = append(out, line)
			continue
		}
		var delimiter bool
		inFence, delimiter = ToggleFence(inFence, line)
		if delimiter || inFence {
			out = append(out, line)
			continue
		}
		out = append(out, r.convertLine(ctx, line))
	}

	r.result.Content = strings.Join(out, "\n")
	return r.result
}

// run carries the state of one Convert call.
type run struct {
	engine *Engine
	source string
	props  *PropertiesFilter
	result *Result

	service         imageservice.Uploader
	serviceResolved bool
}

func (r *run) convertLine(ctx context.Context, line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for _, span := range SplitSpans(line) {
		if span.Kind == SpanCode {
			b.WriteString(span.Text)
			continue
		}
		b.WriteString(r.convertText(ctx, span.Text))
	}
	return b.String()
}

// convertText rewrites heading links first, then the remaining wikilinks
// and markdown embeds in the order they appear.
func (r *run) convertText(ctx context.Context, text string) string {
	wikilinks := MatchWikilinks(text)
	ordered := make([]*models.LinkMatch, 0, len(wikilinks))
	for _, m := range wikilinks {
		if m.Type == models.LinkInternalHeading {
			ordered = append(ordered, m)
		}
	}
	for _, m := range wikilinks {
		if m.Type != models.LinkInternalHeading {
			ordered = append(ordered, m)
		}
	}
	ordered = append(ordered, MatchMarkdownEmbeds(text)...)

	for _, m := range ordered {
		r.result.Matches = append(r.result.Matches, m)
		if m.Status != models.StatusValid {
			continue
		}
		r.resolve(ctx, m)
		if m.Converted() {
			text = strings.Replace(text, m.MatchedText, m.ReplacedText, 1)
		}
	}
	return text
}

func (r *run) addError(msg string) {
	r.engine.logger.Warn("reference not converted",
		slog.String("source", r.source),
		slog.String("error", msg),
	)
	r.result.Errors = append(r.result.Errors, msg)
}

// imageService picks the uploader once per note, on first use.
func (r *run) imageService() imageservice.Uploader {
	if r.serviceResolved {
		return r.service
	}
	r.serviceResolved = true
	if r.engine.services != nil {
		if svc, ok := r.engine.services.Get(r.props.State().ImageService); ok {
			r.service = svc
			r.result.ImageService = svc.Title()
			return svc
		}
	}
	r.result.ImageService = UnknownImageService
	r.addError("Found no available image service")
	return nil
}
