// Package session runs one conversion at a time and tracks its status.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/checksum"
	"github.com/starford/hexokit/internal/clipboard"
	"github.com/starford/hexokit/internal/convert"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/parser"
)

// Documents gives the session access to vault notes.
type Documents interface {
	Lookup(path string) (*models.File, error)
	ReadContent(f *models.File) (string, error)
	Refresh() error
}

// Converter rewrites note content.
type Converter interface {
	Convert(ctx context.Context, content, sourcePath string) *convert.Result
}

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(run *models.Run) error
}

// Exporter writes converted notes out of the vault.
type Exporter interface {
	Write(path string, content []byte) error
}

// Session guards the single in-flight conversion.
type Session struct {
	docs      Documents
	converter Converter
	clipboard clipboard.Writer
	recorder  Recorder
	exporter  Exporter
	notify    func(*models.Run)
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	status  models.RunStatus
	current *models.Run
	last    *models.Run
}

// Option configures a Session.
type Option func(*Session)

// WithClipboard copies every converted note to w.
func WithClipboard(w clipboard.Writer) Option {
	return func(s *Session) { s.clipboard = w }
}

// WithRecorder stores finished runs.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithExporter writes converted notes as <basename>.md through e.
func WithExporter(e Exporter) Option {
	return func(s *Session) { s.exporter = e }
}

// WithNotify calls fn on every status change.
func WithNotify(fn func(*models.Run)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session in the Init status. Call Ready before converting.
func New(docs Documents, converter Converter, opts ...Option) *Session {
	s := &Session{
		docs:      docs,
		converter: converter,
		logger:    slog.Default(),
		now:       time.Now,
		status:    models.RunInit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready opens the session for conversions.
func (s *Session) Ready() {
	s.mu.Lock()
	if s.status == models.RunInit {
		s.status = models.RunReady
	}
	s.mu.Unlock()
	s.publish(&models.Run{Status: models.RunReady})
}

// Status returns the current status and a snapshot of the run in flight, if any.
func (s *Session) Status() (models.RunStatus, *models.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.current
}

// Last returns the most recently finished run of this session.
func (s *Session) Last() (*models.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

// Convert converts the note at vault path p. Busy sessions and non-markdown
// input are rejected before anything changes. Every other failure is
// reported through the returned run.
func (s *Session) Convert(ctx context.Context, p string) (*models.Run, error) {
	run, f, err := s.begin(p)
	if err != nil {
		return nil, err
	}
	s.publish(run)
	s.logger.Info("conversion started", slog.String("run_id", run.ID), slog.String("path", run.Path))

	content, err := s.docs.ReadContent(f)
	if err != nil {
		run.AddError(fmt.Sprintf("Failed to read: %v", err))
		s.finish(run, models.RunError)
		return run, nil
	}
	run.Checksum = checksum.String(content)
	if parsed, err := parser.Parse([]byte(content)); err == nil {
		run.Title = parsed.Title
	}

	res := s.converter.Convert(ctx, content, f.Path)
	run.Content = res.Content
	run.Matches = res.Matches
	run.ImageService = res.ImageService
	run.Errors = append(run.Errors, res.Errors...)

	status := models.RunSuccess
	if res.Failed() > 0 {
		status = models.RunFlawedSuccess
	}

	if s.exporter != nil {
		if err := s.exporter.Write(f.Basename+".md", []byte(run.Content)); err != nil {
			run.AddError(fmt.Sprintf("Failed to export: %v", err))
			status = models.RunFlawedSuccess
		}
	}
	if s.clipboard != nil {
		if err := s.clipboard.Write(ctx, run.Content); err != nil {
			run.AddError(fmt.Sprintf("Failed to copy: %v. You can still manually copy the 'Converted Content'.", err))
			status = models.RunFlawedSuccess
		}
	}

	s.finish(run, status)
	return run, nil
}

// begin checks preconditions and claims the session. The vault is
// refreshed outside the lock so Status and Last stay responsive.
func (s *Session) begin(p string) (*models.Run, *models.File, error) {
	s.mu.Lock()
	prev := s.status
	if !prev.Accepting() {
		s.mu.Unlock()
		if prev == models.RunInit {
			return nil, nil, apperr.ErrNotReady
		}
		return nil, nil, apperr.ErrBusy
	}
	if !strings.EqualFold(path.Ext(p), ".md") {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%s: %w", p, apperr.ErrUnsupported)
	}
	s.status = models.RunConverting
	s.mu.Unlock()

	f, err := s.lookup(p)
	if err != nil {
		s.mu.Lock()
		s.status = prev
		s.mu.Unlock()
		return nil, nil, err
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Path:      f.Path,
		Name:      f.Name,
		Status:    models.RunConverting,
		StartedAt: s.now(),
		Errors:    []string{},
	}
	snapshot := *run
	s.mu.Lock()
	s.current = &snapshot
	s.mu.Unlock()
	return run, f, nil
}

func (s *Session) lookup(p string) (*models.File, error) {
	if err := s.docs.Refresh(); err != nil {
		return nil, err
	}
	return s.docs.Lookup(p)
}

func (s *Session) finish(run *models.Run, status models.RunStatus) {
	run.Status = status
	run.FinishedAt = s.now()

	if s.recorder != nil {
		if err := s.recorder.SaveRun(run); err != nil {
			s.logger.Error("conversion not recorded", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	s.status = status
	s.current = nil
	s.last = run
	s.mu.Unlock()

	s.publish(run)
	s.logger.Info("conversion finished",
		slog.String("run_id", run.ID),
		slog.String("path", run.Path),
		slog.String("status", string(status)),
		slog.Int("references", len(run.Matches)),
		slog.Int("failed", run.Failed()),
		slog.Duration("duration", run.Duration()),
	)
}

func (s *Session) publish(run *models.Run) {
	if s.notify != nil {
		s.notify(run)
	}
}
