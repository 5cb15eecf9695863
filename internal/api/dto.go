package api

import (
	"github.com/starford/hexokit/internal/history"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/report"
)

// ConvertRequest is the request body for converting a note.
type ConvertRequest struct {
	Path string `json:"path" example:"posts/hello.md" validate:"required"`
}

// ReferenceLine is one reference as shown in the result view.
type ReferenceLine = report.Line

// ConversionResponse is a finished run with its rendered reference view.
type ConversionResponse struct {
	*models.Run
	DurationMS int64           `json:"duration_ms" example:"120"`
	Failed     int             `json:"failed" example:"1"`
	References []ReferenceLine `json:"references" validate:"required"`
}

func conversionResponse(run *models.Run) ConversionResponse {
	return ConversionResponse{
		Run:        run,
		DurationMS: run.Duration().Milliseconds(),
		Failed:     run.Failed(),
		References: report.Lines(run),
	}
}

// StatusResponse describes the session.
type StatusResponse struct {
	Status  models.RunStatus `json:"status" example:"Ready" validate:"required"`
	Current *models.Run      `json:"current,omitempty"`
}

// ConversionListResponse wraps paginated run summaries.
type ConversionListResponse struct {
	Conversions []history.Summary `json:"conversions" validate:"required"`
	Total       int               `json:"total" example:"42" validate:"required"`
}

// NoteListResponse wraps the vault's notes.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}
