package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnsupported):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert a vault note to Hexo markdown
//	@Tags			conversions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Note to convert"
//	@Success		200		{object}	ConversionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	run, err := h.svc.Converter.Convert(r.Context(), req.Path)
	if err != nil {
		writeError(w, "convert", err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse(run))
}

// Status handles GET /api/status.
//
//	@Summary		Current session status
//	@Tags			conversions
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	st, cur := h.svc.Converter.Status()
	writeJSON(w, http.StatusOK, StatusResponse{Status: st, Current: cur})
}

// ListConversions handles GET /api/conversions.
//
//	@Summary		List finished conversions, newest first
//	@Tags			conversions
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			path	query		string	false	"Filter by note path"
//	@Success		200		{object}	ConversionListResponse
//	@Security		BearerAuth
//	@Router			/conversions [get]
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.History.ListRuns(limit, offset, q.Get("path"))
	if err != nil {
		writeError(w, "list conversions", err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionListResponse{Conversions: items, Total: total})
}

// LastConversion handles GET /api/conversions/last.
//
//	@Summary		Most recent conversion result
//	@Tags			conversions
//	@Produce		json
//	@Success		200	{object}	ConversionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversions/last [get]
func (h *Handler) LastConversion(w http.ResponseWriter, _ *http.Request) {
	if run, ok := h.svc.Converter.Last(); ok {
		writeJSON(w, http.StatusOK, conversionResponse(run))
		return
	}
	run, err := h.svc.History.LastRun()
	if err != nil {
		writeError(w, "last conversion", err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse(run))
}

// GetConversion handles GET /api/conversions/{id}.
//
//	@Summary		Get one conversion by id
//	@Tags			conversions
//	@Produce		json
//	@Param			id	path		string	true	"Run id"
//	@Success		200	{object}	ConversionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversions/{id} [get]
func (h *Handler) GetConversion(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.History.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get conversion", err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse(run))
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List markdown notes in the vault
//	@Tags			notes
//	@Produce		json
//	@Param			dir	query		string	false	"Sub-directory"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Notes.List(r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	if notes == nil {
		notes = []models.NoteMetadata{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}
