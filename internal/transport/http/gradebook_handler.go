package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "gradecli/internal/errors"
	"gradecli/internal/gradebook"
	mw "gradecli/internal/middleware"
	"gradecli/internal/services"
	api "gradecli/pkg/contracts/api/v1"
)

// multipartOverhead is the allowance for multipart boundaries and part headers
const multipartOverhead = 64 << 10

// GradebookHandler handles gradebook session requests with RFC 7807 errors
type GradebookHandler struct {
	service        GradebookServiceInterface
	validation     *mw.ValidationMiddleware
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewGradebookHandler creates a new gradebook handler
func NewGradebookHandler(service GradebookServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *GradebookHandler {
	return &GradebookHandler{
		service:        service,
		validation:     mw.NewValidationMiddleware(logger, errorHandler),
		logger:         logger.With(slog.String("component", "gradebook_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the session routes, mounted under /api/sessions
func (h *GradebookHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(mw.AuditLog(h.logger))

	r.With(mw.ContentTypeValidator("multipart/form-data")).Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/assignments", h.ListAssignments)
		r.Get("/export", h.Export)

		r.Route("/assignments/{aid}", func(r chi.Router) {
			r.Get("/ranking", h.GetRanking)
			r.Get("/statistics", h.GetStatistics)
			r.Get("/distribution", h.GetDistribution)
			r.Get("/charts/box", h.GetBoxPlot)
			r.Get("/charts/histogram", h.GetHistogram)
		})
	})

	return r
}

// Upload handles POST /api/sessions with a multipart "file" field
func (h *GradebookHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", `multipart field "file" is required`))
		return
	}
	defer file.Close()

	if err := h.validation.ValidateFilename(header.Filename); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "gradebook upload received",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	info, err := h.service.Upload(ctx, header.Filename, file)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sessions/"+info.ID)
	w.Header().Set("X-Session-ID", info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *GradebookHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *GradebookHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ListAssignments handles GET /api/sessions/{id}/assignments
func (h *GradebookHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.Assignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   assignments,
		"count":  len(assignments),
	})
}

// GetRanking handles GET /api/sessions/{id}/assignments/{aid}/ranking
func (h *GradebookHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	var q api.RankingQuery
	if !h.validation.DecodeQuery(w, r, &q) {
		return
	}

	ranking, err := h.service.Ranking(r.Context(), chi.URLParam(r, "id"), assignmentID(r), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   ranking,
	})
}

// GetStatistics handles GET /api/sessions/{id}/assignments/{aid}/statistics
func (h *GradebookHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), chi.URLParam(r, "id"), assignmentID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// GetDistribution handles GET /api/sessions/{id}/assignments/{aid}/distribution
func (h *GradebookHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.service.Distribution(r.Context(), chi.URLParam(r, "id"), assignmentID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   dist,
		"count":  len(dist),
	})
}

// GetBoxPlot handles GET /api/sessions/{id}/assignments/{aid}/charts/box
func (h *GradebookHandler) GetBoxPlot(w http.ResponseWriter, r *http.Request) {
	box, err := h.service.BoxPlot(r.Context(), chi.URLParam(r, "id"), assignmentID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   box,
	})
}

// GetHistogram handles GET /api/sessions/{id}/assignments/{aid}/charts/histogram
func (h *GradebookHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	hist, err := h.service.Histogram(r.Context(), chi.URLParam(r, "id"), assignmentID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   hist,
	})
}

// Export handles GET /api/sessions/{id}/export and streams the report file
func (h *GradebookHandler) Export(w http.ResponseWriter, r *http.Request) {
	var q api.ExportQuery
	if !h.validation.DecodeQuery(w, r, &q) {
		return
	}

	result, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleServiceError maps service errors to API errors
func (h *GradebookHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		err = apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrAssignmentNotFound):
		err = apierrors.NewWithDetails(http.StatusNotFound, "ASSIGNMENT_NOT_FOUND",
			"Assignment not found in gradebook", assignmentID(r))
	case errors.Is(err, services.ErrUploadTooLarge):
		err = apierrors.ErrPayloadTooLarge
	case errors.Is(err, services.ErrUnsupportedFormat):
		err = apierrors.ErrUnsupportedFormat
	case errors.Is(err, services.ErrEmptyUpload), errors.Is(err, services.ErrInvalidGradebook):
		err = gradebookError(err)
	case errors.Is(err, services.ErrInvalidQuery):
		err = apierrors.InvalidRequestWithError(err)
	case errors.Is(err, services.ErrExportFailed):
		err = apierrors.NewExportError("Report export failed", err).
			WithContext("session_id", chi.URLParam(r, "id"))
	}
	h.errorHandler.HandleError(w, r, err)
}

// gradebookError reports an unusable upload, pointing at the offending
// column or row when the parser named one
func gradebookError(err error) *apierrors.AppError {
	appErr := apierrors.NewParsingError("Uploaded file is not a valid gradebook export", err)

	var schemaErr *gradebook.SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Column != "" {
		appErr.WithContext("column", schemaErr.Column)
	}
	var rowErr *gradebook.RowFormatError
	if errors.As(err, &rowErr) {
		appErr.WithContext("row", rowErr.Row)
	}
	return appErr
}

// assignmentID returns the decoded {aid} parameter. Canvas identifiers carry
// spaces and parentheses, and chi matches on RawPath whenever the client
// escaped the path differently from the default encoding.
func assignmentID(r *http.Request) string {
	aid := chi.URLParam(r, "aid")
	if r.URL.RawPath == "" {
		return aid
	}
	if decoded, err := url.PathUnescape(aid); err == nil {
		return decoded
	}
	return aid
}
