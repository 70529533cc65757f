package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gradecli/internal/analysis"
	"gradecli/internal/exporter"
	"gradecli/internal/gradebook"
	"gradecli/internal/infrastructure"
	"gradecli/internal/session"
	api "gradecli/pkg/contracts/api/v1"
	"gradecli/pkg/contracts/domain"
)

// GradebookConfig holds the parsing and upload settings of the service
type GradebookConfig struct {
	Parse          gradebook.ParseOptions
	PseudonymPool  int
	MaxUploadBytes int64
}

// ExportResult is a rendered report ready to be sent to a client
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GradebookService parses uploaded gradebooks into isolated sessions and
// serves their analysis.
type GradebookService struct {
	store    *session.Store
	cfg      GradebookConfig
	exporter *exporter.Exporter
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewGradebookService creates the service. metrics may be nil.
func NewGradebookService(store *session.Store, cfg GradebookConfig, exp *exporter.Exporter, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *GradebookService {
	if logger == nil {
		logger = slog.Default()
	}
	if exp == nil {
		exp = exporter.NewExporter(logger)
	}
	return &GradebookService{
		store:    store,
		cfg:      cfg,
		exporter: exp,
		metrics:  metrics,
		tracer:   otel.Tracer(infrastructure.MeterName),
		logger:   logger.With(slog.String("component", "gradebook_service")),
	}
}

// Upload parses a gradebook file and opens a session for it.
// Nothing is stored when parsing fails.
func (s *GradebookService) Upload(ctx context.Context, filename string, r io.Reader) (*api.SessionInfo, error) {
	ctx, span := s.tracer.Start(ctx, "gradebook.upload", trace.WithAttributes(
		attribute.String("gradebook.filename", filename),
	))
	defer span.End()

	start := time.Now()
	format := gradebook.FormatAuto
	info, size, err := s.upload(ctx, filename, r, &format)
	students := 0
	if info != nil {
		students = info.Students
	}
	infrastructure.RecordUploadMetrics(ctx, s.metrics, string(format), size, students, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Gradebook upload rejected",
			slog.String("filename", filename),
			slog.Int64("bytes", size),
			slog.String("error", err.Error()))
		return nil, err
	}

	infrastructure.RecordSessionChange(ctx, s.metrics, 1)
	span.SetAttributes(
		attribute.String("session.id", info.ID),
		attribute.Int("gradebook.students", info.Students),
		attribute.Int("gradebook.assignments", len(info.Assignments)),
	)
	s.logger.InfoContext(ctx, "Gradebook uploaded",
		slog.String("session_id", info.ID),
		slog.String("filename", filename),
		slog.String("format", string(format)),
		slog.Int("students", info.Students),
		slog.Int("assignments", len(info.Assignments)),
		slog.Int("skipped_rows", len(info.SkippedRows)),
		slog.Duration("duration", time.Since(start)))

	return info, nil
}

func (s *GradebookService) upload(ctx context.Context, filename string, r io.Reader, format *gradebook.Format) (*api.SessionInfo, int64, error) {
	if ext := filepath.Ext(filename); ext != "" {
		f, err := gradebook.ParseFormat(ext)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}
		*format = f
	}

	data, err := s.readUpload(r)
	size := int64(len(data))
	if err != nil {
		return nil, size, err
	}
	if *format == gradebook.FormatAuto {
		*format = gradebook.DetectFormat(data)
	}

	if err := ctx.Err(); err != nil {
		return nil, size, err
	}

	parser := gradebook.NewParser(s.cfg.Parse, s.logger)
	roster, err := parser.ParseReader(bytes.NewReader(data), *format)
	if err != nil {
		return nil, size, fmt.Errorf("%w: %w", ErrInvalidGradebook, err)
	}

	analyzer := analysis.New(roster.Students, roster.Schema.Assignments, analysis.Options{
		PseudonymPool: s.cfg.PseudonymPool,
		Logger:        s.logger,
	})

	sess := s.store.Create(filepath.Base(filename), roster, analyzer)
	return s.sessionInfo(sess), size, nil
}

func (s *GradebookService) readUpload(r io.Reader) ([]byte, error) {
	limit := s.cfg.MaxUploadBytes
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return data, fmt.Errorf("%w: %w", ErrUploadTooLarge, err)
		}
		return data, fmt.Errorf("failed to read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return data[:limit], fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return data, ErrEmptyUpload
	}
	return data, nil
}

// Get returns the description of a session
func (s *GradebookService) Get(ctx context.Context, id string) (*api.SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// Delete discards a session and its analysis
func (s *GradebookService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return err
	}
	s.logger.InfoContext(ctx, "Gradebook session closed", slog.String("session_id", id))
	return nil
}

// Assignments returns the per-assignment overview of a session
func (s *GradebookService) Assignments(ctx context.Context, id string) ([]domain.AssignmentSummary, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Analyzer.Overview(), nil
}

// Ranking returns one view of an assignment ranking
func (s *GradebookService) Ranking(ctx context.Context, id, assignmentID string, q api.RankingQuery) (*api.RankingResponse, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	view := q.View
	if view == "" {
		view = api.ViewAll
	}
	resp := &api.RankingResponse{
		AssignmentID: assignmentID,
		View:         view,
		Anonymized:   q.Anonymized,
	}

	switch view {
	case api.ViewAll:
		resp.Rows, err = sess.Analyzer.Ranking(assignmentID, q.Anonymized)
	case api.ViewGraded:
		resp.Rows, err = sess.Analyzer.Graded(assignmentID, q.Anonymized)
	case api.ViewUngraded:
		resp.Ungraded, err = sess.Analyzer.Ungraded(assignmentID, q.Anonymized)
	default:
		return nil, fmt.Errorf("%w: view %q", ErrInvalidQuery, view)
	}
	if err != nil {
		return nil, assignmentError(err, assignmentID)
	}
	return resp, nil
}

// Statistics returns the summary statistics of an assignment
func (s *GradebookService) Statistics(ctx context.Context, id, assignmentID string) (domain.BasicStatistics, error) {
	sess, err := s.session(id)
	if err != nil {
		return domain.BasicStatistics{}, err
	}
	stats, err := sess.Analyzer.Statistics(assignmentID)
	return stats, assignmentError(err, assignmentID)
}

// Distribution returns the grade distribution of an assignment
func (s *GradebookService) Distribution(ctx context.Context, id, assignmentID string) (domain.GradeDistribution, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	dist, err := sess.Analyzer.Distribution(assignmentID)
	return dist, assignmentError(err, assignmentID)
}

// BoxPlot returns per-section box plot data of an assignment
func (s *GradebookService) BoxPlot(ctx context.Context, id, assignmentID string) (domain.BoxPlot, error) {
	sess, err := s.session(id)
	if err != nil {
		return domain.BoxPlot{}, err
	}
	box, err := sess.Analyzer.BoxPlot(assignmentID)
	return box, assignmentError(err, assignmentID)
}

// Histogram returns per-section histogram data of an assignment
func (s *GradebookService) Histogram(ctx context.Context, id, assignmentID string) (domain.Histogram, error) {
	sess, err := s.session(id)
	if err != nil {
		return domain.Histogram{}, err
	}
	hist, err := sess.Analyzer.Histogram(assignmentID)
	return hist, assignmentError(err, assignmentID)
}

// Export renders the report of a session
func (s *GradebookService) Export(ctx context.Context, id string, q api.ExportQuery) (*ExportResult, error) {
	ctx, span := s.tracer.Start(ctx, "gradebook.export", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("export.format", q.Format),
	))
	defer span.End()

	format, err := exporter.ParseFormat(q.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	report, err := exporter.BuildReport(sess.Analyzer, sess.Filename, q.Anonymized)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("%w: session %s: %w", ErrExportFailed, id, err)
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, report, format); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("%w: session %s: %w", ErrExportFailed, id, err)
	}

	infrastructure.RecordExport(ctx, s.metrics, string(format))
	s.logger.InfoContext(ctx, "Gradebook report exported",
		slog.String("session_id", id),
		slog.String("format", string(format)),
		slog.Bool("anonymized", q.Anonymized),
		slog.Int("bytes", buf.Len()))

	return &ExportResult{
		Filename:    exportFilename(sess.Filename, format, q.Anonymized),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func (s *GradebookService) session(id string) (*session.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

func (s *GradebookService) sessionInfo(sess *session.Session) *api.SessionInfo {
	info := &api.SessionInfo{
		ID:          sess.ID,
		Filename:    sess.Filename,
		Students:    sess.Analyzer.StudentCount(),
		Assignments: sess.Analyzer.Overview(),
		CreatedAt:   sess.CreatedAt,
	}
	if exp := s.store.ExpiresAt(sess); !exp.IsZero() {
		info.ExpiresAt = &exp
	}
	for _, skipped := range sess.Roster.Skipped {
		info.SkippedRows = append(info.SkippedRows, api.SkippedRow{
			Row:    skipped.Row,
			Value:  skipped.Value,
			Reason: skipped.Error(),
		})
	}
	return info
}

func assignmentError(err error, assignmentID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, analysis.ErrUnknownAssignment) {
		return fmt.Errorf("%w: %q", ErrAssignmentNotFound, assignmentID)
	}
	return err
}

func exportFilename(source string, format exporter.Format, anonymized bool) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	if base == "" {
		base = "gradebook"
	}
	base += "-report"
	if anonymized {
		base += "-anonymized"
	}
	return base + "." + string(format)
}
