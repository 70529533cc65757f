package http

import (
	"context"
	"io"

	"gradecli/internal/services"
	api "gradecli/pkg/contracts/api/v1"
	"gradecli/pkg/contracts/domain"
)

// GradebookServiceInterface defines the gradebook session operations the handler needs
type GradebookServiceInterface interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*api.SessionInfo, error)
	Get(ctx context.Context, id string) (*api.SessionInfo, error)
	Delete(ctx context.Context, id string) error
	Assignments(ctx context.Context, id string) ([]domain.AssignmentSummary, error)

	Ranking(ctx context.Context, id, assignmentID string, q api.RankingQuery) (*api.RankingResponse, error)
	Statistics(ctx context.Context, id, assignmentID string) (domain.BasicStatistics, error)
	Distribution(ctx context.Context, id, assignmentID string) (domain.GradeDistribution, error)
	BoxPlot(ctx context.Context, id, assignmentID string) (domain.BoxPlot, error)
	Histogram(ctx context.Context, id, assignmentID string) (domain.Histogram, error)

	Export(ctx context.Context, id string, q api.ExportQuery) (*services.ExportResult, error)
}

var _ GradebookServiceInterface = (*services.GradebookService)(nil)
