package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	auditrepo "github.com/mrlokans/mycv/internal/database/audit"
	"github.com/mrlokans/mycv/internal/database/reports"
	"github.com/mrlokans/mycv/internal/entities"
)

// Each controller depends on the narrow interface it needs; the concrete
// repositories and clients satisfy them.

// ReportStore persists reports and computes estimates.
type ReportStore interface {
	Create(ctx context.Context, report *entities.Report, ownerID uint) error
	SetApproval(ctx context.Context, id uint, approved bool) (*entities.Report, error)
	Estimate(ctx context.Context, q reports.EstimateQuery) (*reports.Estimate, error)
}

// AuditLister reads audit events.
type AuditLister interface {
	List(ctx context.Context, f auditrepo.Filter) ([]entities.AuditEvent, int64, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

var _ ReportStore = (*reports.Repository)(nil)
