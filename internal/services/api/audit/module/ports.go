package module

import (
	"context"

	"chronicle/internal/services/api/audit/domain"
	auditsvc "chronicle/internal/services/api/audit/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptAuditPort struct{ svc auditsvc.Service }

// Timeline returns a record's capture history with its status transitions
func (a adaptAuditPort) Timeline(ctx context.Context, recordID string) (domain.TimelineResponse, error) {
	return a.svc.Timeline(ctx, recordID)
}

// Search pages snapshots across records
func (a adaptAuditPort) Search(ctx context.Context, in domain.SearchInput) (domain.SearchResponse, error) {
	return a.svc.Search(ctx, in)
}

// Stats summarizes the snapshot store
func (a adaptAuditPort) Stats(ctx context.Context) (domain.StatsResponse, error) {
	return a.svc.Stats(ctx)
}
