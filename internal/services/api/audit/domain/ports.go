package domain

import (
	"context"

	snapdom "chronicle/internal/services/snapshots/domain"
)

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Timeline(ctx context.Context, recordID string) (TimelineResponse, error)
	Search(ctx context.Context, in SearchInput) (SearchResponse, error)
	Stats(ctx context.Context) (StatsResponse, error)
}

// Ports are the cross module dependencies the audit module consumes
type Ports struct {
	Snapshots snapdom.ReaderPort
}
