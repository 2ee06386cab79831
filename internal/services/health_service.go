package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"plstats/internal/cohort"
	"plstats/pkg/contracts/domain"
)

// HealthService reports process and dataset health.
type HealthService struct {
	version   string
	buildID   string
	holder    *cohort.Holder
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	BuildID   string         `json:"build_id,omitempty"`
	Uptime    string         `json:"uptime"`
	Dataset   DatasetHealth  `json:"dataset"`
	Runtime   map[string]any `json:"runtime,omitempty"`
}

// DatasetHealth describes the published snapshot, if any.
type DatasetHealth struct {
	Loaded    bool             `json:"loaded"`
	Records   int              `json:"records"`
	DateRange domain.YearRange `json:"date_range,omitempty"`
}

// NewHealthService creates a health service. The logger must not be nil.
func NewHealthService(version, buildID string, holder *cohort.Holder, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		buildID:   buildID,
		holder:    holder,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check returns the current health status. The service is "degraded", not
// down, while no snapshot has been published: the process is alive but
// queries will fail.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		BuildID:   s.buildID,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime: map[string]any{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}

	snap := s.holder.Current()
	if snap == nil {
		status.Status = "degraded"
		s.logger.WarnContext(ctx, "health check with no snapshot published")
		return status
	}

	status.Dataset = DatasetHealth{
		Loaded:    true,
		Records:   snap.Len(),
		DateRange: snap.Metadata().DateRange,
	}
	return status
}
