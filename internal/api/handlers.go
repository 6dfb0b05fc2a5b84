package api

import (
	"context"
	"time"

	"github.com/vytor/logicbuild/internal/events"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/services"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	GameService    services.GameService
	Events         *events.Recorder
	Metrics        *metrics.Metrics
	HealthChecks   []HealthCheck
	RequestTimeout time.Duration
}
