package health

import (
	"context"
	"errors"
)

// Status is the aggregate health verdict for the whole instance.
type Status string

const (
	// StatusHealthy means every dependency probe reported up.
	StatusHealthy Status = "healthy"

	// StatusDegraded means a non-critical dependency is down while all
	// critical dependencies are up. The instance keeps serving traffic.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means at least one critical dependency is down.
	StatusUnhealthy Status = "unhealthy"
)

// CheckStatus is the liveness verdict for a single dependency.
type CheckStatus string

const (
	CheckUp   CheckStatus = "up"
	CheckDown CheckStatus = "down"
)

// ErrProbeTimeout is recorded when a probe does not return within its
// time budget. The probe is reported down, never left pending.
var ErrProbeTimeout = errors.New("probe timed out")

// Check holds the outcome of one dependency probe.
type Check struct {
	Status    CheckStatus `json:"status"`
	LatencyMs int64       `json:"latency_ms"`
	Critical  bool        `json:"critical"`
	Error     string      `json:"error,omitempty"`
}

// Report is a snapshot built fresh per request: per-dependency detail plus
// the derived overall status. It is serialized and discarded, never cached;
// a cached report would defeat the purpose of a liveness check.
type Report struct {
	Status  Status           `json:"status"`
	Service string           `json:"service"`
	Checks  map[string]Check `json:"checks"`
}

// Probe is a bounded-time liveness check against one external dependency.
type Probe interface {
	// Name identifies the dependency in the report.
	Name() string

	// Critical reports whether a failure of this dependency makes the
	// whole instance unserviceable.
	Critical() bool

	// Check performs the liveness check, honoring ctx cancellation.
	Check(ctx context.Context) error
}
