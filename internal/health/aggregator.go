package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Aggregator runs a fixed set of dependency probes and reduces their
// results to a single Report. The probe set is fixed at configuration
// time; each call performs an independent probe round.
type Aggregator struct {
	service string
	timeout time.Duration
	probes  []Probe
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator for the named service. timeout is the
// individual time budget applied to every probe.
func NewAggregator(service string, timeout time.Duration, logger *slog.Logger, probes ...Probe) *Aggregator {
	return &Aggregator{
		service: service,
		timeout: timeout,
		probes:  probes,
		logger:  logger.With("component", "health_aggregator"),
	}
}

// Check runs all probes concurrently and returns the reduced report.
// Total latency is bounded by the probe timeout regardless of how any
// individual probe behaves.
func (a *Aggregator) Check(ctx context.Context) Report {
	report := Report{
		Status:  StatusHealthy,
		Service: a.service,
		Checks:  make(map[string]Check, len(a.probes)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, probe := range a.probes {
		wg.Add(1)
		go func(probe Probe) {
			defer wg.Done()

			check := a.runProbe(ctx, probe)

			mu.Lock()
			report.Checks[probe.Name()] = check
			mu.Unlock()

			if check.Status == CheckDown {
				a.logger.Warn("dependency probe failed",
					"dependency", probe.Name(),
					"critical", probe.Critical(),
					"error", check.Error)
			}
		}(probe)
	}

	wg.Wait()

	report.Status = reduce(report.Checks)
	return report
}

// runProbe executes one probe under its own deadline. A probe that outlives
// the deadline is recorded as down with a timeout error; the result channel
// is buffered so the probe goroutine can finish later without leaking a
// blocked send past the response.
func (a *Aggregator) runProbe(ctx context.Context, probe Probe) Check {
	probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)

	go func() {
		errCh <- probe.Check(probeCtx)
	}()

	select {
	case err := <-errCh:
		check := Check{
			Status:    CheckUp,
			LatencyMs: time.Since(start).Milliseconds(),
			Critical:  probe.Critical(),
		}
		if err != nil {
			check.Status = CheckDown
			check.Error = err.Error()
		}
		return check

	case <-probeCtx.Done():
		return Check{
			Status:    CheckDown,
			LatencyMs: time.Since(start).Milliseconds(),
			Critical:  probe.Critical(),
			Error:     ErrProbeTimeout.Error(),
		}
	}
}

// reduce derives the overall status: healthy iff every probe is up,
// unhealthy iff any critical probe is down, degraded otherwise.
func reduce(checks map[string]Check) Status {
	status := StatusHealthy
	for _, check := range checks {
		if check.Status != CheckDown {
			continue
		}
		if check.Critical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}
