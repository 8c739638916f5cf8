package interviews

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"recruitai-backend/internal/shared/telemetry"
)

// Reconciler periodically returns abandoned in_progress sessions to scheduled.
type Reconciler struct {
	svc        *Service
	schedule   string
	staleAfter time.Duration
	cron       *cron.Cron
}

// NewReconciler builds a reconciler; schedule uses cron syntax or descriptors such as "@every 5m".
func NewReconciler(svc *Service, schedule string, staleAfter time.Duration) *Reconciler {
	if schedule == "" {
		schedule = "@every 5m"
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Reconciler{svc: svc, schedule: schedule, staleAfter: staleAfter, cron: cron.New()}
}

// Start registers the job and starts the scheduler.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() { _, _ = r.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule interview reconciler: %w", err)
	}
	r.cron.Start()
	telemetry.Info("interview.reconciler_started", map[string]any{"schedule": r.schedule, "stale_after": r.staleAfter.String()})
	return nil
}

// Stop halts the scheduler and waits for a running job.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := r.svc.ReconcileStale(ctx, r.staleAfter)
	if err != nil {
		telemetry.Error("interview.reconcile_failed", map[string]any{"error": err, "reset": n})
		return n, err
	}
	if n > 0 {
		telemetry.Info("interview.reconciled", map[string]any{"reset": n})
	}
	return n, nil
}
