package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/oichat/backend/internal/models"
	"github.com/oichat/backend/internal/whatsapp"
)

const (
	// stalePendingAge is how long a PENDING record may sit before the sweep
	// picks it up. Fresh attempts are left to the client-side poller.
	stalePendingAge = time.Minute

	// abandonedAfter is the cutoff past which a still-unconfirmed attempt is
	// settled to ERROR instead of being re-swept forever. Pairing artifacts
	// expire well within this window, so the attempt cannot succeed anymore.
	abandonedAfter = 15 * time.Minute
)

type ReconcilePendingArgs struct{}

func (ReconcilePendingArgs) Kind() string { return "reconcile_pending_connections" }

// PendingStore lists PENDING connection records older than the given age and
// settles the ones that will never confirm.
type PendingStore interface {
	ListStalePending(ctx context.Context, olderThan time.Duration) ([]*models.WhatsAppConnection, error)
	MarkError(ctx context.Context, instanceName string) error
}

// StatusReporter checks one instance against the provider and settles the
// stored record (implemented by the whatsapp service).
type StatusReporter interface {
	ReportStatus(ctx context.Context, instanceName string) (*whatsapp.StatusReport, error)
}

// ReconcilePendingWorker sweeps PENDING connections whose client went away
// before polling resolved them. Each sweep asks the provider for the real
// state; records settle to CONNECTED or ERROR through the same guarded
// transitions the poller uses, so a concurrent client poll is harmless.
type ReconcilePendingWorker struct {
	river.WorkerDefaults[ReconcilePendingArgs]
	connections PendingStore
	reporter    StatusReporter
	log         *slog.Logger
}

func NewReconcilePendingWorker(connections PendingStore, reporter StatusReporter, log *slog.Logger) *ReconcilePendingWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcilePendingWorker{connections: connections, reporter: reporter, log: log}
}

func (w *ReconcilePendingWorker) Work(ctx context.Context, job *river.Job[ReconcilePendingArgs]) error {
	stale, err := w.connections.ListStalePending(ctx, stalePendingAge)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	w.log.Info("reconciling stale pending connections", "count", len(stale))
	for _, conn := range stale {
		report, err := w.reporter.ReportStatus(ctx, conn.InstanceName)
		if err != nil {
			w.log.Error("reconcile status check failed", "instance", conn.InstanceName, "error", err)
			continue
		}
		if report.Status == models.ConnectionStatusPending && time.Since(conn.CreatedAt) > abandonedAfter {
			if err := w.connections.MarkError(ctx, conn.InstanceName); err != nil {
				w.log.Error("settle abandoned connection failed", "instance", conn.InstanceName, "error", err)
				continue
			}
			w.log.Info("abandoned connection settled", "instance", conn.InstanceName)
			continue
		}
		w.log.Info("reconciled connection", "instance", conn.InstanceName, "status", report.Status)
	}
	return nil
}
