package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/oichat/backend/internal/models"
	"github.com/oichat/backend/internal/whatsapp"
)

type mockStore struct {
	stale   []*models.WhatsAppConnection
	err     error
	settled []string
}

func (m *mockStore) ListStalePending(_ context.Context, _ time.Duration) ([]*models.WhatsAppConnection, error) {
	return m.stale, m.err
}

func (m *mockStore) MarkError(_ context.Context, instanceName string) error {
	m.settled = append(m.settled, instanceName)
	return nil
}

type mockReporter struct {
	reported []string
	failFor  map[string]error
	status   string
}

func (m *mockReporter) ReportStatus(_ context.Context, instanceName string) (*whatsapp.StatusReport, error) {
	if err := m.failFor[instanceName]; err != nil {
		return nil, err
	}
	m.reported = append(m.reported, instanceName)
	status := m.status
	if status == "" {
		status = models.ConnectionStatusError
	}
	return &whatsapp.StatusReport{InstanceName: instanceName, Status: status}, nil
}

func pendingConn(name string, age time.Duration) *models.WhatsAppConnection {
	return &models.WhatsAppConnection{
		ID: uuid.New(), UserID: uuid.New(), AgentID: uuid.New(),
		InstanceName: name, Status: models.ConnectionStatusPending,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestWorkReportsEachStaleConnection(t *testing.T) {
	store := &mockStore{stale: []*models.WhatsAppConnection{
		pendingConn("wa_a", 2*time.Minute),
		pendingConn("wa_b", 2*time.Minute),
	}}
	reporter := &mockReporter{}
	w := NewReconcilePendingWorker(store, reporter, nil)

	if err := w.Work(context.Background(), &river.Job[ReconcilePendingArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(reporter.reported) != 2 {
		t.Fatalf("expected 2 reports, got %v", reporter.reported)
	}
}

func TestWorkContinuesPastFailures(t *testing.T) {
	store := &mockStore{stale: []*models.WhatsAppConnection{
		pendingConn("wa_bad", 2*time.Minute),
		pendingConn("wa_good", 2*time.Minute),
	}}
	reporter := &mockReporter{failFor: map[string]error{"wa_bad": errors.New("provider down")}}
	w := NewReconcilePendingWorker(store, reporter, nil)

	if err := w.Work(context.Background(), &river.Job[ReconcilePendingArgs]{}); err != nil {
		t.Fatalf("a single failed check must not fail the sweep: %v", err)
	}
	if len(reporter.reported) != 1 || reporter.reported[0] != "wa_good" {
		t.Fatalf("expected the healthy instance still swept, got %v", reporter.reported)
	}
}

func TestWorkSurfacesListFailure(t *testing.T) {
	store := &mockStore{err: errors.New("db down")}
	w := NewReconcilePendingWorker(store, &mockReporter{}, nil)

	if err := w.Work(context.Background(), &river.Job[ReconcilePendingArgs]{}); err == nil {
		t.Fatal("expected list failure to surface so River retries the job")
	}
}

func TestWorkSettlesAbandonedAttempts(t *testing.T) {
	store := &mockStore{stale: []*models.WhatsAppConnection{
		pendingConn("wa_abandoned", 20*time.Minute),
		pendingConn("wa_fresh", 2*time.Minute),
	}}
	// Provider reachable but the link never confirmed: record stays PENDING.
	reporter := &mockReporter{status: models.ConnectionStatusPending}
	w := NewReconcilePendingWorker(store, reporter, nil)

	if err := w.Work(context.Background(), &river.Job[ReconcilePendingArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(store.settled) != 1 || store.settled[0] != "wa_abandoned" {
		t.Fatalf("expected only the old attempt settled to ERROR, got %v", store.settled)
	}
}

func TestWorkLeavesResolvedAttemptsAlone(t *testing.T) {
	store := &mockStore{stale: []*models.WhatsAppConnection{pendingConn("wa_old", 20*time.Minute)}}
	// The check itself already settled the record (e.g. to ERROR).
	reporter := &mockReporter{status: models.ConnectionStatusError}
	w := NewReconcilePendingWorker(store, reporter, nil)

	if err := w.Work(context.Background(), &river.Job[ReconcilePendingArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(store.settled) != 0 {
		t.Fatalf("expected no extra MarkError for an already-settled record, got %v", store.settled)
	}
}
