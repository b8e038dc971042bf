package worker

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	sheetsmem "fintrack/internal/sheets/memory"
	storemem "fintrack/internal/storage/memory"
)

func newReport(t *testing.T, store *storemem.Store, year, month int) core.MonthlyReport {
	t.Helper()
	report, err := store.CreateReport(context.Background(), core.MonthlyReport{
		Year:  year,
		Month: month,
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return report
}

func TestHandleSyncMessageMirrorsOnce(t *testing.T) {
	store := storemem.NewStore()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)
	ctx := context.Background()

	report := newReport(t, store, 2026, 4)

	if err := w.HandleSyncMessage(ctx, &amqp.ReportSyncMessage{ReportID: report.ID}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := len(mirror.Reports()); got != 1 {
		t.Fatalf("mirrored rows=%d, want 1", got)
	}

	stored, err := store.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if stored.MirroredAt == nil {
		t.Fatal("report not marked mirrored")
	}

	// Redelivery is acknowledged without a duplicate row.
	if err := w.HandleSyncMessage(ctx, &amqp.ReportSyncMessage{ReportID: report.ID}); err != nil {
		t.Fatalf("redelivered handle: %v", err)
	}
	if got := len(mirror.Reports()); got != 1 {
		t.Fatalf("mirrored rows after redelivery=%d, want 1", got)
	}
}

func TestHandleSyncMessageUnknownReport(t *testing.T) {
	w := NewMirrorWorker(storemem.NewStore(), sheetsmem.New())

	err := w.HandleSyncMessage(context.Background(), &amqp.ReportSyncMessage{ReportID: 99})
	var notFound *core.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestProcessUnmirroredCatchesUp(t *testing.T) {
	store := storemem.NewStore()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)
	ctx := context.Background()

	newReport(t, store, 2026, 2)
	newReport(t, store, 2026, 3)
	done := newReport(t, store, 2026, 1)
	if err := w.HandleSyncMessage(ctx, &amqp.ReportSyncMessage{ReportID: done.ID}); err != nil {
		t.Fatalf("pre-mirror: %v", err)
	}

	if err := w.ProcessUnmirrored(ctx); err != nil {
		t.Fatalf("process unmirrored: %v", err)
	}
	if got := len(mirror.Reports()); got != 3 {
		t.Fatalf("mirrored rows=%d, want 3", got)
	}

	pending, err := store.UnmirroredReports(ctx)
	if err != nil {
		t.Fatalf("unmirrored: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending=%d, want 0", len(pending))
	}
}

func TestStartupCheckEmptyStore(t *testing.T) {
	w := NewMirrorWorker(storemem.NewStore(), sheetsmem.New())
	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("startup check: %v", err)
	}
}
