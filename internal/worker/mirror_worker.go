package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// MirrorWorker copies closed-month reports to the external sheet. Queue
// messages drive the fast path; a periodic scan over unmirrored reports is
// the backup mechanism in case messages are lost.
type MirrorWorker struct {
	store    storage.Store
	appender sheets.ReportAppender
}

func NewMirrorWorker(store storage.Store, appender sheets.ReportAppender) *MirrorWorker {
	return &MirrorWorker{
		store:    store,
		appender: appender,
	}
}

// HandleSyncMessage mirrors the report named by one queue message. Reports
// already mirrored are acknowledged without a second append, so redelivered
// messages are harmless.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	slog.InfoContext(ctx, "Processing report sync message",
		applog.FieldOperation, applog.OpSync,
		applog.FieldReportID, msg.ReportID)

	report, err := w.store.GetReport(ctx, msg.ReportID)
	if err != nil {
		return fmt.Errorf("get report from storage: %w", err)
	}
	if report.MirroredAt != nil {
		slog.InfoContext(ctx, "Report already mirrored, skipping",
			applog.FieldReportID, report.ID,
			"mirrored_at", report.MirroredAt.Format(time.RFC3339))
		return nil
	}

	return w.mirror(ctx, report.ID)
}

// ProcessUnmirrored mirrors every report the fast path missed.
func (w *MirrorWorker) ProcessUnmirrored(ctx context.Context) error {
	pending, err := w.store.UnmirroredReports(ctx)
	if err != nil {
		return fmt.Errorf("list unmirrored reports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unmirrored reports", "count", len(pending))

	for _, report := range pending {
		if err := w.mirror(ctx, report.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror report",
				applog.FieldReportID, report.ID,
				applog.FieldError, err)
			continue
		}
	}
	return nil
}

// StartupCheck runs one catch-up pass when the worker boots, recovering from
// messages dropped while it was down.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.UnmirroredReports(ctx)
	if err != nil {
		return fmt.Errorf("list unmirrored reports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unmirrored reports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unmirrored reports on startup, processing...",
		applog.FieldOperation, applog.OpStartup,
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, report := range pending {
		if err := w.mirror(ctx, report.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror report during startup",
				applog.FieldReportID, report.ID,
				applog.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup mirror check completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)
	return nil
}

// RunPeriodic scans for unmirrored reports every interval until ctx ends.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessUnmirrored(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror pass failed", applog.FieldError, err)
			}
		}
	}
}

func (w *MirrorWorker) mirror(ctx context.Context, reportID int64) error {
	report, err := w.store.GetReport(ctx, reportID)
	if err != nil {
		return fmt.Errorf("get report: %w", err)
	}

	ref, err := w.appender.AppendReport(ctx, report)
	if err != nil {
		return fmt.Errorf("append report to sheet: %w", err)
	}

	if err := w.store.MarkReportMirrored(ctx, report.ID, time.Now().UTC()); err != nil {
		// The append happened; the catch-up scan would re-append, so this
		// failure must surface.
		return fmt.Errorf("mark report mirrored: %w", err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpAppend).
		WithReport(report.ID, report.Year, report.Month)
	fields[applog.FieldSheetsRef] = ref
	slog.InfoContext(ctx, "Mirrored report", fields.ToSlice()...)
	return nil
}
