package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportAppender mirrors one monthly report to the external sheet and
	// returns a reference to the appended row.
	ReportAppender interface {
		AppendReport(ctx context.Context, r core.MonthlyReport) (rowRef string, err error)
	}
)
