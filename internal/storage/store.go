// Package storage persists the finance domain model. The SQLite
// implementation is the production backend; an in-memory implementation
// lives in the memory subpackage for tests and ephemeral runs.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Nil or zero fields are ignored.
type TransactionFilter struct {
	From            *time.Time
	To              *time.Time
	Type            *core.TransactionType
	AccountID       *int64
	Category        string
	TransferGroupID string
}

// ReportFilter narrows ListReports.
type ReportFilter struct {
	Year  *int
	Limit int
}

// Store is the persistence boundary for all domain entities. Write
// sequences that must be atomic run through RunInTx, which hands the
// callback a Store bound to one transaction.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	// AdjustBalance applies a signed delta to an account balance.
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error

	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error)
	GetCategory(ctx context.Context, id int64) (core.BudgetCategory, error)
	GetCategoryByName(ctx context.Context, name string) (core.BudgetCategory, error)
	ListCategories(ctx context.Context) ([]core.BudgetCategory, error)
	UpdateCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	// ActiveBudgets returns every budget currently marked active. The
	// month-close orchestrator treats any count other than one as a fault.
	ActiveBudgets(ctx context.Context) ([]core.Budget, error)

	CreateReport(ctx context.Context, r core.MonthlyReport) (core.MonthlyReport, error)
	GetReport(ctx context.Context, id int64) (core.MonthlyReport, error)
	GetReportByMonth(ctx context.Context, year, month int) (core.MonthlyReport, error)
	ListReports(ctx context.Context, f ReportFilter) ([]core.MonthlyReport, error)
	UnmirroredReports(ctx context.Context) ([]core.MonthlyReport, error)
	MarkReportMirrored(ctx context.Context, id int64, at time.Time) error

	CreateInstallment(ctx context.Context, i core.Installment) (core.Installment, error)
	GetInstallment(ctx context.Context, id int64) (core.Installment, error)
	ListInstallments(ctx context.Context) ([]core.Installment, error)
	UpdateInstallment(ctx context.Context, i core.Installment) (core.Installment, error)
	DeleteInstallment(ctx context.Context, id int64) error

	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error

	CreateInvestment(ctx context.Context, v core.Investment) (core.Investment, error)
	GetInvestment(ctx context.Context, id int64) (core.Investment, error)
	ListInvestments(ctx context.Context) ([]core.Investment, error)
	UpdateInvestment(ctx context.Context, v core.Investment) (core.Investment, error)
	DeleteInvestment(ctx context.Context, id int64) error

	// RunInTx executes fn atomically. The Store passed to fn sees
	// uncommitted writes; any error rolls everything back. Nested calls
	// reuse the ambient transaction.
	RunInTx(ctx context.Context, fn func(Store) error) error
}
