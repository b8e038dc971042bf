package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Wire representations mirror the persisted entities with camelCase JSON
// names. Amounts travel as decimal strings to keep cent precision intact.

type apiAccount struct {
	ID          int64            `json:"id,omitempty"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Balance     decimal.Decimal  `json:"balance"`
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
}

type apiTransaction struct {
	ID                   int64           `json:"id,omitempty"`
	Date                 time.Time       `json:"date"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `json:"amount"`
	Category             string          `json:"category"`
	CategoryID           *int64          `json:"categoryId,omitempty"`
	Type                 string          `json:"type"`
	AccountID            *int64          `json:"accountId,omitempty"`
	GoalID               *int64          `json:"goalId,omitempty"`
	InstallmentID        *int64          `json:"installmentId,omitempty"`
	InvestmentID         *int64          `json:"investmentId,omitempty"`
	SourceAccountID      *int64          `json:"sourceAccountId,omitempty"`
	DestinationAccountID *int64          `json:"destinationAccountId,omitempty"`
	TransferGroupID      string          `json:"transferGroupId,omitempty"`
	CreatedAt            *time.Time      `json:"createdAt,omitempty"`
}

type apiCategory struct {
	ID             int64           `json:"id,omitempty"`
	Name           string          `json:"name"`
	BudgetedAmount decimal.Decimal `json:"budgetedAmount"`
	IsPredefined   bool            `json:"isPredefined"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
}

type apiBudget struct {
	ID            int64           `json:"id,omitempty"`
	MonthlySalary decimal.Decimal `json:"monthlySalary"`
	SavingsRate   decimal.Decimal `json:"savingsRate"`
	AccountID     *int64          `json:"accountId,omitempty"`
	Status        string          `json:"status"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
}

type apiReport struct {
	ID                int64           `json:"id"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	BudgetedAmount    decimal.Decimal `json:"budgetedAmount"`
	UnusedBudget      decimal.Decimal `json:"unusedBudget"`
	SavingsAmount     decimal.Decimal `json:"savingsAmount"`
	BudgetUtilization decimal.Decimal `json:"budgetUtilization"`
	CategoryBreakdown string          `json:"categoryBreakdown"`
	GoalsContributed  decimal.Decimal `json:"goalsContributed"`
	InvestmentsAdded  decimal.Decimal `json:"investmentsAdded"`
	InstallmentsPaid  decimal.Decimal `json:"installmentsPaid"`
	MirroredAt        *time.Time      `json:"mirroredAt,omitempty"`
	CreatedAt         *time.Time      `json:"createdAt,omitempty"`
}

type apiGoal struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      time.Time       `json:"deadline"`
	AccountID     *int64          `json:"accountId,omitempty"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
}

type apiInstallment struct {
	ID              int64           `json:"id,omitempty"`
	Name            string          `json:"name"`
	MonthlyAmount   decimal.Decimal `json:"monthlyAmount"`
	Term            int             `json:"term"`
	MonthsPaid      int             `json:"monthsPaid"`
	StartDate       time.Time       `json:"startDate"`
	NextPaymentDate time.Time       `json:"nextPaymentDate"`
	AccountID       int64           `json:"accountId"`
	Status          string          `json:"status"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}

type apiInvestment struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	AccountID     *int64          `json:"accountId,omitempty"`
	StartDate     time.Time       `json:"startDate"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
}

type apiCategoryUsage struct {
	CategoryID     int64           `json:"id"`
	Name           string          `json:"name"`
	BudgetedAmount decimal.Decimal `json:"budgetedAmount"`
	SpentAmount    decimal.Decimal `json:"spentAmount"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentUsed    int64           `json:"percentUsed"`
	Color          string          `json:"colorIndicator"`
	IsPredefined   bool            `json:"isPredefined"`
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toAPIAccount(a core.Account) apiAccount {
	return apiAccount{
		ID:          a.ID,
		Name:        a.Name,
		Type:        string(a.Type),
		Balance:     a.Balance,
		CreditLimit: a.CreditLimit,
		CreatedAt:   timeOrNil(a.CreatedAt),
	}
}

func (a apiAccount) toCore() core.Account {
	return core.Account{
		ID:          a.ID,
		Name:        a.Name,
		Type:        core.AccountType(a.Type),
		Balance:     a.Balance,
		CreditLimit: a.CreditLimit,
	}
}

func toAPITransaction(t core.Transaction) apiTransaction {
	return apiTransaction{
		ID:                   t.ID,
		Date:                 t.Date,
		Description:          t.Description,
		Amount:               t.Amount,
		Category:             t.Category,
		CategoryID:           t.CategoryID,
		Type:                 string(t.Type),
		AccountID:            t.AccountID,
		GoalID:               t.GoalID,
		InstallmentID:        t.InstallmentID,
		InvestmentID:         t.InvestmentID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		TransferGroupID:      t.TransferGroupID,
		CreatedAt:            timeOrNil(t.CreatedAt),
	}
}

func (t apiTransaction) toCore() core.Transaction {
	return core.Transaction{
		ID:                   t.ID,
		Date:                 t.Date,
		Description:          t.Description,
		Amount:               t.Amount,
		Category:             t.Category,
		CategoryID:           t.CategoryID,
		Type:                 core.TransactionType(t.Type),
		AccountID:            t.AccountID,
		GoalID:               t.GoalID,
		InstallmentID:        t.InstallmentID,
		InvestmentID:         t.InvestmentID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		TransferGroupID:      t.TransferGroupID,
	}
}

func toAPICategory(c core.BudgetCategory) apiCategory {
	return apiCategory{
		ID:             c.ID,
		Name:           c.Name,
		BudgetedAmount: c.BudgetedAmount,
		IsPredefined:   c.IsPredefined,
		CreatedAt:      timeOrNil(c.CreatedAt),
	}
}

func (c apiCategory) toCore() core.BudgetCategory {
	return core.BudgetCategory{
		ID:             c.ID,
		Name:           c.Name,
		BudgetedAmount: c.BudgetedAmount,
		IsPredefined:   c.IsPredefined,
	}
}

func toAPIBudget(b core.Budget) apiBudget {
	return apiBudget{
		ID:            b.ID,
		MonthlySalary: b.MonthlySalary,
		SavingsRate:   b.SavingsRate,
		AccountID:     b.AccountID,
		Status:        string(b.Status),
		Month:         b.Month,
		Year:          b.Year,
		CreatedAt:     timeOrNil(b.CreatedAt),
	}
}

func (b apiBudget) toCore() core.Budget {
	return core.Budget{
		ID:            b.ID,
		MonthlySalary: b.MonthlySalary,
		SavingsRate:   b.SavingsRate,
		AccountID:     b.AccountID,
		Status:        core.BudgetStatus(b.Status),
		Month:         b.Month,
		Year:          b.Year,
	}
}

func toAPIReport(r core.MonthlyReport) apiReport {
	return apiReport{
		ID:                r.ID,
		Month:             r.Month,
		Year:              r.Year,
		TotalIncome:       r.TotalIncome,
		TotalExpenses:     r.TotalExpenses,
		BudgetedAmount:    r.BudgetedAmount,
		UnusedBudget:      r.UnusedBudget,
		SavingsAmount:     r.SavingsAmount,
		BudgetUtilization: r.BudgetUtilization,
		CategoryBreakdown: r.CategoryBreakdown,
		GoalsContributed:  r.GoalsContributed,
		InvestmentsAdded:  r.InvestmentsAdded,
		InstallmentsPaid:  r.InstallmentsPaid,
		MirroredAt:        r.MirroredAt,
		CreatedAt:         timeOrNil(r.CreatedAt),
	}
}

func toAPIGoal(g core.Goal) apiGoal {
	return apiGoal{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Deadline:      g.Deadline,
		AccountID:     g.AccountID,
		CreatedAt:     timeOrNil(g.CreatedAt),
	}
}

func (g apiGoal) toCore() core.Goal {
	return core.Goal{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Deadline:      g.Deadline,
		AccountID:     g.AccountID,
	}
}

func toAPIInstallment(i core.Installment) apiInstallment {
	return apiInstallment{
		ID:              i.ID,
		Name:            i.Name,
		MonthlyAmount:   i.MonthlyAmount,
		Term:            i.Term,
		MonthsPaid:      i.MonthsPaid,
		StartDate:       i.StartDate,
		NextPaymentDate: i.NextPaymentDate,
		AccountID:       i.AccountID,
		Status:          string(i.Status),
		CreatedAt:       timeOrNil(i.CreatedAt),
	}
}

func (i apiInstallment) toCore() core.Installment {
	return core.Installment{
		ID:              i.ID,
		Name:            i.Name,
		MonthlyAmount:   i.MonthlyAmount,
		Term:            i.Term,
		MonthsPaid:      i.MonthsPaid,
		StartDate:       i.StartDate,
		NextPaymentDate: i.NextPaymentDate,
		AccountID:       i.AccountID,
		Status:          core.InstallmentStatus(i.Status),
	}
}

func toAPIInvestment(v core.Investment) apiInvestment {
	return apiInvestment{
		ID:            v.ID,
		Name:          v.Name,
		Type:          v.Type,
		InitialAmount: v.InitialAmount,
		CurrentValue:  v.CurrentValue,
		AccountID:     v.AccountID,
		StartDate:     v.StartDate,
		CreatedAt:     timeOrNil(v.CreatedAt),
	}
}

func (v apiInvestment) toCore() core.Investment {
	return core.Investment{
		ID:            v.ID,
		Name:          v.Name,
		Type:          v.Type,
		InitialAmount: v.InitialAmount,
		CurrentValue:  v.CurrentValue,
		AccountID:     v.AccountID,
		StartDate:     v.StartDate,
	}
}

func toAPIUsage(u core.CategoryUsage) apiCategoryUsage {
	return apiCategoryUsage{
		CategoryID:     u.CategoryID,
		Name:           u.Name,
		BudgetedAmount: u.BudgetedAmount,
		SpentAmount:    u.SpentAmount,
		Remaining:      u.Remaining,
		PercentUsed:    u.PercentUsed,
		Color:          string(u.Color),
		IsPredefined:   u.IsPredefined,
	}
}
