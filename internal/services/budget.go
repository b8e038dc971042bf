package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// ReportPublisher pushes a closed report id onto the sync queue. The AMQP
// client implements it; a nil publisher disables mirroring.
type ReportPublisher interface {
	PublishReportSync(ctx context.Context, reportID int64) error
}

// BudgetService owns the budget period lifecycle: the usage projection and
// the month-close orchestration.
type BudgetService struct {
	store     storage.Store
	publisher ReportPublisher
}

func NewBudgetService(store storage.Store, publisher ReportPublisher) *BudgetService {
	return &BudgetService{store: store, publisher: publisher}
}

// CategoryUsage computes per-category consumption for one calendar month.
// Spending counts every non-income, non-transfer transaction in the month,
// matched to its category by stable id when linked, by case-insensitive
// name otherwise. Pure read, no mutation.
func (s *BudgetService) CategoryUsage(ctx context.Context, year, month int) ([]core.CategoryUsage, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	spending, err := s.monthSpending(ctx, s.store, year, month)
	if err != nil {
		return nil, err
	}

	usage := make([]core.CategoryUsage, 0, len(categories))
	for _, c := range categories {
		usage = append(usage, core.NewCategoryUsage(c, spending.forCategory(c)))
	}
	return usage, nil
}

// CloseMonthResult is the outcome of a successful month close.
type CloseMonthResult struct {
	ClosedBudget core.Budget
	NewBudget    core.Budget
	Report       core.MonthlyReport
}

// CloseMonth reconciles the active budget period and rolls into the next
// one. Everything runs in a single storage transaction: totals, allocation
// disbursement, the report row, closing the old budget and creating the new
// one. Any failure rolls the whole close back.
//
// Categories with positive unused funds and no caller-supplied allocation
// default to carryover.
func (s *BudgetService) CloseMonth(ctx context.Context, allocations []core.Allocation) (CloseMonthResult, error) {
	var result CloseMonthResult
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		active, err := tx.ActiveBudgets(ctx)
		if err != nil {
			return fmt.Errorf("load active budgets: %w", err)
		}
		if len(active) == 0 {
			return core.Domainf("no active budget found")
		}
		if len(active) > 1 {
			return core.Domainf("multiple active budgets found: %d", len(active))
		}
		current := active[0]

		totals, err := s.monthTotals(ctx, tx, current.Year, current.Month)
		if err != nil {
			return err
		}

		categories, err := tx.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}

		allocByCategory := make(map[int64]core.Allocation, len(allocations))
		for _, a := range allocations {
			allocByCategory[a.CategoryID] = a
		}

		breakdown := make(map[string]core.BreakdownEntry, len(categories))
		totalBudgeted := decimal.Zero
		for _, c := range categories {
			spent := totals.spending.forCategory(c)
			unused := core.Round2(c.BudgetedAmount.Sub(spent))
			breakdown[c.Name] = core.BreakdownEntry{
				Budgeted: c.BudgetedAmount,
				Spent:    spent,
				Unused:   decimal.Max(decimal.Zero, unused),
			}
			totalBudgeted = totalBudgeted.Add(c.BudgetedAmount)

			if unused.IsPositive() {
				if _, ok := allocByCategory[c.ID]; !ok {
					allocByCategory[c.ID] = core.Allocation{
						CategoryID:   c.ID,
						UnusedAmount: unused,
						Action:       core.AllocateCarryover,
					}
				}
			}
		}
		totalBudgeted = core.Round2(totalBudgeted)

		for _, alloc := range allocByCategory {
			if !alloc.UnusedAmount.IsPositive() {
				continue
			}
			category, ok := categoryByID(categories, alloc.CategoryID)
			if !ok {
				continue
			}
			if err := s.disburse(ctx, tx, category, alloc); err != nil {
				return err
			}
		}

		unusedBudget := core.Round2(totalBudgeted.Sub(totals.expenses))
		utilization := decimal.Zero
		if totalBudgeted.IsPositive() {
			utilization = totals.expenses.Mul(oneHundredPct).Div(totalBudgeted).Round(2)
		}

		breakdownJSON, err := json.Marshal(breakdown)
		if err != nil {
			return fmt.Errorf("marshal category breakdown: %w", err)
		}

		result.Report, err = tx.CreateReport(ctx, core.MonthlyReport{
			Month:             current.Month,
			Year:              current.Year,
			TotalIncome:       totals.income,
			TotalExpenses:     totals.expenses,
			BudgetedAmount:    totalBudgeted,
			UnusedBudget:      decimal.Max(decimal.Zero, unusedBudget),
			SavingsAmount:     current.SavingsRate,
			BudgetUtilization: utilization,
			CategoryBreakdown: string(breakdownJSON),
			GoalsContributed:  totals.goals,
			InvestmentsAdded:  totals.investments,
			InstallmentsPaid:  totals.installments,
		})
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}

		current.Status = core.BudgetClosed
		result.ClosedBudget, err = tx.UpdateBudget(ctx, current)
		if err != nil {
			return fmt.Errorf("close budget: %w", err)
		}

		nextYear, nextMonth := core.NextMonth(current.Year, current.Month)
		result.NewBudget, err = tx.CreateBudget(ctx, core.Budget{
			MonthlySalary: current.MonthlySalary,
			SavingsRate:   current.SavingsRate,
			AccountID:     current.AccountID,
			Status:        core.BudgetActive,
			Month:         nextMonth,
			Year:          nextYear,
		})
		if err != nil {
			return fmt.Errorf("create next budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return CloseMonthResult{}, err
	}

	s.publishReportSync(ctx, result.Report.ID)
	return result, nil
}

// disburse applies one allocation decision for a category's unused funds.
func (s *BudgetService) disburse(ctx context.Context, tx storage.Store, category core.BudgetCategory, alloc core.Allocation) error {
	now := time.Now().UTC()

	switch alloc.Action {
	case core.AllocateCarryover:
		category.BudgetedAmount = core.Round2(category.BudgetedAmount.Add(alloc.UnusedAmount))
		_, err := tx.UpdateCategory(ctx, category)
		if err != nil {
			return fmt.Errorf("carry over %s: %w", category.Name, err)
		}
		return nil

	case core.AllocateAccount:
		if alloc.DestinationID == nil {
			return core.Validationf("destination account required for %s allocation", category.Name)
		}
		if _, err := tx.GetAccount(ctx, *alloc.DestinationID); err != nil {
			return err
		}
		// Negative amount marks inbound money; the credit is applied directly
		// instead of through the income sign convention.
		if _, err := tx.CreateTransaction(ctx, core.Transaction{
			Date:        now,
			Description: fmt.Sprintf("Unused %s budget carried to savings", category.Name),
			Amount:      alloc.UnusedAmount.Neg(),
			Category:    "Savings",
			Type:        core.TxIncome,
			AccountID:   alloc.DestinationID,
		}); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, *alloc.DestinationID, alloc.UnusedAmount)

	case core.AllocateGoal:
		if alloc.DestinationID == nil {
			return core.Validationf("destination goal required for %s allocation", category.Name)
		}
		goal, err := tx.GetGoal(ctx, *alloc.DestinationID)
		if err != nil {
			return err
		}
		if goal.AccountID == nil {
			return core.Domainf("goal %s has no linked account", goal.Name)
		}
		if _, err := tx.CreateTransaction(ctx, core.Transaction{
			Date:        now,
			Description: fmt.Sprintf("Deposit from unused %s budget to %s", category.Name, goal.Name),
			Amount:      alloc.UnusedAmount,
			Category:    "Goal",
			Type:        core.TxGoal,
			AccountID:   goal.AccountID,
			GoalID:      &goal.ID,
		}); err != nil {
			return err
		}
		goal.CurrentAmount = core.Round2(goal.CurrentAmount.Add(alloc.UnusedAmount))
		_, err = tx.UpdateGoal(ctx, goal)
		return err

	case core.AllocateInvestment:
		if alloc.DestinationID == nil {
			return core.Validationf("destination investment required for %s allocation", category.Name)
		}
		investment, err := tx.GetInvestment(ctx, *alloc.DestinationID)
		if err != nil {
			return err
		}
		if investment.AccountID == nil {
			return core.Domainf("investment %s has no linked account", investment.Name)
		}
		if _, err := tx.CreateTransaction(ctx, core.Transaction{
			Date:         now,
			Description:  fmt.Sprintf("Deposit from unused %s budget to %s", category.Name, investment.Name),
			Amount:       alloc.UnusedAmount,
			Category:     "Investment",
			Type:         core.TxInvestment,
			AccountID:    investment.AccountID,
			InvestmentID: &investment.ID,
		}); err != nil {
			return err
		}
		investment.CurrentValue = core.Round2(investment.CurrentValue.Add(alloc.UnusedAmount))
		_, err = tx.UpdateInvestment(ctx, investment)
		return err

	default:
		return core.Validationf("invalid allocation action: %s", alloc.Action)
	}
}

func (s *BudgetService) publishReportSync(ctx context.Context, reportID int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Report publisher not available, skipping sync message",
			applog.FieldReportID, reportID)
		return
	}
	if err := s.publisher.PublishReportSync(ctx, reportID); err != nil {
		// The close already committed; the worker catch-up loop will pick
		// the report up later.
		slog.ErrorContext(ctx, "Failed to publish report sync message",
			applog.FieldReportID, reportID,
			applog.FieldError, err)
	}
}

var oneHundredPct = decimal.NewFromInt(100)

// categorySpending maps spending to categories by stable id first, free-text
// name second.
type categorySpending struct {
	byID   map[int64]decimal.Decimal
	byName map[string]decimal.Decimal
}

func (cs categorySpending) forCategory(c core.BudgetCategory) decimal.Decimal {
	total := cs.byID[c.ID].Add(cs.byName[strings.ToLower(c.Name)])
	return core.Round2(total)
}

// monthSpending accumulates per-category spending for the usage projection:
// every transaction in the month that is not income and not part of a
// transfer pair counts, whatever its type.
func (s *BudgetService) monthSpending(ctx context.Context, st storage.Store, year, month int) (categorySpending, error) {
	start, end := core.MonthRange(year, month)
	txs, err := st.ListTransactions(ctx, storage.TransactionFilter{From: &start, To: &end})
	if err != nil {
		return categorySpending{}, fmt.Errorf("list month transactions: %w", err)
	}

	spending := categorySpending{
		byID:   make(map[int64]decimal.Decimal),
		byName: make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		if tx.Type == core.TxIncome || tx.IsTransfer() {
			continue
		}
		if tx.CategoryID != nil {
			spending.byID[*tx.CategoryID] = spending.byID[*tx.CategoryID].Add(tx.Amount.Abs())
		} else if tx.Category != "" {
			key := strings.ToLower(tx.Category)
			spending.byName[key] = spending.byName[key].Add(tx.Amount.Abs())
		}
	}
	return spending, nil
}

type monthTotals struct {
	income       decimal.Decimal
	expenses     decimal.Decimal
	installments decimal.Decimal
	goals        decimal.Decimal
	investments  decimal.Decimal
	spending     categorySpending
}

// monthTotals accumulates the month's transactions the way the report does:
// income sums income rows; installment, goal and positive investment rows
// count as expenses; other non-transfer rows count as expenses and feed the
// per-category spending map.
func (s *BudgetService) monthTotals(ctx context.Context, st storage.Store, year, month int) (monthTotals, error) {
	start, end := core.MonthRange(year, month)
	txs, err := st.ListTransactions(ctx, storage.TransactionFilter{From: &start, To: &end})
	if err != nil {
		return monthTotals{}, fmt.Errorf("list month transactions: %w", err)
	}

	t := monthTotals{
		income:       decimal.Zero,
		expenses:     decimal.Zero,
		installments: decimal.Zero,
		goals:        decimal.Zero,
		investments:  decimal.Zero,
		spending: categorySpending{
			byID:   make(map[int64]decimal.Decimal),
			byName: make(map[string]decimal.Decimal),
		},
	}

	for _, tx := range txs {
		amount := tx.Amount
		switch {
		case tx.Type == core.TxIncome:
			t.income = t.income.Add(amount.Abs())
		case tx.Type == core.TxInstallment:
			t.installments = t.installments.Add(amount.Abs())
			t.expenses = t.expenses.Add(amount.Abs())
		case tx.Type == core.TxGoal:
			t.goals = t.goals.Add(amount.Abs())
			t.expenses = t.expenses.Add(amount.Abs())
		case tx.Type == core.TxInvestment:
			// Liquidation rows carry zero or negative amounts and are not
			// new money invested.
			if amount.IsPositive() {
				t.investments = t.investments.Add(amount)
				t.expenses = t.expenses.Add(amount)
			}
		case !tx.IsTransfer():
			t.expenses = t.expenses.Add(amount.Abs())
			if tx.CategoryID != nil {
				t.spending.byID[*tx.CategoryID] = t.spending.byID[*tx.CategoryID].Add(amount.Abs())
			} else if tx.Category != "" {
				key := strings.ToLower(tx.Category)
				t.spending.byName[key] = t.spending.byName[key].Add(amount.Abs())
			}
		}
	}

	t.income = core.Round2(t.income)
	t.expenses = core.Round2(t.expenses)
	t.installments = core.Round2(t.installments)
	t.goals = core.Round2(t.goals)
	t.investments = core.Round2(t.investments)
	return t, nil
}

func categoryByID(categories []core.BudgetCategory, id int64) (core.BudgetCategory, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.BudgetCategory{}, false
}
