package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// DashboardStats is the aggregate view served by the dashboard endpoint.
// Trends compare the current month to the previous one in percent.
type DashboardStats struct {
	TotalBalance    decimal.Decimal
	TotalIncome     decimal.Decimal
	TotalExpenses   decimal.Decimal
	RemainingBudget decimal.Decimal
	IncomeTrend     decimal.Decimal
	ExpensesTrend   decimal.Decimal
	CategoryData    []CategoryAmount
	MonthlyData     []MonthlyFlow
}

// CategoryAmount is one slice of the category spending chart.
type CategoryAmount struct {
	Name  string
	Value decimal.Decimal
}

// MonthlyFlow is one bar of the six-month income/expense history.
type MonthlyFlow struct {
	Month    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// StatsService computes read-side dashboard aggregates. Pure projection,
// never mutates state.
type StatsService struct {
	store storage.Store
}

func NewStatsService(store storage.Store) *StatsService {
	return &StatsService{store: store}
}

// Stats aggregates balances and the income/expense flows around now.
func (s *StatsService) Stats(ctx context.Context, now time.Time) (DashboardStats, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list transactions: %w", err)
	}

	stats := DashboardStats{}
	for _, a := range accounts {
		stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
	}
	stats.TotalBalance = core.Round2(stats.TotalBalance)

	currentStart, _ := core.MonthRange(now.Year(), int(now.Month()))
	prevYear, prevMonth := previousMonth(now.Year(), int(now.Month()))
	prevStart, _ := core.MonthRange(prevYear, prevMonth)

	var prevIncome, prevExpenses decimal.Decimal
	categoryData := make(map[string]decimal.Decimal)

	for _, t := range txs {
		switch {
		case !t.Date.Before(currentStart):
			if t.Type == core.TxIncome {
				stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
			} else if !t.IsTransfer() {
				stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
				name := t.Category
				if name == "" {
					name = "Others"
				}
				categoryData[name] = categoryData[name].Add(t.Amount)
			}
		case !t.Date.Before(prevStart):
			if t.Type == core.TxIncome {
				prevIncome = prevIncome.Add(t.Amount)
			} else if !t.IsTransfer() {
				prevExpenses = prevExpenses.Add(t.Amount)
			}
		}
	}
	stats.TotalIncome = core.Round2(stats.TotalIncome)
	stats.TotalExpenses = core.Round2(stats.TotalExpenses)
	stats.IncomeTrend = trend(stats.TotalIncome, core.Round2(prevIncome))
	stats.ExpensesTrend = trend(stats.TotalExpenses, core.Round2(prevExpenses))

	active, err := s.store.ActiveBudgets(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("load active budgets: %w", err)
	}
	if len(active) > 0 {
		stats.RemainingBudget = core.Round2(active[0].MonthlySalary.Sub(stats.TotalExpenses))
	} else {
		stats.RemainingBudget = stats.TotalExpenses.Neg()
	}

	for name, value := range categoryData {
		stats.CategoryData = append(stats.CategoryData, CategoryAmount{
			Name:  name,
			Value: core.Round2(value),
		})
	}

	stats.MonthlyData = monthlyHistory(txs, now, 6)
	return stats, nil
}

// trend is the percent change from previous to current. A zero previous
// value yields 100 when anything moved, 0 otherwise.
func trend(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsPositive() {
		return current.Sub(previous).Mul(oneHundredPct).Div(previous).Round(2)
	}
	if current.IsPositive() {
		return oneHundredPct
	}
	return decimal.Zero
}

func previousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

func monthlyHistory(txs []core.Transaction, now time.Time, months int) []MonthlyFlow {
	flows := make([]MonthlyFlow, 0, months)
	for i := months - 1; i >= 0; i-- {
		year, month := now.Year(), int(now.Month())-i
		for month < 1 {
			month += 12
			year--
		}
		start, end := core.MonthRange(year, month)

		var income, expenses decimal.Decimal
		for _, t := range txs {
			if t.Date.Before(start) || t.Date.After(end) {
				continue
			}
			if t.Type == core.TxIncome {
				income = income.Add(t.Amount)
			} else if !t.IsTransfer() {
				expenses = expenses.Add(t.Amount)
			}
		}
		flows = append(flows, MonthlyFlow{
			Month:    start.Format("Jan"),
			Income:   core.Round2(income),
			Expenses: core.Round2(expenses),
		})
	}
	return flows
}
