package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func seedTransaction(t *testing.T, store *memory.Store, date time.Time, amount string, txType core.TransactionType, category string) {
	t.Helper()
	_, err := store.CreateTransaction(context.Background(), core.Transaction{
		Date:        date,
		Description: "seed",
		Amount:      dec(t, amount),
		Category:    category,
		Type:        txType,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func TestStatsAggregatesCurrentMonth(t *testing.T) {
	store := memory.NewStore()
	stats := NewStatsService(store)
	ctx := context.Background()

	newAccount(t, store, "Checking", "1500")
	newAccount(t, store, "Savings", "500")

	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	seedTransaction(t, store, now, "3000", core.TxIncome, "")
	seedTransaction(t, store, now, "200", core.TxExpense, "Groceries")
	seedTransaction(t, store, now, "100", core.TxExpense, "Groceries")
	seedTransaction(t, store, now, "50", core.TxExpense, "")

	got, err := stats.Stats(ctx, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if core.FormatAmount(got.TotalBalance) != "2000.00" {
		t.Errorf("TotalBalance = %s, want 2000.00", core.FormatAmount(got.TotalBalance))
	}
	if core.FormatAmount(got.TotalIncome) != "3000.00" {
		t.Errorf("TotalIncome = %s, want 3000.00", core.FormatAmount(got.TotalIncome))
	}
	if core.FormatAmount(got.TotalExpenses) != "350.00" {
		t.Errorf("TotalExpenses = %s, want 350.00", core.FormatAmount(got.TotalExpenses))
	}

	// No active budget: remaining budget is the negated spend.
	if core.FormatAmount(got.RemainingBudget) != "-350.00" {
		t.Errorf("RemainingBudget = %s, want -350.00", core.FormatAmount(got.RemainingBudget))
	}

	byName := make(map[string]string)
	for _, c := range got.CategoryData {
		byName[c.Name] = core.FormatAmount(c.Value)
	}
	if byName["Groceries"] != "300.00" {
		t.Errorf("Groceries spend = %s, want 300.00", byName["Groceries"])
	}
	if byName["Others"] != "50.00" {
		t.Errorf("Others spend = %s, want 50.00", byName["Others"])
	}
}

func TestStatsTrendsAgainstPreviousMonth(t *testing.T) {
	store := memory.NewStore()
	stats := NewStatsService(store)
	ctx := context.Background()

	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	prev := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedTransaction(t, store, prev, "1000", core.TxIncome, "")
	seedTransaction(t, store, prev, "400", core.TxExpense, "Rent")
	seedTransaction(t, store, now, "1500", core.TxIncome, "")
	seedTransaction(t, store, now, "200", core.TxExpense, "Rent")

	got, err := stats.Stats(ctx, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if got.IncomeTrend.String() != "50" {
		t.Errorf("IncomeTrend = %s, want 50", got.IncomeTrend)
	}
	if got.ExpensesTrend.String() != "-50" {
		t.Errorf("ExpensesTrend = %s, want -50", got.ExpensesTrend)
	}
}

func TestStatsTrendWithEmptyPreviousMonth(t *testing.T) {
	store := memory.NewStore()
	stats := NewStatsService(store)
	ctx := context.Background()

	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	seedTransaction(t, store, now, "500", core.TxIncome, "")

	got, err := stats.Stats(ctx, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.IncomeTrend.String() != "100" {
		t.Errorf("IncomeTrend = %s, want 100", got.IncomeTrend)
	}
	if !got.ExpensesTrend.IsZero() {
		t.Errorf("ExpensesTrend = %s, want 0", got.ExpensesTrend)
	}
}

func TestStatsMonthlyHistoryCrossesYearBoundary(t *testing.T) {
	store := memory.NewStore()
	stats := NewStatsService(store)
	ctx := context.Background()

	// Six windows ending in February reach back into the previous year.
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	seedTransaction(t, store, time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC), "100", core.TxExpense, "Old")
	seedTransaction(t, store, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "250", core.TxExpense, "Rent")

	got, err := stats.Stats(ctx, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if len(got.MonthlyData) != 6 {
		t.Fatalf("MonthlyData length = %d, want 6", len(got.MonthlyData))
	}
	wantMonths := []string{"Sep", "Oct", "Nov", "Dec", "Jan", "Feb"}
	for i, w := range wantMonths {
		if got.MonthlyData[i].Month != w {
			t.Errorf("MonthlyData[%d].Month = %s, want %s", i, got.MonthlyData[i].Month, w)
		}
	}
	if core.FormatAmount(got.MonthlyData[0].Expenses) != "100.00" {
		t.Errorf("September expenses = %s, want 100.00", core.FormatAmount(got.MonthlyData[0].Expenses))
	}
	if core.FormatAmount(got.MonthlyData[4].Expenses) != "250.00" {
		t.Errorf("January expenses = %s, want 250.00", core.FormatAmount(got.MonthlyData[4].Expenses))
	}
}
