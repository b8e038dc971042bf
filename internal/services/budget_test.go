package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func newCategory(t *testing.T, store *memory.Store, name, budgeted string) core.BudgetCategory {
	t.Helper()
	c, err := store.CreateCategory(context.Background(), core.BudgetCategory{
		Name:           name,
		BudgetedAmount: dec(t, budgeted),
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func newActiveBudget(t *testing.T, store *memory.Store, year, month int) core.Budget {
	t.Helper()
	b, err := store.CreateBudget(context.Background(), core.Budget{
		MonthlySalary: dec(t, "3000.00"),
		SavingsRate:   dec(t, "20"),
		Status:        core.BudgetActive,
		Month:         month,
		Year:          year,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func spend(t *testing.T, ledger *LedgerService, account core.Account, category, amount string, date time.Time) {
	t.Helper()
	_, err := ledger.Record(context.Background(), core.Transaction{
		Date:        date,
		Description: "spend " + category,
		Amount:      dec(t, amount),
		Category:    category,
		Type:        core.TxExpense,
		AccountID:   &account.ID,
	})
	if err != nil {
		t.Fatalf("record spend: %v", err)
	}
}

func TestCategoryUsage(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "5000.00")
	newCategory(t, store, "Groceries", "500.00")
	newCategory(t, store, "Leisure", "200.00")

	april := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	spend(t, ledger, account, "Groceries", "450.00", april)
	spend(t, ledger, account, "groceries", "50.00", april) // case-insensitive match
	spend(t, ledger, account, "Leisure", "100.00", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	usage, err := budget.CategoryUsage(ctx, 2026, 4)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	byName := make(map[string]core.CategoryUsage)
	for _, u := range usage {
		byName[u.Name] = u
	}

	groceries := byName["Groceries"]
	if core.FormatAmount(groceries.SpentAmount) != "500.00" {
		t.Errorf("Groceries spent = %s, want 500.00", core.FormatAmount(groceries.SpentAmount))
	}
	if groceries.PercentUsed != 100 || groceries.Color != core.UsageRed {
		t.Errorf("Groceries usage = %d%% %s, want 100%% red", groceries.PercentUsed, groceries.Color)
	}

	// March spending must not leak into April.
	leisure := byName["Leisure"]
	if !leisure.SpentAmount.IsZero() || leisure.Color != core.UsageGreen {
		t.Errorf("Leisure usage = %s %s, want 0.00 green",
			core.FormatAmount(leisure.SpentAmount), leisure.Color)
	}
}

func TestCategoryUsageIgnoresTransfersAndIncome(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	budget := NewBudgetService(store, nil)

	a := newAccount(t, store, "Main", "1000.00")
	b := newAccount(t, store, "Savings", "0.00")
	newCategory(t, store, "Transfer", "100.00")

	if _, err := ledger.Transfer(context.Background(), a.ID, b.ID, dec(t, "300.00"), "move",
		time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	usage, err := budget.CategoryUsage(context.Background(), 2026, 4)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	for _, u := range usage {
		if !u.SpentAmount.IsZero() {
			t.Errorf("category %s spent = %s, want 0.00 (transfers excluded)",
				u.Name, core.FormatAmount(u.SpentAmount))
		}
	}
}

func TestCloseMonthCarryover(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "5000.00")
	groceries := newCategory(t, store, "Groceries", "500.00")
	newActiveBudget(t, store, 2026, 4)

	spend(t, ledger, account, "Groceries", "450.00", time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC))

	result, err := budget.CloseMonth(ctx, []core.Allocation{{
		CategoryID:   groceries.ID,
		UnusedAmount: dec(t, "50.00"),
		Action:       core.AllocateCarryover,
	}})
	if err != nil {
		t.Fatalf("close month: %v", err)
	}

	updated, err := store.GetCategory(ctx, groceries.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got := core.FormatAmount(updated.BudgetedAmount); got != "550.00" {
		t.Errorf("carried-over budget = %s, want 550.00", got)
	}

	if result.ClosedBudget.Status != core.BudgetClosed {
		t.Errorf("closed budget status = %s", result.ClosedBudget.Status)
	}
	if result.NewBudget.Status != core.BudgetActive || result.NewBudget.Month != 5 || result.NewBudget.Year != 2026 {
		t.Errorf("new budget = %s %d/%d, want active 5/2026",
			result.NewBudget.Status, result.NewBudget.Month, result.NewBudget.Year)
	}
	if got := core.FormatAmount(result.NewBudget.MonthlySalary); got != "3000.00" {
		t.Errorf("new budget salary = %s, want 3000.00", got)
	}

	if got := core.FormatAmount(result.Report.TotalExpenses); got != "450.00" {
		t.Errorf("report expenses = %s, want 450.00", got)
	}
	var breakdown map[string]core.BreakdownEntry
	if err := json.Unmarshal([]byte(result.Report.CategoryBreakdown), &breakdown); err != nil {
		t.Fatalf("unmarshal breakdown: %v", err)
	}
	entry := breakdown["Groceries"]
	if core.FormatAmount(entry.Spent) != "450.00" || core.FormatAmount(entry.Unused) != "50.00" {
		t.Errorf("breakdown entry = spent %s unused %s, want 450.00 / 50.00",
			core.FormatAmount(entry.Spent), core.FormatAmount(entry.Unused))
	}
}

func TestCloseMonthDefaultsToCarryover(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "5000.00")
	groceries := newCategory(t, store, "Groceries", "500.00")
	newActiveBudget(t, store, 2026, 4)
	spend(t, ledger, account, "Groceries", "300.00", time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC))

	// No allocations supplied at all.
	if _, err := budget.CloseMonth(ctx, nil); err != nil {
		t.Fatalf("close month: %v", err)
	}

	updated, err := store.GetCategory(ctx, groceries.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got := core.FormatAmount(updated.BudgetedAmount); got != "700.00" {
		t.Errorf("defaulted carryover budget = %s, want 700.00", got)
	}
}

func TestCloseMonthAccountAllocation(t *testing.T) {
	store := memory.NewStore()
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	savings := newAccount(t, store, "Savings", "100.00")
	groceries := newCategory(t, store, "Groceries", "500.00")
	newActiveBudget(t, store, 2026, 4)

	if _, err := budget.CloseMonth(ctx, []core.Allocation{{
		CategoryID:    groceries.ID,
		UnusedAmount:  dec(t, "500.00"),
		Action:        core.AllocateAccount,
		DestinationID: &savings.ID,
	}}); err != nil {
		t.Fatalf("close month: %v", err)
	}

	if got := accountBalance(t, store, savings.ID); got != "600.00" {
		t.Errorf("savings balance = %s, want 600.00", got)
	}

	txs, err := store.ListTransactions(ctx, storage.TransactionFilter{AccountID: &savings.ID})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("allocation transactions = %d, want 1", len(txs))
	}
	if txs[0].Type != core.TxIncome || core.FormatAmount(txs[0].Amount) != "-500.00" {
		t.Errorf("allocation row = %s %s, want income -500.00",
			txs[0].Type, core.FormatAmount(txs[0].Amount))
	}
}

func TestCloseMonthAtomicity(t *testing.T) {
	store := memory.NewStore()
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	groceries := newCategory(t, store, "Groceries", "500.00")
	active := newActiveBudget(t, store, 2026, 4)

	missingGoal := int64(999)
	_, err := budget.CloseMonth(ctx, []core.Allocation{{
		CategoryID:    groceries.ID,
		UnusedAmount:  dec(t, "500.00"),
		Action:        core.AllocateGoal,
		DestinationID: &missingGoal,
	}})
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("close month error = %v, want NotFoundError", err)
	}

	// Nothing committed: budget still active, category untouched, no report.
	b, err := store.GetBudget(ctx, active.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if b.Status != core.BudgetActive {
		t.Errorf("budget status after failed close = %s, want active", b.Status)
	}
	c, err := store.GetCategory(ctx, groceries.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got := core.FormatAmount(c.BudgetedAmount); got != "500.00" {
		t.Errorf("category budget after failed close = %s, want 500.00", got)
	}
	reports, err := store.ListReports(ctx, storage.ReportFilter{})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("reports after failed close = %d, want 0", len(reports))
	}
}

func TestCloseMonthNeedsExactlyOneActiveBudget(t *testing.T) {
	store := memory.NewStore()
	budget := NewBudgetService(store, nil)
	ctx := context.Background()

	var de *core.DomainError
	if _, err := budget.CloseMonth(ctx, nil); !errors.As(err, &de) {
		t.Errorf("close with no budget error = %v, want DomainError", err)
	}

	newActiveBudget(t, store, 2026, 4)
	newActiveBudget(t, store, 2026, 5)
	if _, err := budget.CloseMonth(ctx, nil); !errors.As(err, &de) {
		t.Errorf("close with two active budgets error = %v, want DomainError", err)
	}
}
