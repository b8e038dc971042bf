package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func newAccount(t *testing.T, store *memory.Store, name, balance string) core.Account {
	t.Helper()
	a, err := store.CreateAccount(context.Background(), core.Account{
		Name:    name,
		Type:    core.AccountBank,
		Balance: dec(t, balance),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func accountBalance(t *testing.T, store *memory.Store, id int64) string {
	t.Helper()
	a, err := store.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return core.FormatAmount(a.Balance)
}

func TestRecordAppliesBalanceEffect(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "500.00")

	_, err := ledger.Record(ctx, core.Transaction{
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "Salary",
		Amount:      dec(t, "1200.00"),
		Type:        core.TxIncome,
		AccountID:   &account.ID,
	})
	if err != nil {
		t.Fatalf("record income: %v", err)
	}
	if got := accountBalance(t, store, account.ID); got != "1700.00" {
		t.Errorf("balance after income = %s, want 1700.00", got)
	}

	_, err = ledger.Record(ctx, core.Transaction{
		Date:        time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		Description: "Groceries",
		Amount:      dec(t, "200.00"),
		Category:    "Food",
		Type:        core.TxExpense,
		AccountID:   &account.ID,
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if got := accountBalance(t, store, account.ID); got != "1500.00" {
		t.Errorf("balance after expense = %s, want 1500.00", got)
	}
}

func TestRecordWithoutAccountLeavesBalancesAlone(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)

	account := newAccount(t, store, "Checking", "500.00")

	_, err := ledger.Record(context.Background(), core.Transaction{
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "Cash snack",
		Amount:      dec(t, "5.00"),
		Type:        core.TxExpense,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := accountBalance(t, store, account.ID); got != "500.00" {
		t.Errorf("balance = %s, want 500.00", got)
	}
}

func TestAmendAdjustsByDelta(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "500.00")

	tx, err := ledger.Record(ctx, core.Transaction{
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "Dinner",
		Amount:      dec(t, "100.00"),
		Type:        core.TxExpense,
		AccountID:   &account.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := accountBalance(t, store, account.ID); got != "400.00" {
		t.Fatalf("balance after record = %s, want 400.00", got)
	}

	amended := dec(t, "150.00")
	if _, err := ledger.Amend(ctx, tx.ID, TransactionPatch{Amount: &amended}); err != nil {
		t.Fatalf("amend: %v", err)
	}
	// Changed by exactly the delta, not by the new amount alone.
	if got := accountBalance(t, store, account.ID); got != "350.00" {
		t.Errorf("balance after amend = %s, want 350.00", got)
	}

	// Flipping the type reverses the direction.
	income := core.TxIncome
	if _, err := ledger.Amend(ctx, tx.ID, TransactionPatch{Type: &income}); err != nil {
		t.Fatalf("amend type: %v", err)
	}
	if got := accountBalance(t, store, account.ID); got != "650.00" {
		t.Errorf("balance after type amend = %s, want 650.00", got)
	}
}

func TestRetractIsInverseOfRecord(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()

	account := newAccount(t, store, "Checking", "500.00")

	tx, err := ledger.Record(ctx, core.Transaction{
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "Dinner",
		Amount:      dec(t, "80.00"),
		Type:        core.TxExpense,
		AccountID:   &account.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := ledger.Retract(ctx, tx.ID); err != nil {
		t.Fatalf("retract: %v", err)
	}

	if got := accountBalance(t, store, account.ID); got != "500.00" {
		t.Errorf("balance after retract = %s, want 500.00", got)
	}
	if _, err := store.GetTransaction(ctx, tx.ID); err == nil {
		t.Error("transaction still present after retract")
	}
}

func TestTransferConservation(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()

	a := newAccount(t, store, "Main", "1000.00")
	b := newAccount(t, store, "Savings", "500.00")

	result, err := ledger.Transfer(ctx, a.ID, b.ID, dec(t, "250.00"), "Monthly savings",
		time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := accountBalance(t, store, a.ID); got != "750.00" {
		t.Errorf("source balance = %s, want 750.00", got)
	}
	if got := accountBalance(t, store, b.ID); got != "750.00" {
		t.Errorf("destination balance = %s, want 750.00", got)
	}

	if result.Withdrawal.TransferGroupID == "" ||
		result.Withdrawal.TransferGroupID != result.Deposit.TransferGroupID {
		t.Errorf("transfer halves do not share a group id: %q vs %q",
			result.Withdrawal.TransferGroupID, result.Deposit.TransferGroupID)
	}
	if result.Withdrawal.Type != core.TxExpense {
		t.Errorf("withdrawal type = %s, want expense", result.Withdrawal.Type)
	}
	if result.Deposit.Type != core.TxIncome {
		t.Errorf("deposit type = %s, want income", result.Deposit.Type)
	}
	if core.FormatAmount(result.Withdrawal.Amount) != "250.00" ||
		core.FormatAmount(result.Deposit.Amount) != "250.00" {
		t.Errorf("transfer amounts = %s / %s, want 250.00 both",
			core.FormatAmount(result.Withdrawal.Amount), core.FormatAmount(result.Deposit.Amount))
	}
}

func TestTransferValidation(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()
	date := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)

	a := newAccount(t, store, "Main", "1000.00")

	var ve *core.ValidationError
	if _, err := ledger.Transfer(ctx, a.ID, a.ID, dec(t, "10.00"), "self", date); !errors.As(err, &ve) {
		t.Errorf("same-account transfer error = %v, want ValidationError", err)
	}
	if _, err := ledger.Transfer(ctx, a.ID, a.ID+1, dec(t, "0.00"), "zero", date); !errors.As(err, &ve) {
		t.Errorf("zero-amount transfer error = %v, want ValidationError", err)
	}
	var nf *core.NotFoundError
	if _, err := ledger.Transfer(ctx, a.ID, 999, dec(t, "10.00"), "missing", date); !errors.As(err, &nf) {
		t.Errorf("missing destination error = %v, want NotFoundError", err)
	}
	// Failed transfer must not touch the source balance.
	if got := accountBalance(t, store, a.ID); got != "1000.00" {
		t.Errorf("source balance after failed transfers = %s, want 1000.00", got)
	}
}

func TestBudgetTransferRequiresActiveBudgetAndFunds(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerService(store)
	ctx := context.Background()

	a := newAccount(t, store, "Main", "100.00")
	b := newAccount(t, store, "Savings", "0.00")

	var de *core.DomainError
	if _, err := ledger.BudgetTransfer(ctx, a.ID, b.ID, dec(t, "50.00"), "save"); !errors.As(err, &de) {
		t.Fatalf("budget transfer without budget error = %v, want DomainError", err)
	}

	if _, err := store.CreateBudget(ctx, core.Budget{
		MonthlySalary: dec(t, "2000.00"),
		SavingsRate:   dec(t, "20"),
		Status:        core.BudgetActive,
		Month:         4,
		Year:          2026,
	}); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	var ife *core.InsufficientFundsError
	if _, err := ledger.BudgetTransfer(ctx, a.ID, b.ID, dec(t, "500.00"), "save"); !errors.As(err, &ife) {
		t.Fatalf("over-balance budget transfer error = %v, want InsufficientFundsError", err)
	}

	if _, err := ledger.BudgetTransfer(ctx, a.ID, b.ID, dec(t, "50.00"), "save"); err != nil {
		t.Fatalf("budget transfer: %v", err)
	}
	if got := accountBalance(t, store, a.ID); got != "50.00" {
		t.Errorf("source balance = %s, want 50.00", got)
	}
	if got := accountBalance(t, store, b.ID); got != "50.00" {
		t.Errorf("destination balance = %s, want 50.00", got)
	}
}
