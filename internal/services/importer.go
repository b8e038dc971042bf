package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ImportBundle is a snapshot of entity tables to restore. Ids are the source
// system's and are remapped on insert.
type ImportBundle struct {
	Accounts     []core.Account
	Budgets      []core.Budget
	Goals        []core.Goal
	Installments []core.Installment
	Investments  []core.Investment
	Transactions []core.Transaction
}

// ImportResult reports per-table insert counts and per-record failures.
type ImportResult struct {
	Accounts     int
	Budgets      int
	Goals        int
	Installments int
	Investments  int
	Transactions int
	Errors       []string
}

// Total returns how many records were imported across all tables.
func (r ImportResult) Total() int {
	return r.Accounts + r.Budgets + r.Goals + r.Installments + r.Investments + r.Transactions
}

// ImporterService restores an exported bundle. Imports are additive and
// best-effort: source ids are stripped, foreign keys remapped to the newly
// generated ids, entities inserted in dependency order, and each failing
// record is collected instead of aborting the batch.
type ImporterService struct {
	store storage.Store
}

func NewImporterService(store storage.Store) *ImporterService {
	return &ImporterService{store: store}
}

func (s *ImporterService) Import(ctx context.Context, bundle ImportBundle) (ImportResult, error) {
	var result ImportResult

	accountIDs := make(map[int64]int64)
	goalIDs := make(map[int64]int64)
	installmentIDs := make(map[int64]int64)
	investmentIDs := make(map[int64]int64)

	for _, a := range bundle.Accounts {
		oldID := a.ID
		a.ID = 0
		if err := a.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("account: %v", err))
			continue
		}
		created, err := s.store.CreateAccount(ctx, a)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("account: %v", err))
			continue
		}
		accountIDs[oldID] = created.ID
		result.Accounts++
	}

	for _, b := range bundle.Budgets {
		b.ID = 0
		b.AccountID = remapID(b.AccountID, accountIDs)
		if err := b.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("budget: %v", err))
			continue
		}
		if _, err := s.store.CreateBudget(ctx, b); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("budget: %v", err))
			continue
		}
		result.Budgets++
	}

	for _, g := range bundle.Goals {
		oldID := g.ID
		g.ID = 0
		g.AccountID = remapID(g.AccountID, accountIDs)
		if err := g.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("goal: %v", err))
			continue
		}
		created, err := s.store.CreateGoal(ctx, g)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("goal: %v", err))
			continue
		}
		goalIDs[oldID] = created.ID
		result.Goals++
	}

	for _, i := range bundle.Installments {
		oldID := i.ID
		i.ID = 0
		if mapped, ok := accountIDs[i.AccountID]; ok {
			i.AccountID = mapped
		}
		if err := i.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("installment: %v", err))
			continue
		}
		created, err := s.store.CreateInstallment(ctx, i)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("installment: %v", err))
			continue
		}
		installmentIDs[oldID] = created.ID
		result.Installments++
	}

	for _, v := range bundle.Investments {
		oldID := v.ID
		v.ID = 0
		v.AccountID = remapID(v.AccountID, accountIDs)
		if err := v.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("investment: %v", err))
			continue
		}
		created, err := s.store.CreateInvestment(ctx, v)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("investment: %v", err))
			continue
		}
		investmentIDs[oldID] = created.ID
		result.Investments++
	}

	for _, t := range bundle.Transactions {
		t.ID = 0
		t.CategoryID = nil
		t.AccountID = remapID(t.AccountID, accountIDs)
		t.GoalID = remapID(t.GoalID, goalIDs)
		t.InstallmentID = remapID(t.InstallmentID, installmentIDs)
		t.InvestmentID = remapID(t.InvestmentID, investmentIDs)
		t.SourceAccountID = remapID(t.SourceAccountID, accountIDs)
		t.DestinationAccountID = remapID(t.DestinationAccountID, accountIDs)
		if err := t.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("transaction: %v", err))
			continue
		}
		// Inserted raw: imported account balances are snapshots that already
		// include these transactions, so no ledger effects are applied.
		if _, err := s.store.CreateTransaction(ctx, t); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("transaction: %v", err))
			continue
		}
		result.Transactions++
	}

	if result.Total() == 0 && len(result.Errors) > 0 {
		return result, core.Validationf("import failed, no records were imported")
	}
	return result, nil
}

// remapID translates a nullable foreign key through an old-to-new id map,
// passing unknown ids through untouched.
func remapID(id *int64, m map[int64]int64) *int64 {
	if id == nil {
		return nil
	}
	if mapped, ok := m[*id]; ok {
		return &mapped
	}
	return id
}
