// Package services orchestrates domain operations across storage and AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// LedgerService owns transaction recording and the account balance effects
// that go with it. Every mutation that touches both a transaction row and a
// balance runs in one storage transaction.
type LedgerService struct {
	store storage.Store
}

func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

// TransactionPatch carries the fields an amendment may change. Nil fields
// keep the stored value. Linked entity ids other than the account cannot be
// changed after recording.
type TransactionPatch struct {
	Date        *time.Time
	Description *string
	Amount      *decimal.Decimal
	Category    *string
	CategoryID  *int64
	Type        *core.TransactionType
	AccountID   *int64
}

// Record validates and stores a transaction, applying its balance effect to
// the linked account when one is set. Income credits, everything else
// debits, and negative amounts invert the direction.
func (s *LedgerService) Record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.resolveCategory(ctx, &t); err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		var err error
		created, err = tx.CreateTransaction(ctx, t)
		if err != nil {
			return err
		}
		if created.AccountID != nil {
			return tx.AdjustBalance(ctx, *created.AccountID, created.BalanceEffect())
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}
	return created, nil
}

// Amend reverses the stored transaction's balance effect, applies the patch
// and reapplies the effect of the amended row. The transaction keeps its id.
func (s *LedgerService) Amend(ctx context.Context, id int64, p TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.AccountID != nil {
			if err := tx.AdjustBalance(ctx, *old.AccountID, old.BalanceEffect().Neg()); err != nil {
				return err
			}
		}

		next := applyPatch(old, p)
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.resolveCategoryTx(ctx, tx, &next); err != nil {
			return err
		}

		updated, err = tx.UpdateTransaction(ctx, next)
		if err != nil {
			return err
		}
		if updated.AccountID != nil {
			return tx.AdjustBalance(ctx, *updated.AccountID, updated.BalanceEffect())
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

// Retract reverses the transaction's balance effect and deletes it.
func (s *LedgerService) Retract(ctx context.Context, id int64) error {
	return s.store.RunInTx(ctx, func(tx storage.Store) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t.AccountID != nil {
			if err := tx.AdjustBalance(ctx, *t.AccountID, t.BalanceEffect().Neg()); err != nil {
				return err
			}
		}
		return tx.DeleteTransaction(ctx, id)
	})
}

// TransferResult pairs the two halves of a transfer.
type TransferResult struct {
	Withdrawal core.Transaction
	Deposit    core.Transaction
}

// Transfer moves money between two accounts as a correlated expense/income
// pair sharing one transfer group id. Plain transfers carry no balance
// precondition; an account may go negative.
func (s *LedgerService) Transfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal, description string, date time.Time) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, core.ErrInvalidAmount
	}
	if sourceID == destinationID {
		return TransferResult{}, core.Validationf("source and destination accounts must be different")
	}

	var result TransferResult
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		source, err := tx.GetAccount(ctx, sourceID)
		if err != nil {
			return err
		}
		destination, err := tx.GetAccount(ctx, destinationID)
		if err != nil {
			return err
		}

		groupID := uuid.NewString()

		result.Withdrawal, err = tx.CreateTransaction(ctx, core.Transaction{
			Date:                 date,
			Description:          fmt.Sprintf("%s (Transfer to %s)", description, destination.Name),
			Amount:               amount,
			Category:             "Transfer",
			Type:                 core.TxExpense,
			AccountID:            &sourceID,
			SourceAccountID:      &sourceID,
			DestinationAccountID: &destinationID,
			TransferGroupID:      groupID,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, sourceID, amount.Neg()); err != nil {
			return err
		}

		result.Deposit, err = tx.CreateTransaction(ctx, core.Transaction{
			Date:                 date,
			Description:          fmt.Sprintf("%s (Transfer from %s)", description, source.Name),
			Amount:               amount,
			Category:             "Transfer",
			Type:                 core.TxIncome,
			AccountID:            &destinationID,
			SourceAccountID:      &sourceID,
			DestinationAccountID: &destinationID,
			TransferGroupID:      groupID,
		})
		if err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, destinationID, amount)
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// BudgetTransfer is a transfer gated by budget discipline: it requires an
// active budget and sufficient balance on the source account.
func (s *LedgerService) BudgetTransfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal, description string) (TransferResult, error) {
	if sourceID == destinationID {
		return TransferResult{}, core.Validationf("source and destination accounts must be different")
	}
	if !amount.IsPositive() {
		return TransferResult{}, core.ErrInvalidAmount
	}

	active, err := s.store.ActiveBudgets(ctx)
	if err != nil {
		return TransferResult{}, fmt.Errorf("load active budgets: %w", err)
	}
	if len(active) == 0 {
		return TransferResult{}, core.Domainf("no active budget found, create a budget first")
	}

	source, err := s.store.GetAccount(ctx, sourceID)
	if err != nil {
		return TransferResult{}, err
	}
	if source.Balance.LessThan(amount) {
		return TransferResult{}, &core.InsufficientFundsError{Available: source.Balance}
	}

	return s.Transfer(ctx, sourceID, destinationID, amount, description, time.Now().UTC())
}

func applyPatch(t core.Transaction, p TransactionPatch) core.Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
		t.CategoryID = nil
	}
	if p.CategoryID != nil {
		t.CategoryID = p.CategoryID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.AccountID != nil {
		t.AccountID = p.AccountID
	}
	return t
}

func (s *LedgerService) resolveCategory(ctx context.Context, t *core.Transaction) error {
	return s.resolveCategoryTx(ctx, s.store, t)
}

// resolveCategoryTx links a transaction to a budget category: an explicit
// CategoryID must exist and fixes the name, otherwise a case-insensitive
// name match fills the id when one exists.
func (s *LedgerService) resolveCategoryTx(ctx context.Context, st storage.Store, t *core.Transaction) error {
	if t.CategoryID != nil {
		c, err := st.GetCategory(ctx, *t.CategoryID)
		if err != nil {
			return err
		}
		t.Category = c.Name
		return nil
	}
	if t.Category == "" {
		return nil
	}
	c, err := st.GetCategoryByName(ctx, t.Category)
	if err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return err
	}
	t.CategoryID = &c.ID
	return nil
}
