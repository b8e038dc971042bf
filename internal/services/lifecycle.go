package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// LifecycleService runs the short sagas around goals, installments and
// investments. Each saga is a single storage transaction: the transaction
// record, the balance effect and the entity mutation commit together.
type LifecycleService struct {
	store storage.Store
}

func NewLifecycleService(store storage.Store) *LifecycleService {
	return &LifecycleService{store: store}
}

// recordTx persists a transaction and applies its balance effect inside an
// ambient storage transaction.
func recordTx(ctx context.Context, tx storage.Store, t core.Transaction) (core.Transaction, error) {
	created, err := tx.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	if created.AccountID != nil {
		if err := tx.AdjustBalance(ctx, *created.AccountID, created.BalanceEffect()); err != nil {
			return core.Transaction{}, err
		}
	}
	return created, nil
}

// GoalDepositResult pairs the updated goal with its deposit transaction.
type GoalDepositResult struct {
	Goal        core.Goal
	Transaction core.Transaction
}

// GoalDeposit records a goal-type transaction debiting the account and
// raises the goal's current amount.
func (s *LifecycleService) GoalDeposit(ctx context.Context, goalID int64, amount decimal.Decimal, accountID int64) (GoalDepositResult, error) {
	if !amount.IsPositive() {
		return GoalDepositResult{}, core.ErrInvalidAmount
	}

	var result GoalDepositResult
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		goal, err := tx.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if _, err := tx.GetAccount(ctx, accountID); err != nil {
			return err
		}

		result.Transaction, err = recordTx(ctx, tx, core.Transaction{
			Date:        time.Now().UTC(),
			Description: fmt.Sprintf("Deposit to %s", goal.Name),
			Amount:      amount,
			Category:    "Goal Savings",
			Type:        core.TxGoal,
			AccountID:   &accountID,
			GoalID:      &goalID,
		})
		if err != nil {
			return err
		}

		goal.CurrentAmount = core.Round2(goal.CurrentAmount.Add(amount))
		result.Goal, err = tx.UpdateGoal(ctx, goal)
		return err
	})
	if err != nil {
		return GoalDepositResult{}, err
	}
	return result, nil
}

// InstallmentPaymentResult pairs the updated installment with its payment
// transaction.
type InstallmentPaymentResult struct {
	Installment core.Installment
	Transaction core.Transaction
}

// InstallmentPayment records one monthly payment: a transaction for the
// monthly amount against the installment's account, one more month paid,
// the next payment date a calendar month later. The installment completes
// when months paid reaches the term; paying a completed installment is a
// domain error.
func (s *LifecycleService) InstallmentPayment(ctx context.Context, installmentID int64) (InstallmentPaymentResult, error) {
	var result InstallmentPaymentResult
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		installment, err := tx.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if installment.MonthsPaid >= installment.Term {
			return core.Domainf("installment already fully paid")
		}

		result.Transaction, err = recordTx(ctx, tx, core.Transaction{
			Date: time.Now().UTC(),
			Description: fmt.Sprintf("Payment for %s (%d/%d)",
				installment.Name, installment.MonthsPaid+1, installment.Term),
			Amount:        installment.MonthlyAmount,
			Category:      "Installment",
			Type:          core.TxInstallment,
			AccountID:     &installment.AccountID,
			InstallmentID: &installmentID,
		})
		if err != nil {
			return err
		}

		installment.MonthsPaid++
		installment.NextPaymentDate = installment.NextPaymentDate.AddDate(0, 1, 0)
		if installment.MonthsPaid >= installment.Term {
			installment.Status = core.InstallmentCompleted
		}
		result.Installment, err = tx.UpdateInstallment(ctx, installment)
		return err
	})
	if err != nil {
		return InstallmentPaymentResult{}, err
	}
	return result, nil
}

// InvestmentDepositResult pairs the updated investment with its deposit
// transaction.
type InvestmentDepositResult struct {
	Investment  core.Investment
	Transaction core.Transaction
}

// InvestmentDeposit moves money from an account into an investment. This is
// the one saga with a balance precondition: the account must cover the
// amount.
func (s *LifecycleService) InvestmentDeposit(ctx context.Context, investmentID int64, amount decimal.Decimal, accountID int64) (InvestmentDepositResult, error) {
	if !amount.IsPositive() {
		return InvestmentDepositResult{}, core.ErrInvalidAmount
	}

	var result InvestmentDepositResult
	err := s.store.RunInTx(ctx, func(tx storage.Store) error {
		investment, err := tx.GetInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return &core.InsufficientFundsError{Available: account.Balance}
		}

		result.Transaction, err = recordTx(ctx, tx, core.Transaction{
			Date:         time.Now().UTC(),
			Description:  fmt.Sprintf("Deposit to %s", investment.Name),
			Amount:       amount,
			Category:     "Investment",
			Type:         core.TxInvestment,
			AccountID:    &accountID,
			InvestmentID: &investmentID,
		})
		if err != nil {
			return err
		}

		investment.CurrentValue = core.Round2(investment.CurrentValue.Add(amount))
		result.Investment, err = tx.UpdateInvestment(ctx, investment)
		return err
	})
	if err != nil {
		return InvestmentDepositResult{}, err
	}
	return result, nil
}

// Liquidation targets.
const (
	LiquidationTransfer = "transfer"
	LiquidationLoss     = "loss"

	LiquidationToAccount    = "account"
	LiquidationToInvestment = "investment"
)

// Liquidate closes out an investment. A transfer to an account credits the
// destination with the current value through a negative-amount transaction;
// a transfer to another investment merges the value and leaves a zero-amount
// linkage row; a loss leaves an accountless expense row. The source
// investment is deleted in every case.
func (s *LifecycleService) Liquidate(ctx context.Context, investmentID int64, action, destinationType string, destinationID *int64) error {
	switch action {
	case LiquidationTransfer, LiquidationLoss:
	default:
		return core.Validationf("invalid action: must be %q or %q", LiquidationTransfer, LiquidationLoss)
	}

	return s.store.RunInTx(ctx, func(tx storage.Store) error {
		investment, err := tx.GetInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		switch {
		case action == LiquidationLoss:
			_, err := tx.CreateTransaction(ctx, core.Transaction{
				Date:         now,
				Description:  fmt.Sprintf("Loss from %s", investment.Name),
				Amount:       investment.CurrentValue,
				Category:     "Investment Loss",
				Type:         core.TxExpense,
				InvestmentID: &investmentID,
			})
			if err != nil {
				return err
			}

		case destinationType == LiquidationToAccount:
			if destinationID == nil {
				return core.Validationf("destination account required for transfer")
			}
			if _, err := tx.GetAccount(ctx, *destinationID); err != nil {
				return err
			}
			// Negative investment amount credits the account.
			if _, err := recordTx(ctx, tx, core.Transaction{
				Date:         now,
				Description:  fmt.Sprintf("Liquidation of %s", investment.Name),
				Amount:       investment.CurrentValue.Neg(),
				Category:     "Investment",
				Type:         core.TxInvestment,
				AccountID:    destinationID,
				InvestmentID: &investmentID,
			}); err != nil {
				return err
			}

		case destinationType == LiquidationToInvestment:
			if destinationID == nil {
				return core.Validationf("destination investment required for transfer")
			}
			target, err := tx.GetInvestment(ctx, *destinationID)
			if err != nil {
				return err
			}
			target.CurrentValue = core.Round2(target.CurrentValue.Add(investment.CurrentValue))
			if _, err := tx.UpdateInvestment(ctx, target); err != nil {
				return err
			}
			// Value moved between investments, account balances untouched.
			if _, err := tx.CreateTransaction(ctx, core.Transaction{
				Date:         now,
				Description:  fmt.Sprintf("Transfer from %s to %s", investment.Name, target.Name),
				Amount:       decimal.Zero,
				Category:     "Investment",
				Type:         core.TxInvestment,
				InvestmentID: destinationID,
			}); err != nil {
				return err
			}

		default:
			return core.Validationf("destination type must be %q or %q", LiquidationToAccount, LiquidationToInvestment)
		}

		return tx.DeleteInvestment(ctx, investmentID)
	})
}
