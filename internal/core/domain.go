package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	AccountType       string
	TransactionType   string
	BudgetStatus      string
	InstallmentStatus string
	AllocationAction  string
)

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCreditCard AccountType = "credit_card"
	AccountEWallet    AccountType = "ewallet"
)

const (
	TxIncome      TransactionType = "income"
	TxExpense     TransactionType = "expense"
	TxFixed       TransactionType = "fixed"
	TxVariable    TransactionType = "variable"
	TxInstallment TransactionType = "installment"
	TxGoal        TransactionType = "goal"
	TxInvestment  TransactionType = "investment"
)

const (
	BudgetActive BudgetStatus = "active"
	BudgetClosed BudgetStatus = "closed"
)

const (
	InstallmentActive    InstallmentStatus = "active"
	InstallmentCompleted InstallmentStatus = "completed"
)

const (
	AllocateCarryover  AllocationAction = "carryover"
	AllocateAccount    AllocationAction = "account"
	AllocateGoal       AllocationAction = "goal"
	AllocateInvestment AllocationAction = "investment"
)

type (
	// Account is a named money container. Its balance is mutated only through
	// ledger operations triggered by transactions; the administrative update
	// endpoint is the one sanctioned bypass.
	Account struct {
		ID          int64
		Name        string
		Type        AccountType
		Balance     decimal.Decimal
		CreditLimit *decimal.Decimal
		CreatedAt   time.Time
	}

	// Transaction is one recorded money movement. Amount is stored positive
	// for ordinary entries; a negative amount marks money flowing into the
	// linked account regardless of the income/expense sign convention.
	// Transfer pairs share a TransferGroupID and mirror the source and
	// destination account ids.
	Transaction struct {
		ID                   int64
		Date                 time.Time
		Description          string
		Amount               decimal.Decimal
		Category             string
		CategoryID           *int64
		Type                 TransactionType
		AccountID            *int64
		GoalID               *int64
		InstallmentID        *int64
		InvestmentID         *int64
		SourceAccountID      *int64
		DestinationAccountID *int64
		TransferGroupID      string
		CreatedAt            time.Time
	}

	// BudgetCategory is one line of the active budget period. Categories are
	// not reset between periods; carryover allocations bump BudgetedAmount.
	BudgetCategory struct {
		ID             int64
		Name           string
		BudgetedAmount decimal.Decimal
		IsPredefined   bool
		CreatedAt      time.Time
	}

	// Budget is one month's salary and savings-rate configuration. Exactly
	// one budget is active at a time; the invariant is checked by the
	// month-close orchestrator.
	Budget struct {
		ID            int64
		MonthlySalary decimal.Decimal
		SavingsRate   decimal.Decimal
		AccountID     *int64
		Status        BudgetStatus
		Month         int
		Year          int
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// MonthlyReport is the immutable snapshot produced by a month close.
	// CategoryBreakdown is a serialized name -> {budgeted, spent, unused}
	// mapping. MirroredAt is set once the report has been appended to the
	// external sheet mirror.
	MonthlyReport struct {
		ID                int64
		Month             int
		Year              int
		TotalIncome       decimal.Decimal
		TotalExpenses     decimal.Decimal
		BudgetedAmount    decimal.Decimal
		UnusedBudget      decimal.Decimal
		SavingsAmount     decimal.Decimal
		BudgetUtilization decimal.Decimal
		CategoryBreakdown string
		GoalsContributed  decimal.Decimal
		InvestmentsAdded  decimal.Decimal
		InstallmentsPaid  decimal.Decimal
		MirroredAt        *time.Time
		CreatedAt         time.Time
	}

	// Installment is a fixed-term recurring obligation.
	Installment struct {
		ID              int64
		Name            string
		MonthlyAmount   decimal.Decimal
		Term            int
		MonthsPaid      int
		StartDate       time.Time
		NextPaymentDate time.Time
		AccountID       int64
		Status          InstallmentStatus
		CreatedAt       time.Time
	}

	// Goal is a savings target funded by deposits.
	Goal struct {
		ID            int64
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		Deadline      time.Time
		AccountID     *int64
		CreatedAt     time.Time
	}

	// Investment is a tracked holding, closed via liquidation.
	Investment struct {
		ID            int64
		Name          string
		Type          string
		InitialAmount decimal.Decimal
		CurrentValue  decimal.Decimal
		AccountID     *int64
		StartDate     time.Time
		CreatedAt     time.Time
	}

	// Allocation is one close-month decision for a category's unused funds.
	Allocation struct {
		CategoryID    int64
		UnusedAmount  decimal.Decimal
		Action        AllocationAction
		DestinationID *int64
	}

	// BreakdownEntry is one category line of a monthly report breakdown.
	BreakdownEntry struct {
		Budgeted decimal.Decimal `json:"budgeted"`
		Spent    decimal.Decimal `json:"spent"`
		Unused   decimal.Decimal `json:"unused"`
	}
)

// BalanceEffect returns the signed delta this transaction applies to its
// linked account: income adds the amount, every other type subtracts it.
// Negative stored amounts invert the direction, which is how inbound
// allocation and liquidation rows credit an account.
func (t Transaction) BalanceEffect() decimal.Decimal {
	if t.Type == TxIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsTransfer reports whether this row is half of a transfer pair.
func (t Transaction) IsTransfer() bool {
	return t.TransferGroupID != ""
}

func (at AccountType) Valid() bool {
	switch at {
	case AccountCash, AccountBank, AccountCreditCard, AccountEWallet:
		return true
	}
	return false
}

func (tt TransactionType) Valid() bool {
	switch tt {
	case TxIncome, TxExpense, TxFixed, TxVariable, TxInstallment, TxGoal, TxInvestment:
		return true
	}
	return false
}

func (aa AllocationAction) Valid() bool {
	switch aa {
	case AllocateCarryover, AllocateAccount, AllocateGoal, AllocateInvestment:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return Validationf("account name cannot be empty")
	}
	if !a.Type.Valid() {
		return Validationf("invalid account type: %s", a.Type)
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return Validationf("transaction date cannot be zero")
	}
	if strings.TrimSpace(t.Description) == "" {
		return Validationf("empty description")
	}
	if len(t.Description) > 200 {
		return Validationf("description too long (max 200 characters)")
	}
	if !t.Type.Valid() {
		return Validationf("invalid transaction type: %s", t.Type)
	}
	if t.Amount.IsZero() && !t.IsTransfer() && t.InvestmentID == nil {
		// Zero amounts are reserved for investment-to-investment linkage rows.
		return ErrInvalidAmount
	}
	return nil
}

func (c BudgetCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Validationf("category name cannot be empty")
	}
	if c.BudgetedAmount.IsNegative() {
		return Validationf("budgeted amount cannot be negative")
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return Validationf("invalid month: %d", b.Month)
	}
	if b.Year < 2000 {
		return Validationf("invalid year: %d", b.Year)
	}
	if b.MonthlySalary.IsNegative() {
		return Validationf("monthly salary cannot be negative")
	}
	if b.SavingsRate.IsNegative() || b.SavingsRate.GreaterThan(decimal.NewFromInt(100)) {
		return Validationf("savings rate must be between 0 and 100")
	}
	return nil
}

func (i Installment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Validationf("installment name cannot be empty")
	}
	if !i.MonthlyAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if i.Term < 1 {
		return Validationf("term must be at least 1 month")
	}
	if i.MonthsPaid < 0 || i.MonthsPaid > i.Term {
		return Validationf("months paid must be between 0 and term")
	}
	if i.StartDate.IsZero() {
		return Validationf("start date cannot be zero")
	}
	if i.AccountID == 0 {
		return Validationf("installment requires a payment account")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Validationf("goal name cannot be empty")
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return Validationf("current amount cannot be negative")
	}
	if g.Deadline.IsZero() {
		return Validationf("deadline cannot be zero")
	}
	return nil
}

func (v Investment) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return Validationf("investment name cannot be empty")
	}
	if strings.TrimSpace(v.Type) == "" {
		return Validationf("investment type cannot be empty")
	}
	if v.InitialAmount.IsNegative() || v.CurrentValue.IsNegative() {
		return Validationf("investment amounts cannot be negative")
	}
	if v.StartDate.IsZero() {
		return Validationf("start date cannot be zero")
	}
	return nil
}

// MonthRange returns the inclusive [start, end] bounds of a calendar month
// in UTC, matching the window the usage calculator and month close operate on.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// NextMonth returns the calendar month following (year, month).
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}
