package core

import "github.com/shopspring/decimal"

// UsageColor classifies how much of a category's budget has been consumed.
type UsageColor string

const (
	UsageGreen  UsageColor = "green"
	UsageYellow UsageColor = "yellow"
	UsageRed    UsageColor = "red"
)

// CategoryUsage is the per-category consumption summary served by the
// budget usage endpoint and fed into monthly report breakdowns.
type CategoryUsage struct {
	CategoryID     int64
	Name           string
	BudgetedAmount decimal.Decimal
	SpentAmount    decimal.Decimal
	Remaining      decimal.Decimal
	PercentUsed    int64
	Color          UsageColor
	IsPredefined   bool
}

var oneHundred = decimal.NewFromInt(100)

// NewCategoryUsage computes remaining funds, the whole-number percentage
// consumed and the warning color for one category. A zero budget reports
// zero percent, never a division error.
func NewCategoryUsage(c BudgetCategory, spent decimal.Decimal) CategoryUsage {
	u := CategoryUsage{
		CategoryID:     c.ID,
		Name:           c.Name,
		BudgetedAmount: c.BudgetedAmount,
		SpentAmount:    spent,
		Remaining:      c.BudgetedAmount.Sub(spent),
		IsPredefined:   c.IsPredefined,
	}
	if c.BudgetedAmount.IsPositive() {
		u.PercentUsed = spent.Mul(oneHundred).Div(c.BudgetedAmount).Round(0).IntPart()
	}
	u.Color = ColorForPercent(u.PercentUsed)
	return u
}

// ColorForPercent maps a consumed percentage to its warning color:
// red at 100 and above, yellow from 80, green below.
func ColorForPercent(pct int64) UsageColor {
	switch {
	case pct >= 100:
		return UsageRed
	case pct >= 80:
		return UsageYellow
	default:
		return UsageGreen
	}
}
