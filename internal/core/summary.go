package core

import "github.com/shopspring/decimal"

// StatusTier grades how much of the month's income is still free.
type StatusTier string

const (
	TierOK       StatusTier = "ok"
	TierWarning  StatusTier = "warning"
	TierCritical StatusTier = "critical"
)

const (
	criticalBelow = 20
	warningBelow  = 50
)

// Label is the message shown next to the budget bar.
func (t StatusTier) Label() string {
	switch t {
	case TierCritical:
		return "Presupuesto crítico"
	case TierWarning:
		return "Controla los gastos"
	default:
		return "Vas genial este mes"
	}
}

// Severity orders tiers: 0 ok, 1 warning, 2 critical.
func (t StatusTier) Severity() int {
	switch t {
	case TierCritical:
		return 2
	case TierWarning:
		return 1
	default:
		return 0
	}
}

// TierFor grades a remaining percentage already clamped to [0,100].
func TierFor(remainingPct decimal.Decimal) StatusTier {
	switch {
	case remainingPct.LessThan(decimal.NewFromInt(criticalBelow)):
		return TierCritical
	case remainingPct.LessThan(decimal.NewFromInt(warningBelow)):
		return TierWarning
	default:
		return TierOK
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// Summary is the derived view of one month's expenses against income.
type Summary struct {
	Income        Money `json:"income"`
	SavingsGoal   Money `json:"savings_goal"`
	TotalExpenses Money `json:"total_expenses"`
	// FreeToSpend may be negative when the month is overspent.
	FreeToSpend Money `json:"free_to_spend"`
	// PercentageUsed is unclamped; PercentageShown is the bar value in [0,100].
	PercentageUsed  float64          `json:"percentage_used"`
	PercentageShown float64          `json:"percentage_shown"`
	RemainingPct    float64          `json:"remaining_pct"`
	Tier            StatusTier       `json:"tier"`
	ByCategory      []CategoryAmount `json:"by_category"`
}

func TotalExpenses(expenses []Expense) Money {
	total := Money{}
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// CategoryBreakdown sums amounts per category in first-seen order.
func CategoryBreakdown(expenses []Expense) []CategoryAmount {
	out := make([]CategoryAmount, 0)
	index := make(map[Category]int)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			index[e.Category] = len(out)
			out = append(out, CategoryAmount{Category: e.Category, Amount: e.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// PercentageUsed is (total + savings) / income * 100, or zero without income.
func PercentageUsed(total, savingsGoal, income Money) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return total.Amount.Add(savingsGoal.Amount).Div(income.Amount).Mul(hundred)
}

func clampPct(d decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(d, decimal.Zero), hundred)
}

// Summarize aggregates a month of expenses.
func Summarize(expenses []Expense, income, savingsGoal Money) Summary {
	total := TotalExpenses(expenses)
	used := PercentageUsed(total, savingsGoal, income)
	remaining := clampPct(hundred.Sub(used))
	return Summary{
		Income:          income,
		SavingsGoal:     savingsGoal,
		TotalExpenses:   total,
		FreeToSpend:     income.Sub(savingsGoal).Sub(total),
		PercentageUsed:  used.InexactFloat64(),
		PercentageShown: clampPct(used).InexactFloat64(),
		RemainingPct:    remaining.InexactFloat64(),
		Tier:            TierFor(remaining),
		ByCategory:      CategoryBreakdown(expenses),
	}
}

// AnnualizedPrice is the yearly cost of a monthly price.
func AnnualizedPrice(m Money) Money {
	return m.Mul(12)
}
