package core

type (
	// MonthTotal carries the income and expense sums for one calendar month.
	MonthTotal struct {
		Month   string `json:"month"` // YYYY-MM
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// CategoryExpense is the expense sum for one referenced category.
	CategoryExpense struct {
		CategoryID   int64  `json:"categoryId"`
		CategoryName string `json:"categoryName"`
		TotalExpense Money  `json:"totalExpense"`
	}

	// TypeTotal is the sum of all amounts of one transaction type.
	TypeTotal struct {
		Type  TransactionType `json:"type"`
		Total Money           `json:"total"`
	}

	// Snapshot is the computed analytics for one user at one point in time.
	// It is always reconstructable from the transaction store; cached copies
	// are a pure optimization.
	Snapshot struct {
		MonthTotals       []MonthTotal      `json:"monthTotals"`
		CategoryBreakdown []CategoryExpense `json:"categoryBreakdown"`
		IncomeVsExpense   []TypeTotal       `json:"incomeVsExpense"`
	}

	// CategoryTotal sums all transaction amounts (both types) per category,
	// used by the chart endpoint's distribution series.
	CategoryTotal struct {
		Category string `json:"category"`
		Total    Money  `json:"total"`
	}

	// MonthTrend is the all-types total for one month.
	MonthTrend struct {
		Month string `json:"month"`
		Total Money  `json:"total"`
	}

	// ChartData feeds the dashboard charts. Unlike Snapshot it is not cached
	// and covers the user's full history.
	ChartData struct {
		CategoryDistribution []CategoryTotal `json:"categoryDistribution"`
		MonthlyTrends        []MonthTrend    `json:"monthlyTrends"`
		IncomeVsExpenses     []TypeTotal     `json:"incomeVsExpenses"`
	}
)
