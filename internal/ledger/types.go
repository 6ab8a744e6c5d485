package ledger

// TransactionType distinguishes money in from money out. The ledger
// service owns sign semantics; amounts on the wire are always magnitudes.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Category is a user-scoped transaction category as stored by the ledger.
type Category struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// Transaction is the ledger's representation of a single booking.
type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId,omitempty"`
	Amount          float64         `json:"amount"`
	Description     string          `json:"description"`
	Location        string          `json:"location,omitempty"`
	Type            TransactionType `json:"type"`
	TransactionDate string          `json:"transactionDate"`
	IsRecurring     bool            `json:"isRecurring"`
	Frequency       string          `json:"frequency,omitempty"`
	Category        *Category       `json:"category,omitempty"`
}

// TransactionRequest is the write payload for POST/PUT /api/transactions.
type TransactionRequest struct {
	CategoryID      int64           `json:"categoryId"`
	Type            TransactionType `json:"type"`
	Amount          float64         `json:"amount"`
	Description     string          `json:"description,omitempty"`
	Location        string          `json:"location,omitempty"`
	TransactionDate string          `json:"transactionDate"`
	IsRecurring     bool            `json:"isRecurring"`
	Frequency       string          `json:"frequency,omitempty"`
}

// CategoryRequest is the write payload for POST /api/categories.
type CategoryRequest struct {
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// TransactionFilter narrows GET /api/transactions.
type TransactionFilter struct {
	StartDate  string
	EndDate    string
	CategoryID int64
	Type       TransactionType
}

// BalanceSummary mirrors the dashboard/balance response.
type BalanceSummary struct {
	TotalIncome    float64 `json:"totalIncome"`
	TotalExpense   float64 `json:"totalExpense"`
	CurrentBalance float64 `json:"currentBalance"`
}

// MonthlySummary is one row of dashboard/monthly-summary.
type MonthlySummary struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// CategorySpend is one slice of dashboard/spending-categories.
type CategorySpend struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// SpendingSummary mirrors the dashboard/spending-categories response.
type SpendingSummary struct {
	TotalSpending float64         `json:"totalSpending"`
	Categories    []CategorySpend `json:"categories"`
}
