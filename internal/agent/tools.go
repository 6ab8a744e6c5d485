package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"finassist/internal/ledger"
)

// LedgerAPI is the slice of the ledger client the tools need. Defined
// here so tests can substitute a fake without a live backend.
type LedgerAPI interface {
	GetTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (ledger.Transaction, error)
	CreateTransaction(ctx context.Context, req ledger.TransactionRequest) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, req ledger.TransactionRequest) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	GetCategories(ctx context.Context, typ ledger.TransactionType) ([]ledger.Category, error)
	CreateCategory(ctx context.Context, name string, typ ledger.TransactionType) (ledger.Category, error)
	GetBalance(ctx context.Context) (ledger.BalanceSummary, error)
	GetMonthlySummary(ctx context.Context, year int) ([]ledger.MonthlySummary, error)
	GetRecentTransactions(ctx context.Context, limit int) ([]ledger.Transaction, error)
	GetSpendingByCategory(ctx context.Context, startDate, endDate string) (ledger.SpendingSummary, error)
}

// Retriever is the knowledge-store surface exposed to the agent.
type Retriever interface {
	SerializedKnowledge(ctx context.Context, query string, k int) string
}

// Tool is one named operation offered to the model, with a schema the
// model uses to construct arguments.
type Tool struct {
	Name        string
	Description string
	Parameters  *genai.Schema
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

// ToolError is a soft failure inside a tool call. The agent loop renders
// it as text for the model instead of aborting the chat turn.
type ToolError struct {
	Op  string
	Err error
}

func (e *ToolError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ToolError) Unwrap() error { return e.Err }

// Text is the presentation of the failure handed back to the model.
func (e *ToolError) Text() string {
	return fmt.Sprintf("Error %s: %s", e.Op, e.Err)
}

// softFail wraps an error so the loop reports it conversationally.
func softFail(op string, err error) (string, error) {
	return "", &ToolError{Op: op, Err: err}
}

// resolveCategoryID finds the category matching name for the given type,
// creating it when absent. First case-insensitive match wins; the
// backend never dedups names so later duplicates are unreachable.
func resolveCategoryID(ctx context.Context, api LedgerAPI, name string, typ ledger.TransactionType) (int64, error) {
	categories, err := api.GetCategories(ctx, typ)
	if err != nil {
		return 0, fmt.Errorf("listing categories: %w", err)
	}

	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat.ID, nil
		}
	}

	created, err := api.CreateCategory(ctx, name, typ)
	if err != nil {
		return 0, fmt.Errorf("category %q not found and could not be created: %w", name, err)
	}
	return created.ID, nil
}

func parseType(raw string) (ledger.TransactionType, error) {
	switch strings.ToUpper(raw) {
	case string(ledger.TypeIncome):
		return ledger.TypeIncome, nil
	case string(ledger.TypeExpense):
		return ledger.TypeExpense, nil
	default:
		return "", fmt.Errorf("type must be INCOME or EXPENSE, got %q", raw)
	}
}

func validDate(raw string) error {
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", raw)
	}
	return nil
}

// Argument extraction from the model's untyped call arguments. JSON
// numbers arrive as float64.

func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}

func argFloat(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func argInt64(args map[string]any, key string) (int64, bool) {
	f, ok := argFloat(args, key)
	return int64(f), ok
}

func argBool(args map[string]any, key string) (bool, bool) {
	v, ok := args[key].(bool)
	return v, ok
}

func formatTransactionLine(t ledger.Transaction) string {
	category := "N/A"
	if t.Category != nil {
		category = t.Category.Name
	}
	description := t.Description
	if description == "" {
		description = "No description"
	}
	return fmt.Sprintf("#%d [%s] %s - %.2f (%s) - Category: %s",
		t.ID, t.TransactionDate, description, t.Amount, t.Type, category)
}

func asJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering response: %w", err)
	}
	return string(data), nil
}

// NewToolset builds the full tool catalog for one authenticated user.
// Every tool validates its inputs before touching the backend and
// absorbs backend failures into soft errors.
func NewToolset(api LedgerAPI, retriever Retriever, retrievalK int, log zerolog.Logger) []Tool {
	log = log.With().Str("component", "tools").Logger()

	typeProperty := &genai.Schema{
		Type:        genai.TypeString,
		Description: "Transaction type: INCOME or EXPENSE.",
		Enum:        []string{string(ledger.TypeIncome), string(ledger.TypeExpense)},
	}

	return []Tool{
		{
			Name:        "list_recent_transactions",
			Description: "List the user's recent transactions, optionally filtered by type.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"limit": {Type: genai.TypeInteger, Description: "Maximum number of transactions to return (default 10)."},
					"type":  typeProperty,
				},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				limit, ok := argInt64(args, "limit")
				if !ok || limit < 1 {
					limit = 10
				}

				var (
					transactions []ledger.Transaction
					err          error
				)
				if raw, ok := argString(args, "type"); ok {
					typ, perr := parseType(raw)
					if perr != nil {
						return softFail("listing transactions", perr)
					}
					// The ledger's filtered listing has no limit
					// parameter; only dashboard/recent does. Truncate
					// here so both paths honor the requested limit.
					transactions, err = api.GetTransactions(ctx, ledger.TransactionFilter{Type: typ})
					if err == nil && int64(len(transactions)) > limit {
						transactions = transactions[:limit]
					}
				} else {
					transactions, err = api.GetRecentTransactions(ctx, int(limit))
				}
				if err != nil {
					return softFail("listing transactions", err)
				}

				if len(transactions) == 0 {
					return "No transactions found.", nil
				}
				lines := make([]string, 0, len(transactions))
				for _, t := range transactions {
					lines = append(lines, formatTransactionLine(t))
				}
				log.Info().Int("count", len(lines)).Msg("Listed transactions")
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get_transaction_details",
			Description: "Get full details of one transaction by its id.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"transaction_id": {Type: genai.TypeInteger, Description: "The transaction id."},
				},
				Required: []string{"transaction_id"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				id, ok := argInt64(args, "transaction_id")
				if !ok || id < 1 {
					return softFail("fetching transaction", errors.New("transaction_id must be a positive integer"))
				}

				transaction, err := api.GetTransaction(ctx, id)
				if err != nil {
					return softFail(fmt.Sprintf("fetching transaction #%d", id), err)
				}
				return asJSON(transaction)
			},
		},
		{
			Name:        "add_transaction",
			Description: "Record a new income or expense transaction. The category is matched by name, or created if it does not exist.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"description":   {Type: genai.TypeString, Description: "What the transaction was for."},
					"amount":        {Type: genai.TypeNumber, Description: "Amount as a positive number; the type determines the sign."},
					"category_name": {Type: genai.TypeString, Description: "Category name, e.g. 'Food' or 'Salary'."},
					"type":          typeProperty,
					"date":          {Type: genai.TypeString, Description: "Transaction date YYYY-MM-DD (defaults to today)."},
					"location":      {Type: genai.TypeString, Description: "Where the transaction happened."},
					"recurring":     {Type: genai.TypeBoolean, Description: "Whether the transaction repeats."},
					"frequency":     {Type: genai.TypeString, Description: "Recurrence frequency, e.g. MONTHLY (only with recurring)."},
				},
				Required: []string{"description", "amount", "category_name", "type"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				description, ok := argString(args, "description")
				if !ok {
					return softFail("adding transaction", errors.New("description is required"))
				}
				amount, ok := argFloat(args, "amount")
				if !ok || amount == 0 {
					return softFail("adding transaction", errors.New("amount must be a non-zero number"))
				}
				categoryName, ok := argString(args, "category_name")
				if !ok {
					return softFail("adding transaction", errors.New("category_name is required"))
				}
				rawType, ok := argString(args, "type")
				if !ok {
					return softFail("adding transaction", errors.New("type is required"))
				}
				typ, err := parseType(rawType)
				if err != nil {
					return softFail("adding transaction", err)
				}

				req := ledger.TransactionRequest{
					Type:        typ,
					Amount:      amount,
					Description: description,
				}
				if date, ok := argString(args, "date"); ok {
					if err := validDate(date); err != nil {
						return softFail("adding transaction", err)
					}
					req.TransactionDate = date
				}
				if location, ok := argString(args, "location"); ok {
					req.Location = location
				}
				if recurring, ok := argBool(args, "recurring"); ok && recurring {
					req.IsRecurring = true
					if frequency, ok := argString(args, "frequency"); ok {
						req.Frequency = strings.ToUpper(frequency)
					}
				}

				categoryID, err := resolveCategoryID(ctx, api, categoryName, typ)
				if err != nil {
					return softFail("adding transaction", err)
				}
				req.CategoryID = categoryID

				transaction, err := api.CreateTransaction(ctx, req)
				if err != nil {
					return softFail("adding transaction", err)
				}

				log.Info().Int64("transaction_id", transaction.ID).Str("type", string(typ)).Msg("Transaction added")
				return fmt.Sprintf("Added %s '%s' for %.2f (category %s, transaction #%d)",
					strings.ToLower(string(typ)), description, transaction.Amount, categoryName, transaction.ID), nil
			},
		},
		{
			Name:        "update_transaction",
			Description: "Update fields of an existing transaction. Only the provided fields change.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"transaction_id": {Type: genai.TypeInteger, Description: "The transaction id."},
					"description":    {Type: genai.TypeString, Description: "New description."},
					"amount":         {Type: genai.TypeNumber, Description: "New amount (positive number)."},
					"category_name":  {Type: genai.TypeString, Description: "New category name."},
					"date":           {Type: genai.TypeString, Description: "New transaction date YYYY-MM-DD."},
					"location":       {Type: genai.TypeString, Description: "New location."},
				},
				Required: []string{"transaction_id"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				id, ok := argInt64(args, "transaction_id")
				if !ok || id < 1 {
					return softFail("updating transaction", errors.New("transaction_id must be a positive integer"))
				}

				current, err := api.GetTransaction(ctx, id)
				if err != nil {
					return softFail(fmt.Sprintf("updating transaction #%d", id), err)
				}

				req := ledger.TransactionRequest{
					Type:            current.Type,
					Amount:          current.Amount,
					Description:     current.Description,
					Location:        current.Location,
					TransactionDate: current.TransactionDate,
					IsRecurring:     current.IsRecurring,
					Frequency:       current.Frequency,
				}
				if current.Category != nil {
					req.CategoryID = current.Category.ID
				}

				var changes []string
				if description, ok := argString(args, "description"); ok {
					req.Description = description
					changes = append(changes, fmt.Sprintf("description to '%s'", description))
				}
				if amount, ok := argFloat(args, "amount"); ok {
					req.Amount = amount
					changes = append(changes, fmt.Sprintf("amount to %.2f", amount))
				}
				if date, ok := argString(args, "date"); ok {
					if err := validDate(date); err != nil {
						return softFail("updating transaction", err)
					}
					req.TransactionDate = date
					changes = append(changes, "date to "+date)
				}
				if location, ok := argString(args, "location"); ok {
					req.Location = location
					changes = append(changes, fmt.Sprintf("location to '%s'", location))
				}
				if categoryName, ok := argString(args, "category_name"); ok {
					categoryID, err := resolveCategoryID(ctx, api, categoryName, current.Type)
					if err != nil {
						return softFail("updating transaction", err)
					}
					req.CategoryID = categoryID
					changes = append(changes, fmt.Sprintf("category to '%s'", categoryName))
				}
				if len(changes) == 0 {
					return softFail("updating transaction", errors.New("no fields to update were provided"))
				}

				if _, err := api.UpdateTransaction(ctx, id, req); err != nil {
					return softFail(fmt.Sprintf("updating transaction #%d", id), err)
				}

				log.Info().Int64("transaction_id", id).Msg("Transaction updated")
				return fmt.Sprintf("Updated transaction #%d: %s", id, strings.Join(changes, ", ")), nil
			},
		},
		{
			Name:        "delete_transaction",
			Description: "Delete a transaction permanently.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"transaction_id": {Type: genai.TypeInteger, Description: "The transaction id."},
				},
				Required: []string{"transaction_id"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				id, ok := argInt64(args, "transaction_id")
				if !ok || id < 1 {
					return softFail("deleting transaction", errors.New("transaction_id must be a positive integer"))
				}
				if err := api.DeleteTransaction(ctx, id); err != nil {
					return softFail(fmt.Sprintf("deleting transaction #%d", id), err)
				}

				log.Info().Int64("transaction_id", id).Msg("Transaction deleted")
				return fmt.Sprintf("Deleted transaction #%d", id), nil
			},
		},
		{
			Name:        "list_categories",
			Description: "List the user's categories, optionally filtered by type.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type": typeProperty,
				},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				var typ ledger.TransactionType
				if raw, ok := argString(args, "type"); ok {
					parsed, err := parseType(raw)
					if err != nil {
						return softFail("listing categories", err)
					}
					typ = parsed
				}

				categories, err := api.GetCategories(ctx, typ)
				if err != nil {
					return softFail("listing categories", err)
				}
				if len(categories) == 0 {
					return "No categories found.", nil
				}

				lines := make([]string, 0, len(categories))
				for _, cat := range categories {
					lines = append(lines, fmt.Sprintf("#%d: %s (%s)", cat.ID, cat.Name, cat.Type))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "create_category",
			Description: "Create a new transaction category.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {Type: genai.TypeString, Description: "Category name."},
					"type": typeProperty,
				},
				Required: []string{"name", "type"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				name, ok := argString(args, "name")
				if !ok {
					return softFail("creating category", errors.New("name is required"))
				}
				rawType, ok := argString(args, "type")
				if !ok {
					return softFail("creating category", errors.New("type is required"))
				}
				typ, err := parseType(rawType)
				if err != nil {
					return softFail("creating category", err)
				}

				category, err := api.CreateCategory(ctx, name, typ)
				if err != nil {
					return softFail("creating category", err)
				}

				log.Info().Int64("category_id", category.ID).Msg("Category created")
				return fmt.Sprintf("Created category %s (#%d, %s)", category.Name, category.ID, category.Type), nil
			},
		},
		{
			Name:        "get_balance_summary",
			Description: "Get the user's current balance with total income and total expenses.",
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				balance, err := api.GetBalance(ctx)
				if err != nil {
					return softFail("fetching balance summary", err)
				}
				return asJSON(balance)
			},
		},
		{
			Name:        "get_monthly_summary",
			Description: "Get per-month income and expense totals for a year.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"year": {Type: genai.TypeInteger, Description: "The year (defaults to the current year)."},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				year, ok := argInt64(args, "year")
				if !ok || year < 1 {
					year = int64(time.Now().Year())
				}

				summary, err := api.GetMonthlySummary(ctx, int(year))
				if err != nil {
					return softFail("fetching monthly summary", err)
				}
				return asJSON(summary)
			},
		},
		{
			Name:        "get_spending_by_category",
			Description: "Get the user's spending broken down by category, optionally within a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": {Type: genai.TypeString, Description: "Range start YYYY-MM-DD."},
					"end_date":   {Type: genai.TypeString, Description: "Range end YYYY-MM-DD."},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				startDate, _ := argString(args, "start_date")
				endDate, _ := argString(args, "end_date")
				for _, date := range []string{startDate, endDate} {
					if date != "" {
						if err := validDate(date); err != nil {
							return softFail("fetching spending by category", err)
						}
					}
				}

				spending, err := api.GetSpendingByCategory(ctx, startDate, endDate)
				if err != nil {
					return softFail("fetching spending by category", err)
				}
				return asJSON(spending)
			},
		},
		{
			Name:        "retrieve_knowledge",
			Description: "Search the financial knowledge base for guidance on budgeting, saving, investing and spending.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {Type: genai.TypeString, Description: "What to look up."},
				},
				Required: []string{"query"},
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				query, ok := argString(args, "query")
				if !ok {
					return softFail("retrieving knowledge", errors.New("query is required"))
				}
				return retriever.SerializedKnowledge(ctx, query, retrievalK), nil
			},
		},
	}
}
