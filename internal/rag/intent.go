package rag

import "strings"

// intentByStem maps a document filename stem to the coarse topic tag it
// is indexed under. Unmapped names fall back to "general".
var intentByStem = map[string]string{
	"budgeting_strategies":        "budgeting",
	"cash_flow_management":        "budgeting",
	"expense_categories_tracking": "spending",
	"financial_health":            "general",
	"income_optimization":         "income",
	"investment_basics":           "investing",
	"smart_spending":              "spending",
	"01_budgeting_and_tracking":   "budgeting",
	"02_saving_and_investing":     "investing",
	"03_debt_and_spending":        "spending",
}

// InferIntent returns the intent label for a corpus filename. It strips a
// trailing .md extension and looks the stem up verbatim; there is no
// fuzzy or wildcard matching.
func InferIntent(name string) string {
	stem := strings.TrimSuffix(name, ".md")
	if intent, ok := intentByStem[stem]; ok {
		return intent
	}
	return "general"
}
