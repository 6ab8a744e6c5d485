package rag

import "testing"

func TestInferIntent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"mapped with extension", "budgeting_strategies.md", "budgeting"},
		{"mapped without extension", "budgeting_strategies", "budgeting"},
		{"cash flow maps to budgeting", "cash_flow_management.md", "budgeting"},
		{"spending doc", "smart_spending.md", "spending"},
		{"income doc", "income_optimization.md", "income"},
		{"investing doc", "investment_basics.md", "investing"},
		{"numbered doc", "02_saving_and_investing.md", "investing"},
		{"explicit general", "financial_health.md", "general"},
		{"unknown doc", "unknown_doc", "general"},
		{"unknown with extension", "random_notes.md", "general"},
		{"empty string", "", "general"},
		{"near miss is not fuzzy matched", "budgeting_strategie.md", "general"},
		{"case sensitive stem", "Budgeting_Strategies.md", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferIntent(tt.doc); got != tt.want {
				t.Errorf("InferIntent(%q) = %q, want %q", tt.doc, got, tt.want)
			}
		})
	}
}
