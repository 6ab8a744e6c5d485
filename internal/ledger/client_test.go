package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finassist/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 7, 5*time.Second, logger.NewWithWriter(testWriter{t}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestClient_AttachesAuthAndUserID(t *testing.T) {
	var gotAuth, gotUserID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUserID = r.URL.Query().Get("userId")
		json.NewEncoder(w).Encode([]Transaction{})
	})

	if _, err := client.GetTransactions(context.Background(), TransactionFilter{}); err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
	if gotUserID != "7" {
		t.Errorf("userId = %q, want 7", gotUserID)
	}
}

func TestClient_CreateTransaction_AbsoluteAmount(t *testing.T) {
	var got TransactionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(Transaction{ID: 99, Amount: got.Amount})
	})

	txn, err := client.CreateTransaction(context.Background(), TransactionRequest{
		CategoryID:  3,
		Type:        TypeExpense,
		Amount:      -120.50,
		Description: "Groceries",
	})
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if got.Amount != 120.50 {
		t.Errorf("wire amount = %v, want 120.50 (absolute value)", got.Amount)
	}
	if got.TransactionDate == "" {
		t.Error("expected transactionDate to default to today, got empty")
	}
	if txn.ID != 99 {
		t.Errorf("returned ID = %d, want 99", txn.ID)
	}
}

func TestClient_UpdateTransaction_AbsoluteAmount(t *testing.T) {
	var got TransactionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(Transaction{ID: 5})
	})

	_, err := client.UpdateTransaction(context.Background(), 5, TransactionRequest{
		CategoryID:      1,
		Type:            TypeIncome,
		Amount:          -42,
		TransactionDate: "2026-01-15",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	if got.Amount != 42 {
		t.Errorf("wire amount = %v, want 42", got.Amount)
	}
}

func TestClient_GetTransactions_Filters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "EXPENSE" || q.Get("startDate") != "2026-01-01" || q.Get("categoryId") != "4" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]Transaction{{ID: 1}})
	})

	txns, err := client.GetTransactions(context.Background(), TransactionFilter{
		StartDate:  "2026-01-01",
		CategoryID: 4,
		Type:       TypeExpense,
	})
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"category not found"}`, http.StatusNotFound)
	})

	_, err := client.GetTransaction(context.Background(), 123)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if statusErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", statusErr.Status)
	}
}

func TestClient_DashboardEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transactions/dashboard/balance":
			json.NewEncoder(w).Encode(BalanceSummary{TotalIncome: 5000, TotalExpense: 2000, CurrentBalance: 3000})
		case "/api/transactions/dashboard/monthly-summary":
			if r.URL.Query().Get("year") != "2026" {
				t.Errorf("year = %q, want 2026", r.URL.Query().Get("year"))
			}
			json.NewEncoder(w).Encode([]MonthlySummary{{Month: "Jan", Income: 100, Expense: 50}})
		case "/api/transactions/dashboard/spending-categories":
			json.NewEncoder(w).Encode(SpendingSummary{
				TotalSpending: 800,
				Categories:    []CategorySpend{{Label: "Food", Value: 60}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()

	balance, err := client.GetBalance(ctx)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance.CurrentBalance != 3000 {
		t.Errorf("CurrentBalance = %v, want 3000", balance.CurrentBalance)
	}

	monthly, err := client.GetMonthlySummary(ctx, 2026)
	if err != nil {
		t.Fatalf("GetMonthlySummary failed: %v", err)
	}
	if len(monthly) != 1 || monthly[0].Month != "Jan" {
		t.Errorf("monthly = %+v, want one Jan row", monthly)
	}

	spending, err := client.GetSpendingByCategory(ctx, "", "")
	if err != nil {
		t.Fatalf("GetSpendingByCategory failed: %v", err)
	}
	if spending.TotalSpending != 800 {
		t.Errorf("TotalSpending = %v, want 800", spending.TotalSpending)
	}
}

func TestClient_DeleteTransaction(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteTransaction(context.Background(), 17); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/transactions/17" {
		t.Errorf("request = %s %s, want DELETE /api/transactions/17", gotMethod, gotPath)
	}
}
