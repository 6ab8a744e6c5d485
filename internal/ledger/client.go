package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the external ledger service on behalf of one user.
// It holds no state beyond the bearer token and user identifier; every
// method is a single synchronous call that fails on any non-2xx status.
type Client struct {
	baseURL string
	token   string
	userID  int64
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a ledger client scoped to one authenticated user.
func NewClient(baseURL, token string, userID int64, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "ledger").Int64("user_id", userID).Logger(),
	}
}

// StatusError is returned for any non-2xx response from the ledger.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ledger returned status %d", e.Status)
	}
	return fmt.Sprintf("ledger returned status %d: %s", e.Status, e.Body)
}

// do performs one request with the bearer token and userId query
// parameter attached, decoding a 2xx JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("userId", strconv.FormatInt(c.userID, 10))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), reader)
	if err != nil {
		return fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("Ledger request failed")
		return fmt.Errorf("ledger: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Info().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("Ledger request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(excerpt))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// GetTransactions lists the user's transactions, optionally filtered.
func (c *Client) GetTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	query := url.Values{}
	if filter.StartDate != "" {
		query.Set("startDate", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("endDate", filter.EndDate)
	}
	if filter.CategoryID > 0 {
		query.Set("categoryId", strconv.FormatInt(filter.CategoryID, 10))
	}
	if filter.Type != "" {
		query.Set("type", string(filter.Type))
	}

	var out []Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var out Transaction
	err := c.do(ctx, http.MethodGet, "/api/transactions/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

// CreateTransaction books a new transaction. The amount sent on the wire
// is always the absolute value; the ledger derives the sign from the type.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (Transaction, error) {
	req.Amount = math.Abs(req.Amount)
	if req.TransactionDate == "" {
		req.TransactionDate = time.Now().Format("2006-01-02")
	}

	var out Transaction
	err := c.do(ctx, http.MethodPost, "/api/transactions", nil, req, &out)
	return out, err
}

// UpdateTransaction overwrites an existing transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id int64, req TransactionRequest) (Transaction, error) {
	req.Amount = math.Abs(req.Amount)

	var out Transaction
	err := c.do(ctx, http.MethodPut, "/api/transactions/"+strconv.FormatInt(id, 10), nil, req, &out)
	return out, err
}

// DeleteTransaction removes a transaction permanently.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// GetCategories lists the user's categories, optionally filtered by type.
func (c *Client) GetCategories(ctx context.Context, typ TransactionType) ([]Category, error) {
	query := url.Values{}
	if typ != "" {
		query.Set("type", string(typ))
	}

	var out []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory creates a new category of the given type.
func (c *Client) CreateCategory(ctx context.Context, name string, typ TransactionType) (Category, error) {
	var out Category
	err := c.do(ctx, http.MethodPost, "/api/categories", nil, CategoryRequest{Name: name, Type: typ}, &out)
	return out, err
}

// GetBalance returns the running totals for the user.
func (c *Client) GetBalance(ctx context.Context) (BalanceSummary, error) {
	var out BalanceSummary
	err := c.do(ctx, http.MethodGet, "/api/transactions/dashboard/balance", nil, nil, &out)
	return out, err
}

// GetMonthlySummary returns per-month income/expense rows for a year.
func (c *Client) GetMonthlySummary(ctx context.Context, year int) ([]MonthlySummary, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(year))

	var out []MonthlySummary
	if err := c.do(ctx, http.MethodGet, "/api/transactions/dashboard/monthly-summary", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecentTransactions returns the user's most recent transactions.
func (c *Client) GetRecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out []Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions/dashboard/recent", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSpendingByCategory returns the spending breakdown per category.
func (c *Client) GetSpendingByCategory(ctx context.Context, startDate, endDate string) (SpendingSummary, error) {
	query := url.Values{}
	if startDate != "" {
		query.Set("startDate", startDate)
	}
	if endDate != "" {
		query.Set("endDate", endDate)
	}

	var out SpendingSummary
	err := c.do(ctx, http.MethodGet, "/api/transactions/dashboard/spending-categories", query, nil, &out)
	return out, err
}
