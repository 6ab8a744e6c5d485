// Package eval scores the assistant's answers against a fixed test set,
// using an LLM judge for faithfulness and relevance.
package eval

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Case is one evaluation question with its reference answer.
type Case struct {
	Question    string `json:"question"`
	GroundTruth string `json:"ground_truth"`
}

// Scores are the judge's 0-1 quality ratings for one answer.
type Scores struct {
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
}

// Result is the outcome for one case. Scores are NaN when judging
// failed; Err carries the failure reason for the report.
type Result struct {
	Index        int     `json:"index"`
	Question     string  `json:"question"`
	GroundTruth  string  `json:"ground_truth"`
	Answer       string  `json:"answer"`
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
	Err          string  `json:"error,omitempty"`
}

// MarshalJSON renders NaN scores as null, which encoding/json cannot do
// for plain float64 fields.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias struct {
		Index        int      `json:"index"`
		Question     string   `json:"question"`
		GroundTruth  string   `json:"ground_truth"`
		Answer       string   `json:"answer"`
		Faithfulness *float64 `json:"faithfulness"`
		Relevance    *float64 `json:"relevance"`
		Err          string   `json:"error,omitempty"`
	}
	a := alias{
		Index:       r.Index,
		Question:    r.Question,
		GroundTruth: r.GroundTruth,
		Answer:      r.Answer,
		Err:         r.Err,
	}
	if !math.IsNaN(r.Faithfulness) {
		a.Faithfulness = &r.Faithfulness
	}
	if !math.IsNaN(r.Relevance) {
		a.Relevance = &r.Relevance
	}
	return json.Marshal(a)
}

// LoadCases reads the JSON test dataset.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eval: reading dataset %s: %w", path, err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("eval: parsing dataset %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("eval: dataset %s is empty", path)
	}
	return cases, nil
}

// HTTPAsker sends each question to a running chat server, one fresh
// session per question so answers do not leak between cases.
type HTTPAsker struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPAsker(baseURL, token string, timeout time.Duration) *HTTPAsker {
	return &HTTPAsker{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAsker) Ask(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"question":   question,
		"session_id": "eval-" + uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("eval: marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("eval: build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("eval: chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("eval: chat returned status %d", resp.StatusCode)
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("eval: decode chat response: %w", err)
	}
	return body.Answer, nil
}

// WriteJSON writes the full results to path.
func WriteJSON(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("eval: marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("eval: writing %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes a flat results table to path.
func WriteCSV(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eval: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "question", "answer", "faithfulness", "relevance", "error"}); err != nil {
		return fmt.Errorf("eval: writing header: %w", err)
	}
	for _, r := range results {
		record := []string{
			strconv.Itoa(r.Index),
			r.Question,
			r.Answer,
			formatScore(r.Faithfulness),
			formatScore(r.Relevance),
			r.Err,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("eval: writing row %d: %w", r.Index, err)
		}
	}
	w.Flush()
	return w.Error()
}

// Summary averages the scores across results, skipping failed cases.
func Summary(results []Result) Scores {
	var sum Scores
	var n int
	for _, r := range results {
		if math.IsNaN(r.Faithfulness) || math.IsNaN(r.Relevance) {
			continue
		}
		sum.Faithfulness += r.Faithfulness
		sum.Relevance += r.Relevance
		n++
	}
	if n == 0 {
		return Scores{Faithfulness: math.NaN(), Relevance: math.NaN()}
	}
	return Scores{
		Faithfulness: sum.Faithfulness / float64(n),
		Relevance:    sum.Relevance / float64(n),
	}
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
