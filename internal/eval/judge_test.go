package eval

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type cannedModel struct {
	text string
	sent string
}

func (m *cannedModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for _, c := range contents {
		for _, p := range c.Parts {
			m.sent += p.Text
		}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.text}}},
		}},
	}, nil
}

func TestLLMJudge_ParsesScores(t *testing.T) {
	model := &cannedModel{text: `{"faithfulness": 0.9, "relevance": 0.7}`}
	judge := NewLLMJudge(model, "test-model")

	scores, err := judge.Score(context.Background(), Case{Question: "q", GroundTruth: "t"}, "a")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if scores.Faithfulness != 0.9 || scores.Relevance != 0.7 {
		t.Errorf("scores = %+v", scores)
	}
	if !strings.Contains(model.sent, "q") || !strings.Contains(model.sent, "t") || !strings.Contains(model.sent, "a") {
		t.Error("judge prompt must carry question, reference and answer")
	}
}

func TestLLMJudge_StripsCodeFences(t *testing.T) {
	model := &cannedModel{text: "```json\n{\"faithfulness\": 1, \"relevance\": 1}\n```"}
	judge := NewLLMJudge(model, "test-model")

	scores, err := judge.Score(context.Background(), Case{}, "a")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if scores.Faithfulness != 1 {
		t.Errorf("Faithfulness = %v, want 1", scores.Faithfulness)
	}
}

func TestLLMJudge_RejectsOutOfRange(t *testing.T) {
	model := &cannedModel{text: `{"faithfulness": 3, "relevance": 0.5}`}
	judge := NewLLMJudge(model, "test-model")

	if _, err := judge.Score(context.Background(), Case{}, "a"); err == nil {
		t.Fatal("expected error for out-of-range score")
	}
}

func TestLLMJudge_RejectsGarbage(t *testing.T) {
	model := &cannedModel{text: "I think it's pretty good!"}
	judge := NewLLMJudge(model, "test-model")

	if _, err := judge.Score(context.Background(), Case{}, "a"); err == nil {
		t.Fatal("expected error for unparseable judge output")
	}
}

func TestCleanJudgeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", "Here you go: {\"a\": 1} hope that helps", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJudgeJSON(tt.in); got != tt.want {
				t.Errorf("cleanJudgeJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
