package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"finassist/internal/logger"
)

// scriptedModel returns canned responses in order and records what it
// was sent.
type scriptedModel struct {
	responses []*genai.GenerateContentResponse
	sent      [][]*genai.Content
	err       error
}

func (m *scriptedModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.sent = append(m.sent, contents)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sent) > len(m.responses) {
		return nil, errors.New("scriptedModel: out of responses")
	}
	return m.responses[len(m.sent)-1], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: name, Args: args}}},
			},
		}},
	}
}

func echoTool(name string, calls *int) Tool {
	return Tool{
		Name:        name,
		Description: "test tool",
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			*calls++
			return "tool output", nil
		},
	}
}

func newTestAgent(model ModelCaller) (*Agent, *Sessions) {
	sessions := NewSessions(time.Hour)
	return New(model, "test-model", sessions, logger.NewWithWriter(discard{})), sessions
}

func TestChat_PlainAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{textResponse("Hello!")}}
	agent, sessions := newTestAgent(model)

	answer, err := agent.Chat(context.Background(), "s1", "hi", nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer != "Hello!" {
		t.Errorf("answer = %q, want Hello!", answer)
	}

	// user turn + model answer persisted
	if got := len(sessions.History("s1")); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestChat_ExecutesToolCallRound(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse("get_balance_summary", map[string]any{}),
		textResponse("Your balance is 600."),
	}}
	agent, _ := newTestAgent(model)

	calls := 0
	answer, err := agent.Chat(context.Background(), "s1", "what's my balance?", []Tool{echoTool("get_balance_summary", &calls)})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("tool executed %d times, want 1", calls)
	}
	if answer != "Your balance is 600." {
		t.Errorf("answer = %q", answer)
	}

	// The second model call must carry the function response.
	if len(model.sent) != 2 {
		t.Fatalf("model called %d times, want 2", len(model.sent))
	}
	last := model.sent[1][len(model.sent[1])-1]
	if len(last.Parts) != 1 || last.Parts[0].FunctionResponse == nil {
		t.Fatal("expected a function response part in the follow-up call")
	}
	if got := last.Parts[0].FunctionResponse.Response["output"]; got != "tool output" {
		t.Errorf("function response output = %v, want 'tool output'", got)
	}
}

func TestChat_ToolErrorBecomesText(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse("add_transaction", map[string]any{}),
		textResponse("Sorry, that did not work."),
	}}
	agent, _ := newTestAgent(model)

	failing := Tool{
		Name:       "add_transaction",
		Parameters: &genai.Schema{Type: genai.TypeObject},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			return softFail("adding transaction", errors.New("amount must be a non-zero number"))
		},
	}

	if _, err := agent.Chat(context.Background(), "s1", "add it", []Tool{failing}); err != nil {
		t.Fatalf("Chat failed: %v (tool errors must not fail the turn)", err)
	}

	last := model.sent[1][len(model.sent[1])-1]
	output, _ := last.Parts[0].FunctionResponse.Response["output"].(string)
	if !strings.HasPrefix(output, "Error adding transaction:") {
		t.Errorf("function response = %q, want rendered tool error", output)
	}
}

func TestChat_UnknownToolReportedToModel(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse("does_not_exist", map[string]any{}),
		textResponse("ok"),
	}}
	agent, _ := newTestAgent(model)

	if _, err := agent.Chat(context.Background(), "s1", "hm", nil); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	last := model.sent[1][len(model.sent[1])-1]
	output, _ := last.Parts[0].FunctionResponse.Response["output"].(string)
	if !strings.Contains(output, "unknown tool") {
		t.Errorf("function response = %q, want unknown-tool text", output)
	}
}

func TestChat_ModelErrorFailsTurnWithoutPersisting(t *testing.T) {
	model := &scriptedModel{err: errors.New("rate limited")}
	agent, sessions := newTestAgent(model)

	if _, err := agent.Chat(context.Background(), "s1", "hi", nil); err == nil {
		t.Fatal("expected error when the model call fails")
	}
	if sessions.History("s1") != nil {
		t.Error("failed turn must not persist history")
	}
}

func TestChat_BoundedToolRounds(t *testing.T) {
	// A model that never stops asking for tools must not loop forever.
	responses := make([]*genai.GenerateContentResponse, maxToolRounds+1)
	for i := range responses {
		responses[i] = callResponse("loop", map[string]any{})
	}
	model := &scriptedModel{responses: responses}
	agent, _ := newTestAgent(model)

	calls := 0
	_, err := agent.Chat(context.Background(), "s1", "go", []Tool{echoTool("loop", &calls)})
	if err == nil {
		t.Fatal("expected error after exceeding tool-call rounds")
	}
	if !strings.Contains(err.Error(), "tool-call rounds") {
		t.Errorf("error = %v", err)
	}
	if calls != maxToolRounds {
		t.Errorf("tool ran %d times, want %d", calls, maxToolRounds)
	}
}

func TestChat_HistoryCarriesAcrossTurns(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		textResponse("First answer."),
		textResponse("Second answer."),
	}}
	agent, _ := newTestAgent(model)

	if _, err := agent.Chat(context.Background(), "s1", "first", nil); err != nil {
		t.Fatalf("turn 1 failed: %v", err)
	}
	if _, err := agent.Chat(context.Background(), "s1", "second", nil); err != nil {
		t.Fatalf("turn 2 failed: %v", err)
	}

	// Turn 2 must include turn 1's user message and answer.
	sent := model.sent[1]
	if len(sent) != 3 {
		t.Fatalf("turn 2 sent %d contents, want 3 (prior user, prior answer, new user)", len(sent))
	}
	if sent[0].Parts[0].Text != "first" || sent[1].Parts[0].Text != "First answer." {
		t.Error("turn 2 is missing prior conversation")
	}
}

func TestChat_SessionsAreIsolated(t *testing.T) {
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		textResponse("a"),
		textResponse("b"),
	}}
	agent, sessions := newTestAgent(model)

	if _, err := agent.Chat(context.Background(), "s1", "hello", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := agent.Chat(context.Background(), "s2", "hola", nil); err != nil {
		t.Fatal(err)
	}

	if len(sessions.History("s1")) != 2 || len(sessions.History("s2")) != 2 {
		t.Error("each session must hold only its own turns")
	}
}
