package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// maxToolRounds bounds how many model/tool round trips one chat turn may
// take before the turn is abandoned.
const maxToolRounds = 8

// ModelCaller is the single model operation the agent needs. The genai
// client's Models service satisfies it.
type ModelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Agent drives the tool-calling conversation loop: it sends the session
// history plus the new question to the model, executes any tool calls
// the model requests, feeds the results back, and repeats until the
// model produces a plain answer.
type Agent struct {
	model     ModelCaller
	modelName string
	sessions  *Sessions
	log       zerolog.Logger
}

// New creates an agent around a model and a session store.
func New(model ModelCaller, modelName string, sessions *Sessions, log zerolog.Logger) *Agent {
	return &Agent{
		model:     model,
		modelName: modelName,
		sessions:  sessions,
		log:       log.With().Str("component", "agent").Logger(),
	}
}

// Chat answers one question within a session, using the given per-user
// tool catalog. The session history is only persisted once a turn
// completes, so a failed turn leaves memory untouched.
func (a *Agent) Chat(ctx context.Context, sessionID, question string, tools []Tool) (string, error) {
	contents := slices.Clone(a.sessions.History(sessionID))
	contents = append(contents, genai.NewContentFromText(question, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools:             declarations(tools),
		Temperature:       genai.Ptr[float32](0),
	}

	byName := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.model.GenerateContent(ctx, a.modelName, contents, config)
		if err != nil {
			return "", fmt.Errorf("agent: model call: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", errors.New("agent: model returned no candidates")
		}
		contents = append(contents, resp.Candidates[0].Content)

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			answer := resp.Text()
			a.sessions.Replace(sessionID, contents)
			a.log.Info().Str("session_id", sessionID).Int("rounds", round+1).Msg("Chat turn completed")
			return answer, nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			output := a.execute(ctx, byName, call)
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{"output": output}))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	return "", fmt.Errorf("agent: exceeded %d tool-call rounds without an answer", maxToolRounds)
}

// execute runs one requested tool call and renders its outcome as text.
// Failures become conversational feedback, never a failed turn.
func (a *Agent) execute(ctx context.Context, byName map[string]Tool, call *genai.FunctionCall) string {
	tool, ok := byName[call.Name]
	if !ok {
		a.log.Warn().Str("tool", call.Name).Msg("Model requested unknown tool")
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	a.log.Info().Str("tool", call.Name).Interface("args", call.Args).Msg("Executing tool")

	text, err := tool.Run(ctx, call.Args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			a.log.Warn().Err(toolErr.Err).Str("tool", call.Name).Msg("Tool reported soft failure")
			return toolErr.Text()
		}
		a.log.Error().Err(err).Str("tool", call.Name).Msg("Tool failed")
		return "Error: " + err.Error()
	}
	return text
}

func declarations(tools []Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
