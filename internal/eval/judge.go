package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// generator is the single model operation the judge needs; the genai
// client's Models service satisfies it.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// LLMJudge rates answers with a Gemini model. Temperature is pinned to
// zero so repeated runs score consistently.
type LLMJudge struct {
	model     generator
	modelName string
}

func NewLLMJudge(model generator, modelName string) *LLMJudge {
	return &LLMJudge{model: model, modelName: modelName}
}

const judgePromptFormat = "You are grading a finance assistant's answer.\n\n" +
	"Question:\n%s\n\n" +
	"Reference answer:\n%s\n\n" +
	"Assistant's answer:\n%s\n\n" +
	"Rate the assistant's answer on two axes, each a number between 0 and 1:\n" +
	"- faithfulness: does it agree with the reference answer and avoid invented facts?\n" +
	"- relevance: does it actually address the question asked?\n\n" +
	"Return ONLY valid raw JSON shaped exactly as:\n" +
	"{\"faithfulness\": 0.0, \"relevance\": 0.0}\n" +
	"Do NOT wrap the response in code fences or add any other text.\n"

func (j *LLMJudge) Score(ctx context.Context, c Case, answer string) (Scores, error) {
	prompt := fmt.Sprintf(judgePromptFormat, c.Question, c.GroundTruth, answer)

	resp, err := j.model.GenerateContent(ctx, j.modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return Scores{}, fmt.Errorf("eval: judge call: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return Scores{}, fmt.Errorf("eval: judge returned empty response")
	}

	var scores Scores
	if err := json.Unmarshal([]byte(cleanJudgeJSON(raw)), &scores); err != nil {
		return Scores{}, fmt.Errorf("eval: parse judge response %q: %w", raw, err)
	}

	if scores.Faithfulness < 0 || scores.Faithfulness > 1 || scores.Relevance < 0 || scores.Relevance > 1 {
		return Scores{}, fmt.Errorf("eval: judge scores out of range: %+v", scores)
	}
	return scores, nil
}

// cleanJudgeJSON strips Markdown fences and surrounding prose when the
// model ignores the raw-JSON instruction.
func cleanJudgeJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
