// Package openai provides a questiongen.Provider backed by the OpenAI
// chat completions API, prompted to return a JSON array of questions.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/interviewsim/orchestrator/pkg/provider/questiongen"
)

// Provider implements questiongen.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI-backed question generator.
func New(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("questiongen/openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("questiongen/openai: model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: oai.NewClient(opts...), model: model}, nil
}

// rawQuestion is the shape the model is asked to emit per question.
type rawQuestion struct {
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// GenerateQuestions implements questiongen.Provider.
func (p *Provider) GenerateQuestions(ctx context.Context, req questiongen.Request) ([]questiongen.Question, error) {
	count := req.Count
	if count <= 0 {
		count = 10
	}

	prompt := fmt.Sprintf(
		"Generate exactly %d interview questions for a candidate applying to the role %q, "+
			"given this resume:\n\n%s\n\n"+
			"Respond with a JSON array only, each element shaped as "+
			`{"text": "...", "category": "technical|behavioral|situational", "difficulty": "easy|medium|hard"}.`,
		count, req.RoleTitle, req.ResumeText,
	)

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("questiongen/openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("questiongen/openai: empty choices in response")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)

	var items []rawQuestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("questiongen/openai: parse response: %w", err)
	}

	questions := make([]questiongen.Question, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		category := normalizeCategory(item.Category)
		difficulty := normalizeDifficulty(item.Difficulty)
		if text == "" || category == "" || difficulty == "" {
			continue
		}
		questions = append(questions, questiongen.Question{Text: text, Category: category, Difficulty: difficulty})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questiongen/openai: zero valid questions after filtering")
	}
	return questions, nil
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// per spec.md §4.3's defensive parsing rule.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeCategory(c string) questiongen.Category {
	switch strings.ToUpper(strings.TrimSpace(c)) {
	case string(questiongen.CategoryTechnical):
		return questiongen.CategoryTechnical
	case string(questiongen.CategoryBehavioral):
		return questiongen.CategoryBehavioral
	case string(questiongen.CategorySituational):
		return questiongen.CategorySituational
	default:
		return ""
	}
}

func normalizeDifficulty(d string) questiongen.Difficulty {
	switch strings.ToUpper(strings.TrimSpace(d)) {
	case string(questiongen.DifficultyEasy):
		return questiongen.DifficultyEasy
	case string(questiongen.DifficultyMedium):
		return questiongen.DifficultyMedium
	case string(questiongen.DifficultyHard):
		return questiongen.DifficultyHard
	default:
		return ""
	}
}
