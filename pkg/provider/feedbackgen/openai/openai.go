// Package openai provides a feedbackgen.Provider backed by the OpenAI chat
// completions API, prompted to return structured interview feedback as JSON.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/interviewsim/orchestrator/pkg/provider/feedbackgen"
)

// Provider implements feedbackgen.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI-backed feedback generator.
func New(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("feedbackgen/openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("feedbackgen/openai: model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: oai.NewClient(opts...), model: model}, nil
}

// rawResult is the shape the model is asked to emit.
type rawResult struct {
	Score            int      `json:"score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Recommendations  []string `json:"recommendations"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

// GenerateFeedback implements feedbackgen.Provider.
func (p *Provider) GenerateFeedback(ctx context.Context, pairs []feedbackgen.QAPair) (feedbackgen.Result, error) {
	if len(pairs) == 0 {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/openai: pairs must not be empty")
	}

	var transcript strings.Builder
	for i, pair := range pairs {
		fmt.Fprintf(&transcript, "Q%d: %s\nA%d: %s\n\n", i+1, pair.QuestionText, i+1, pair.AnswerText)
	}

	prompt := fmt.Sprintf(
		"You are an interview coach. Evaluate the following interview transcript and "+
			"respond with a JSON object only, shaped as "+
			`{"score": 0-100, "strengths": ["..."], "weaknesses": ["..."], `+
			`"recommendations": ["..."], "detailed_analysis": "..."}.`+
			"\n\nTranscript:\n\n%s",
		transcript.String(),
	)

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/openai: empty choices in response")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)

	var parsed rawResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/openai: parse response: %w", err)
	}

	return feedbackgen.Result{
		Score:            clampScore(parsed.Score),
		Strengths:        defaultEmpty(parsed.Strengths),
		Weaknesses:       defaultEmpty(parsed.Weaknesses),
		Recommendations:  defaultEmpty(parsed.Recommendations),
		DetailedAnalysis: strings.TrimSpace(parsed.DetailedAnalysis),
	}, nil
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence.
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

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func defaultEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
