// Package anthropic provides a feedbackgen.Provider backed by Claude,
// prompted to return structured interview feedback as JSON.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/interviewsim/orchestrator/pkg/provider/feedbackgen"
)

const defaultMaxTokens = 1024

// Provider implements feedbackgen.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
	model  string
}

// New constructs a Claude-backed feedback generator.
func New(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("feedbackgen/anthropic: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("feedbackgen/anthropic: model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: anthropic.NewClient(opts...), model: model}, nil
}

// rawResult is the shape Claude is asked to emit.
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
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/anthropic: pairs must not be empty")
	}

	var transcript strings.Builder
	for i, pair := range pairs {
		fmt.Fprintf(&transcript, "Q%d: %s\nA%d: %s\n\n", i+1, pair.QuestionText, i+1, pair.AnswerText)
	}

	prompt := fmt.Sprintf(
		"Evaluate the following interview transcript and respond with a single JSON object "+
			"with keys score (0-100 integer), strengths (string array), weaknesses (string array), "+
			"recommendations (string array), and detailed_analysis (string). Respond with JSON only.\n\n%s",
		transcript.String(),
	)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/anthropic: messages.new: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/anthropic: empty response content")
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(stripCodeFence(text.String())), &raw); err != nil {
		return feedbackgen.Result{}, fmt.Errorf("feedbackgen/anthropic: parse response: %w", err)
	}

	return feedbackgen.Result{
		Score:            clampScore(raw.Score),
		Strengths:        defaultEmpty(raw.Strengths),
		Weaknesses:       defaultEmpty(raw.Weaknesses),
		Recommendations:  defaultEmpty(raw.Recommendations),
		DetailedAnalysis: raw.DetailedAnalysis,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
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

var _ feedbackgen.Provider = (*Provider)(nil)
