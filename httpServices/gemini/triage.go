// Package gemini asks a Gemini model for a ticket priority suggestion.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"institution-manager/constants"
	ticketTypes "institution-manager/types/ticket"

	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("gemini is not configured")

type TriageClient struct {
	apiKey string
	model  string
}

func NewTriageClient(apiKey, model string) *TriageClient {
	return &TriageClient{apiKey: apiKey, model: model}
}

func (c *TriageClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// SuggestPriority returns the model's priority for a ticket. The answer is
// advisory; nothing is written to the ticket.
func (c *TriageClient) SuggestPriority(ctx context.Context, subject string, description *string) (*ticketTypes.TriageSuggestion, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: Prompt(subject, description)}}}},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0.1)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate triage suggestion: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no content generated")
	}

	return ParseSuggestion(result.Candidates[0].Content.Parts[0].Text)
}

// Prompt builds the triage instruction for one ticket.
func Prompt(subject string, description *string) string {
	desc := ""
	if description != nil {
		desc = *description
	}
	return fmt.Sprintf(`You triage helpdesk tickets for a university.
Choose one priority from: %s.
Reply with JSON only: {"priority": "<one of the above>", "reason": "<one sentence>"}.

Subject: %s
Description: %s`, strings.Join(constants.Priorities, ", "), subject, desc)
}

// ParseSuggestion reads the model answer, tolerating a markdown code fence.
func ParseSuggestion(text string) (*ticketTypes.TriageSuggestion, error) {
	var s ticketTypes.TriageSuggestion
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &s); err != nil {
		return nil, fmt.Errorf("failed to parse triage response: %w", err)
	}
	for _, p := range constants.Priorities {
		if strings.EqualFold(p, s.Priority) {
			s.Priority = p
			return &s, nil
		}
	}
	return nil, fmt.Errorf("unexpected priority %q", s.Priority)
}

// ExtractJSON strips a ```json or ``` fence around the payload.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 1 {
			return strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return text
}
