// Package claude implements enrich.Provider on the Anthropic SDK.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/sift/internal/enrich"
)

const responseTokens = 2048

const systemPrompt = `You are Sift, an assistant that triages work items for a venture investor.
Given one item (a task, inbox message, calendar event, commitment, or company),
respond with ONLY a JSON object, no prose and no code fences, shaped as:
{
  "summary": "one sentence: what this item is and why it matters now",
  "highlights": ["short notable facts, at most 3"],
  "suggested_links": [{"target_type": "portfolio_company", "target_id": "...", "target_name": "...", "confidence": 0.0}],
  "suggested_task": {"title": "...", "notes": "..."}
}
Omit suggested_links when nothing in the item names a known entity.
Omit suggested_task when the item needs no follow-up action.
Confidence is your probability that the link is correct.`

// Client implements the Provider interface for the Claude API.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a new Claude client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Extract sends one item to the model and parses its structured output.
func (c *Client) Extract(ctx context.Context, req *enrich.Request) (*enrich.Extraction, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: responseTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	ext, err := parseExtraction(text.String())
	if err != nil {
		return nil, err
	}
	ext.Usage = enrich.Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return ext, nil
}

// buildPrompt renders the item for the model.
func buildPrompt(req *enrich.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source type: %s\nSource ID: %s\nTitle: %s\n", req.SourceType, req.SourceID, req.Title)
	if req.Body != "" {
		fmt.Fprintf(&b, "Body:\n%s\n", req.Body)
	}
	if len(req.ContextLabels) > 0 {
		fmt.Fprintf(&b, "Context: %s\n", strings.Join(req.ContextLabels, ", "))
	}
	if req.HasCompany {
		b.WriteString("The item is already linked to a company.\n")
	}
	if req.Stale {
		b.WriteString("The item has not been touched recently.\n")
	}
	return b.String()
}

// parseExtraction decodes the model's JSON output, tolerating code fences.
func parseExtraction(text string) (*enrich.Extraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var ext enrich.Extraction
	if err := json.Unmarshal([]byte(text), &ext); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	if ext.Summary == "" {
		return nil, fmt.Errorf("parse extraction: empty summary")
	}
	return &ext, nil
}
