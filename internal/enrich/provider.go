// Package enrich runs AI enrichment over observed source items. The output is
// opaque to scoring and triage: they only ever check that extract rows exist.
package enrich

import "context"

// Provider is the interface for any enrichment backend.
type Provider interface {
	Extract(ctx context.Context, req *Request) (*Extraction, error)
}

// Request carries the raw item content handed to the provider. HasCompany
// tells the engine whether the source row already points at a company.
type Request struct {
	SourceType    string
	SourceID      string
	Title         string
	Body          string
	ContextLabels []string
	HasCompany    bool
	Stale         bool
}

// SuggestedLink is a candidate entity association proposed by the provider.
type SuggestedLink struct {
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	TargetName string  `json:"target_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// SuggestedTask is a proposed follow-up action.
type SuggestedTask struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// Usage reports provider token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Extraction is the provider's structured output.
type Extraction struct {
	Summary        string          `json:"summary"`
	Highlights     []string        `json:"highlights,omitempty"`
	SuggestedLinks []SuggestedLink `json:"suggested_links,omitempty"`
	SuggestedTask  *SuggestedTask  `json:"suggested_task,omitempty"`
	Usage          Usage           `json:"-"`
}
