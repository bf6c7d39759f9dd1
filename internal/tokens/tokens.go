// Package tokens estimates how many language model tokens a snapshot costs.
// Counts are informational; the aggregation budget is always measured in bytes.
package tokens

import (
	"fmt"
	"log"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultModel is used when no model is configured or the configured one is unknown.
const DefaultModel = "gpt-4o"

// DefaultBytesPerToken is the ratio used by the estimator fallback.
const DefaultBytesPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
	Name() string
}

// Tiktoken counts tokens with an OpenAI BPE encoding.
type Tiktoken struct {
	model string
	ttk   *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for model. An unknown model falls back to
// DefaultModel. Loading may need network access the first time an encoding is used.
func NewTiktoken(model string) (*Tiktoken, error) {
	if model == "" {
		model = DefaultModel
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Printf("Warning: tiktoken model %q not found, falling back to %q: %v", model, DefaultModel, err)
		model = DefaultModel
		tke, err = tiktoken.EncodingForModel(DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding for %q: %w", DefaultModel, err)
		}
	}
	return &Tiktoken{model: model, ttk: tke}, nil
}

func (t *Tiktoken) Count(text string) int {
	if t.ttk == nil {
		return 0
	}
	return len(t.ttk.EncodeOrdinary(text))
}

func (t *Tiktoken) Name() string { return "tiktoken/" + t.model }

// Estimator approximates a token count as ceil(bytes / BytesPerToken).
type Estimator struct {
	BytesPerToken int
}

func (e Estimator) Count(text string) int {
	bpt := e.BytesPerToken
	if bpt <= 0 {
		bpt = DefaultBytesPerToken
	}
	return (len(text) + bpt - 1) / bpt
}

func (e Estimator) Name() string { return "estimate" }

// NewCounter returns a tiktoken counter for model, or an Estimator when no
// encoding can be loaded.
func NewCounter(model string) Counter {
	t, err := NewTiktoken(model)
	if err != nil {
		log.Printf("Warning: using byte estimate for token counts: %v", err)
		return Estimator{BytesPerToken: DefaultBytesPerToken}
	}
	return t
}
