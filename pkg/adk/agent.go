// Package adk asks an LLM for a triage summary of a unified report. It is
// advisory only: nothing it returns feeds back into the verdict.
package adk

import (
	"context"
	"errors"
	"strings"

	"github.com/user/secgate/pkg/report"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string // "user" or "model"
	Content string
}

// LLMProvider is a chat model.
type LLMProvider interface {
	GenerateResponse(ctx context.Context, history []Message) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Close()
}

// Triager turns a report into a short prioritized summary.
type Triager struct {
	llm LLMProvider
}

func NewTriager(llm LLMProvider) *Triager {
	return &Triager{llm: llm}
}

// Explain sends the report digest to the model. Raw scanner payloads are
// never included in the prompt.
func (t *Triager) Explain(ctx context.Context, r *report.Report) (string, error) {
	prompt, err := BuildTriagePrompt(r)
	if err != nil {
		return "", err
	}
	history := []Message{{Role: "user", Content: prompt}}
	resp, err := t.llm.GenerateResponse(ctx, history)
	if err != nil {
		return "", err
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", errors.New("model returned an empty summary")
	}
	return resp, nil
}
