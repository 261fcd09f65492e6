package adk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// triageMaxTokens keeps the summary short enough for a CI log.
const triageMaxTokens = 1024

// GeminiProvider talks to the Gemini API. The system instruction is fixed
// to the triage prompt and sampling is deterministic.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(triageMaxTokens)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemPrompt())}}
	return &GeminiProvider{client: client, model: model}, nil
}

// ListModels returns the models that can generate content, without the
// "models/" prefix.
func (g *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	it := g.client.ListModels(ctx)
	var names []string
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}
}

// GenerateResponse replays history as a chat and sends its last turn.
func (g *GeminiProvider) GenerateResponse(ctx context.Context, history []Message) (string, error) {
	if len(history) == 0 {
		return "", errors.New("gemini: nothing to send")
	}
	session := g.model.StartChat()
	for _, msg := range history[:len(history)-1] {
		session.History = append(session.History, content(msg))
	}
	last := content(history[len(history)-1])

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("gemini blocked the prompt: %v", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}

func content(msg Message) *genai.Content {
	role := "user"
	if msg.Role == "model" {
		role = "model"
	}
	return &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}}
}
