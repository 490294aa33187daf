// SPDX-License-Identifier: GPL-3.0-or-later
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Completer uses the Google Gemini API.
type Completer struct {
	client *genai.Client
	model  contentGenerator
}

func NewCompleter(ctx context.Context, apiKey, model string, maxTokens int) (*Completer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("could not create Gemini client: %w", err)
	}

	generativeModel := client.GenerativeModel(model)
	generativeModel.SetMaxOutputTokens(int32(maxTokens))
	generativeModel.ResponseMIMEType = "application/json"

	return &Completer{client: client, model: generativeModel}, nil
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("could not generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	if text.Len() == 0 {
		return "", errors.New("empty response from Gemini")
	}

	return text.String(), nil
}

func (c *Completer) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
