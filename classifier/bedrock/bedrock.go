// SPDX-License-Identifier: GPL-3.0-or-later
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Completer invokes an Anthropic Claude model hosted on Amazon Bedrock.
type Completer struct {
	client    modelInvoker
	modelID   string
	maxTokens int
}

// NewCompleter resolves AWS credentials the default way (environment,
// shared config, instance role).
func NewCompleter(ctx context.Context, region, modelID string, maxTokens int) (*Completer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("could not load AWS configuration: %w", err)
	}

	return &Completer{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		maxTokens: maxTokens,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(&request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages:         []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal request payload: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("could not invoke Bedrock model: %w", err)
	}

	resp := &response{}
	err = json.Unmarshal(out.Body, resp)
	if err != nil {
		return "", fmt.Errorf("could not unmarshal Bedrock response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", errors.New("empty response from Bedrock")
	}

	return text.String(), nil
}
