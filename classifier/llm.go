// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

const (
	ReasonUnparseable = "Unable to classify, keeping safe"

	// legacy token for USELESS still emitted by some prompts
	tokenInutile = "INUTILE"

	maxReasonChars = 500
)

//go:generate mockgen -destination=completer_mocks_test.go -package=classifier -source llm.go

// Completer sends a single prompt to a language model and returns its raw text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type LLMClassifier struct {
	completer    Completer
	maxBodyChars int
	l            *logrus.Logger
}

func NewLLMClassifier(completer Completer, maxBodyChars int) *LLMClassifier {
	return &LLMClassifier{
		completer:    completer,
		maxBodyChars: maxBodyChars,
		l:            log.Logger(log.LOG_CLASSIFIER),
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, msg *domain.Message) (*domain.Classification, error) {
	prompt := BuildPrompt(msg, c.maxBodyChars)

	answer, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("could not complete classification prompt: %w", err)
	}

	classification, structured := ParseResponse(answer)
	if !structured {
		c.l.WithFields(logrus.Fields{
			"messageId": msg.MessageID,
			"category":  classification.Category,
		}).Warn("Could not parse model answer as JSON, used text fallback")
	}

	return classification, nil
}

const promptTemplate = `You sort incoming email into exactly one of three categories:

SPAM: unsolicited advertising, scams, phishing, suspicious mail
USELESS: unimportant newsletters, social network notifications, brand promotions
IMPORTANT: mail from customers, official documents, invoices, relevant professional mail

Strict rules:
- Mail from banks, tax offices, notaries, lawyers and public administrations is ALWAYS IMPORTANT
- When in doubt, answer IMPORTANT rather than risk deleting useful mail

Sender name: %s
Sender address: %s
Subject: %s
Body:
%s

Answer ONLY with JSON in this form, without markdown:
{
  "classification": "SPAM|USELESS|IMPORTANT",
  "reasoning": "short explanation of the decision"
}`

// BuildPrompt renders the classification prompt. The body is cut to
// maxBodyChars runes, a non-positive limit disables the cut.
func BuildPrompt(msg *domain.Message, maxBodyChars int) string {
	body := Truncate(msg.Body, maxBodyChars)
	if strings.TrimSpace(body) == "" {
		body = "(empty)"
	}

	return fmt.Sprintf(promptTemplate, msg.FromName, msg.FromAddress, msg.Subject, body)
}

func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}

	return string(runes[:maxChars])
}

type answer struct {
	Classification string `json:"classification"`
	Reasoning      string `json:"reasoning"`
}

// ParseResponse turns a model answer into a classification. The second return
// value reports whether the answer was valid JSON. Unstructured answers are
// scanned for category tokens, anything unrecognised is IMPORTANT.
func ParseResponse(text string) (*domain.Classification, bool) {
	if parsed, ok := parseJSON(text); ok {
		return parsed, true
	}

	return scanTokens(text), false
}

func parseJSON(text string) (*domain.Classification, bool) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return nil, false
	}

	a := &answer{}
	err := json.Unmarshal([]byte(cleaned[start:end+1]), a)
	if err != nil {
		return nil, false
	}

	category, known := categoryFromToken(a.Classification)
	if !known {
		return &domain.Classification{
			Category: domain.Important,
			Reason:   fmt.Sprintf("Unknown classification %q, keeping safe", Truncate(a.Classification, 50)),
		}, true
	}

	reason := strings.TrimSpace(a.Reasoning)
	if reason == "" {
		reason = "No reasoning given"
	}

	return &domain.Classification{Category: category, Reason: Truncate(reason, maxReasonChars)}, true
}

func categoryFromToken(token string) (domain.Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case string(domain.Spam):
		return domain.Spam, true
	case string(domain.Useless), tokenInutile:
		return domain.Useless, true
	case string(domain.Important):
		return domain.Important, true
	default:
		return "", false
	}
}

func scanTokens(text string) *domain.Classification {
	reason := Truncate(strings.TrimSpace(text), maxReasonChars)

	switch {
	case strings.Contains(text, string(domain.Spam)):
		return &domain.Classification{Category: domain.Spam, Reason: reason}
	case strings.Contains(text, string(domain.Useless)), strings.Contains(text, tokenInutile):
		return &domain.Classification{Category: domain.Useless, Reason: reason}
	case strings.Contains(text, string(domain.Important)):
		return &domain.Classification{Category: domain.Important, Reason: reason}
	default:
		return &domain.Classification{Category: domain.Important, Reason: ReasonUnparseable}
	}
}
