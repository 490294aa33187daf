// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"fmt"

	"github.com/CrawX/go-imap-triage/classifier"
	"github.com/CrawX/go-imap-triage/classifier/bedrock"
	"github.com/CrawX/go-imap-triage/classifier/gemini"
	"github.com/CrawX/go-imap-triage/classifier/openai"
	"github.com/CrawX/go-imap-triage/classifier/rspamd"
	"github.com/CrawX/go-imap-triage/classifier/spamassassin"
	"github.com/CrawX/go-imap-triage/config"
	"github.com/CrawX/go-imap-triage/domain"
)

// newClassifier builds the configured backend. The returned func releases
// backend resources and is never nil on success.
func newClassifier(ctx context.Context, conf *config.Config) (domain.AIClassifier, func(), error) {
	noop := func() {}

	var completer classifier.Completer
	switch conf.Classifier {
	case config.ClassifierOpenAI:
		completer = openai.NewCompleter(conf.OpenAI.ApiKey, conf.OpenAI.Model, conf.OpenAI.BaseURL, conf.MaxTokens)
	case config.ClassifierBedrock:
		c, err := bedrock.NewCompleter(ctx, conf.Bedrock.Region, conf.Bedrock.ModelID, conf.MaxTokens)
		if err != nil {
			return nil, nil, fmt.Errorf("could not start bedrock classifier: %w", err)
		}
		completer = c
	case config.ClassifierGemini:
		c, err := gemini.NewCompleter(ctx, conf.Gemini.ApiKey, conf.Gemini.Model, conf.MaxTokens)
		if err != nil {
			return nil, nil, fmt.Errorf("could not start gemini classifier: %w", err)
		}
		llm := classifier.NewLLMClassifier(c, conf.MaxBodyChars)
		return classifier.NewRetryingClassifier(llm, conf.ClassifierAttempts), func() { c.Close() }, nil
	case config.ClassifierSpamassassin:
		sa, err := spamassassin.NewSpamassassin(ctx, conf.SpamassassinHost)
		if err != nil {
			return nil, nil, fmt.Errorf("could not start spamassassin classifier: %w", err)
		}
		return classifier.NewRetryingClassifier(sa, conf.ClassifierAttempts), noop, nil
	case config.ClassifierRspamd:
		rs, err := rspamd.NewRspamd(ctx, conf.RspamdController, conf.RspamdPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("could not start rspamd classifier: %w", err)
		}
		return classifier.NewRetryingClassifier(rs, conf.ClassifierAttempts), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown classifier %q", conf.Classifier)
	}

	llm := classifier.NewLLMClassifier(completer, conf.MaxBodyChars)
	return classifier.NewRetryingClassifier(llm, conf.ClassifierAttempts), noop, nil
}
