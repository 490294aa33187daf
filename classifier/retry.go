// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

// RetryingClassifier re-invokes a failing classifier up to attempts times in
// total. The last error is returned once all attempts failed.
type RetryingClassifier struct {
	domain.AIClassifier
	attempts int
	l        *logrus.Logger
}

func NewRetryingClassifier(classifier domain.AIClassifier, attempts int) *RetryingClassifier {
	if attempts < 1 {
		attempts = 1
	}

	return &RetryingClassifier{
		AIClassifier: classifier,
		attempts:     attempts,
		l:            log.Logger(log.LOG_CLASSIFIER),
	}
}

func (r *RetryingClassifier) Classify(ctx context.Context, msg *domain.Message) (*domain.Classification, error) {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var result *domain.Classification
		result, err = r.AIClassifier.Classify(ctx, msg)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, err
		}

		if attempt < r.attempts {
			r.l.WithFields(logrus.Fields{
				"messageId": msg.MessageID,
				"attempt":   attempt,
				"error":     err,
			}).Info("Classification failed, retrying")
		}
	}

	return nil, err
}
