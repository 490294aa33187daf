// SPDX-License-Identifier: GPL-3.0-or-later
package spamassassin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/mail"

	"github.com/teamwork/spamc"
)

const SpamAssassinTimeout = 20 * time.Second

type spamProcessor interface {
	Process(ctx context.Context, msg io.Reader, hdr spamc.Header) (*spamc.ResponseProcess, error)
}

// SpamAssassin classifies the raw message through spamd. It only knows spam
// and not spam, the latter is kept as IMPORTANT.
type SpamAssassin struct {
	client spamProcessor
}

func NewSpamassassin(ctx context.Context, host string) (*SpamAssassin, error) {
	client := spamc.New(host, &net.Dialer{
		Timeout: SpamAssassinTimeout,
	})
	err := client.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not ping SpamAssassin: %w", err)
	}

	return &SpamAssassin{client: client}, nil
}

func (sa *SpamAssassin) Classify(ctx context.Context, msg *domain.Message) (*domain.Classification, error) {
	if len(msg.Raw) == 0 {
		return nil, fmt.Errorf("no raw message available for %s", msg.MessageID)
	}

	unwrapped, err := mail.UnwrapSpamassassinReport(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("could not unwrap SpamAssassin-style report: %w", err)
	}

	out, err := sa.client.Process(ctx, bytes.NewReader(unwrapped), nil)
	if err != nil {
		return nil, fmt.Errorf("could not check SpamAssassin: %w", err)
	}

	if out.Message != nil {
		err = out.Message.Close()
		if err != nil {
			return nil, fmt.Errorf("could not close response: %w", err)
		}
	}

	if out.IsSpam {
		return &domain.Classification{
			Category: domain.Spam,
			Reason:   fmt.Sprintf("SpamAssassin score %.1f", out.Score),
		}, nil
	}

	return &domain.Classification{
		Category: domain.Important,
		Reason:   fmt.Sprintf("SpamAssassin score %.1f, below spam threshold", out.Score),
	}, nil
}
