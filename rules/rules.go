// SPDX-License-Identifier: GPL-3.0-or-later

// Package rules holds the deterministic part of the triage decision. Checks
// run in a fixed order and the first one with an opinion wins.
package rules

import (
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
)

const (
	ReasonWhitelisted = "Whitelisted domain"
	ReasonProtected   = "Protected domain (safety rule)"
)

// BuiltinProtected are sender fragments that always keep a message.
var BuiltinProtected = []string{"notaire", "avocat", "huissier", "tribunal", "administration", "fiscal"}

type Verdict int

const (
	Defer Verdict = iota
	Keep
	Delete
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case Delete:
		return "delete"
	default:
		return "defer"
	}
}

type Outcome struct {
	Verdict Verdict
	Reason  string
}

func KeepOutcome(reason string) Outcome {
	return Outcome{Verdict: Keep, Reason: reason}
}

func DeleteOutcome(reason string) Outcome {
	return Outcome{Verdict: Delete, Reason: reason}
}

func (o Outcome) Deferred() bool {
	return o.Verdict == Defer
}

// Classification is only meaningful for outcomes that are not deferred.
func (o Outcome) Classification() *domain.Classification {
	switch o.Verdict {
	case Keep:
		return &domain.Classification{Category: domain.Important, Reason: o.Reason}
	case Delete:
		return &domain.Classification{Category: domain.Spam, Reason: o.Reason}
	default:
		return nil
	}
}

type Rules struct {
	Whitelist []string
	Protected []string
	Keywords  []*domain.Keyword
}

type check func(msg *domain.Message, r *Rules) Outcome

var checks = []check{
	checkWhitelist,
	checkProtected,
	checkKeywords,
}

func Evaluate(msg *domain.Message, r *Rules) Outcome {
	for _, c := range checks {
		if outcome := c(msg, r); !outcome.Deferred() {
			return outcome
		}
	}

	return Outcome{}
}

func checkWhitelist(msg *domain.Message, r *Rules) Outcome {
	// the domain is the part between the first and a possible second @
	parts := strings.Split(msg.FromAddress, "@")
	if len(parts) < 2 {
		return Outcome{}
	}
	senderDomain := strings.ToLower(parts[1])

	for _, w := range r.Whitelist {
		w = strings.ToLower(strings.TrimSpace(w))
		if len(w) > 0 && strings.Contains(senderDomain, w) {
			return KeepOutcome(ReasonWhitelisted)
		}
	}

	return Outcome{}
}

func checkProtected(msg *domain.Message, r *Rules) Outcome {
	address := strings.ToLower(msg.FromAddress)
	for _, list := range [][]string{r.Protected, BuiltinProtected} {
		for _, p := range list {
			p = strings.ToLower(strings.TrimSpace(p))
			if len(p) > 0 && strings.Contains(address, p) {
				return KeepOutcome(ReasonProtected)
			}
		}
	}

	return Outcome{}
}

func checkKeywords(msg *domain.Message, r *Rules) Outcome {
	text := msg.Subject + " " + msg.Body
	lowered := strings.ToLower(text)

	for _, k := range r.Keywords {
		if len(k.Keyword) == 0 {
			continue
		}

		var found bool
		if k.CaseSensitive {
			found = strings.Contains(text, k.Keyword)
		} else {
			found = strings.Contains(lowered, strings.ToLower(k.Keyword))
		}
		if found {
			return DeleteOutcome(fmt.Sprintf("Contains banned keyword: %s", k.Keyword))
		}
	}

	return Outcome{}
}
