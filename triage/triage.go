// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"
	"github.com/CrawX/go-imap-triage/metrics"
	"github.com/CrawX/go-imap-triage/rules"

	"github.com/sirupsen/logrus"
)

// FetchChunkSize bounds the number of uids per FETCH command.
const FetchChunkSize = 50

var ErrUidValidityChanged = errors.New("uidvalidity changed between fetch and apply")

type Triage struct {
	decisions  domain.DecisionStore
	rules      domain.RuleStore
	transport  domain.MailTransport
	decoder    domain.MessageDecoder
	classifier domain.AIClassifier

	configuration *configuration

	now func() time.Time
	l   *logrus.Logger
}

func NewTriage(decisions domain.DecisionStore, ruleStore domain.RuleStore, transport domain.MailTransport, decoder domain.MessageDecoder, classifier domain.AIClassifier, configFunc ...ConfigFunc) (*Triage, error) {
	config := defaultConfiguration()
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	if config.TrashFolder != "" && config.TrashFolder == config.Mailbox {
		return nil, fmt.Errorf("error applying configuration: TrashFolder cannot be the triaged mailbox %s", config.Mailbox)
	}

	return &Triage{
		decisions:     decisions,
		rules:         ruleStore,
		transport:     transport,
		decoder:       decoder,
		classifier:    classifier,
		configuration: config,
		now:           time.Now,
		l:             log.Logger(log.LOG_TRIAGE),
	}, nil
}

// RunResult summarises one triage cycle.
type RunResult struct {
	Swept int64

	Found          int
	Fetched        int
	DecodeFailures int
	AlreadyKnown   int
	Reconciled     int
	StoreFailures  int

	Decisions []*domain.Decision

	Deleted int
	Kept    int

	DeleteErr error
	KeepErr   error
}

type queues struct {
	delete []uint32
	keep   []uint32
}

func (q *queues) add(action domain.Action, uid uint32) {
	if action == domain.Deleted {
		q.delete = append(q.delete, uid)
	} else {
		q.keep = append(q.keep, uid)
	}
}

func (q *queues) empty() bool {
	return len(q.delete) == 0 && len(q.keep) == 0
}

// Run performs one full cycle: retention sweep, fetch and classify, apply.
// Decision records are written before any mailbox mutation.
func (t *Triage) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	swept, err := t.Sweep()
	if err != nil {
		return result, err
	}
	result.Swept = swept

	ruleSet, err := t.loadRules()
	if err != nil {
		return result, err
	}

	pending, uidValidity, err := t.fetch(result)
	if err != nil {
		return result, err
	}

	q := &queues{}
	for _, msg := range pending {
		t.process(ctx, msg, ruleSet, q, result)
	}

	if t.configuration.DryRun {
		t.l.WithFields(logrus.Fields{"delete": len(q.delete), "keep": len(q.keep)}).Info("Not applying actions due to dry-run")
		return result, nil
	}

	if q.empty() {
		t.l.Debug("Nothing to apply")
		return result, nil
	}

	err = t.apply(q, uidValidity, result)
	if err != nil {
		return result, err
	}

	return result, nil
}

// Sweep removes DELETED decision records older than the retention window.
func (t *Triage) Sweep() (int64, error) {
	cutoff := t.now().AddDate(0, 0, -t.configuration.RetentionDays)
	if t.configuration.DryRun {
		t.l.WithField("cutoff", cutoff).Info("Not sweeping decision records due to dry-run")
		return 0, nil
	}

	removed, err := t.decisions.PurgeDeleted(cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not sweep decision records: %w", err)
	}

	metrics.SweptTotal.Add(float64(removed))
	t.l.WithFields(logrus.Fields{"removed": removed, "cutoff": cutoff}).Debug("Swept decision records")
	return removed, nil
}

func (t *Triage) loadRules() (*rules.Rules, error) {
	whitelist, err := t.rules.WhitelistDomains()
	if err != nil {
		return nil, fmt.Errorf("could not load whitelist: %w", err)
	}

	keywords, err := t.rules.Keywords()
	if err != nil {
		return nil, fmt.Errorf("could not load keywords: %w", err)
	}

	return &rules.Rules{
		Whitelist: whitelist,
		Protected: t.configuration.ProtectedDomains,
		Keywords:  keywords,
	}, nil
}

// fetch is phase one on the mailbox: it reads and decodes the newest unseen
// messages inside the lookback window and closes its session again.
func (t *Triage) fetch(result *RunResult) ([]*domain.Message, uint32, error) {
	session, err := t.transport.Connect()
	if err != nil {
		return nil, 0, fmt.Errorf("could not connect for fetching: %w", err)
	}
	defer session.Disconnect()

	uidValidity, err := session.Select(t.configuration.Mailbox)
	if err != nil {
		return nil, 0, fmt.Errorf("could not select %s: %w", t.configuration.Mailbox, err)
	}

	since := t.now().Add(-t.configuration.Lookback)
	uids, err := session.SearchUnseenSince(since)
	if err != nil {
		return nil, 0, fmt.Errorf("could not search unseen mails: %w", err)
	}

	uids = newestFirst(uids)
	result.Found = len(uids)
	if len(uids) > t.configuration.BatchSize {
		t.l.WithFields(logrus.Fields{"found": len(uids), "batchsize": t.configuration.BatchSize}).Info("More unseen mails than batch size, processing the newest only")
		uids = uids[:t.configuration.BatchSize]
	}

	if len(uids) == 0 {
		t.l.WithFields(logrus.Fields{"mailbox": t.configuration.Mailbox, "since": since}).Info("No unseen mails")
		return nil, uidValidity, nil
	}

	var fetchErr error
	raws := []*domain.RawMail{}
	for _, batch := range partitionUids(uids, FetchChunkSize) {
		start := time.Now()
		fetched, err := session.Fetch(batch)
		raws = append(raws, fetched...)
		if err != nil {
			fetchErr = err
			t.l.WithFields(logrus.Fields{"batchsize": len(batch), "fetched": len(fetched), "error": err}).Warn("Fetch failed, continuing with partial results")
			break
		}
		t.l.WithFields(logrus.Fields{"batchsize": len(batch), "duration": time.Since(start)}).Debug("Fetched mail batch")
	}
	result.Fetched = len(raws)

	messages := make([]*domain.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := t.decoder.Decode(raw)
		if err != nil {
			result.DecodeFailures++
			metrics.SkippedTotal.WithLabelValues("decode").Inc()
			t.l.WithFields(logrus.Fields{"uid": raw.Uid, "error": err}).Warn("Could not decode mail, skipping")
			continue
		}
		messages = append(messages, msg)
	}

	if fetchErr != nil && len(messages) == 0 {
		return nil, 0, fmt.Errorf("could not fetch any mail: %w", fetchErr)
	}

	t.l.WithFields(logrus.Fields{"found": result.Found, "fetched": result.Fetched, "decoded": len(messages)}).Info("Fetched unseen mails")
	return messages, uidValidity, nil
}

// process decides a single message and queues its action. Failures are
// logged and leave the message untouched in the mailbox.
func (t *Triage) process(ctx context.Context, msg *domain.Message, ruleSet *rules.Rules, q *queues, result *RunResult) {
	baseLogger := t.l.WithFields(logrus.Fields{"uid": msg.Uid, "subject": mail.ShortSubject(msg.Subject), "from": msg.FromAddress})

	known, err := t.known(msg)
	if err != nil {
		result.StoreFailures++
		baseLogger.WithField("error", err).Error("Could not look up decision, skipping")
		return
	}
	if known != nil {
		result.AlreadyKnown++
		if t.configuration.ReconcilePending && !t.configuration.DryRun {
			result.Reconciled++
			q.add(known.Action, msg.Uid)
			metrics.DecisionsTotal.WithLabelValues(string(known.Category), string(known.Action), metrics.SourceReconcile).Inc()
			baseLogger.WithField("action", known.Action).Info("Decision already recorded but mail still unseen, re-queueing action")
			return
		}
		metrics.SkippedTotal.WithLabelValues("known").Inc()
		baseLogger.Debug("Already decided, skipping")
		return
	}

	classification, source := t.classify(ctx, msg, ruleSet)

	decision := &domain.Decision{
		MessageID:   msg.MessageID,
		FromAddress: msg.FromAddress,
		Subject:     msg.Subject,
		Category:    classification.Category,
		Reason:      classification.Reason,
		Action:      domain.ActionFor(classification.Category),
		DecidedAt:   t.now(),
	}
	decisionLogger := baseLogger.WithFields(logrus.Fields{"category": decision.Category, "action": decision.Action, "source": source, "reason": decision.Reason})

	if t.configuration.DryRun {
		result.Decisions = append(result.Decisions, decision)
		decisionLogger.Info("Decided mail (dry-run, not recorded)")
		return
	}

	err = t.decisions.SaveDecision(decision)
	if errors.Is(err, domain.ErrDuplicateDecision) {
		result.AlreadyKnown++
		metrics.SkippedTotal.WithLabelValues("known").Inc()
		decisionLogger.Info("Decision was recorded concurrently, treating mail as processed")
		return
	}
	if err != nil {
		result.StoreFailures++
		decisionLogger.WithField("error", err).Error("Could not record decision, leaving mail untouched")
		return
	}

	result.Decisions = append(result.Decisions, decision)
	q.add(decision.Action, msg.Uid)
	metrics.DecisionsTotal.WithLabelValues(string(decision.Category), string(decision.Action), source).Inc()
	decisionLogger.Info("Decided mail")
}

// known returns the recorded decision for msg, if any. Without
// reconciliation only existence matters.
func (t *Triage) known(msg *domain.Message) (*domain.Decision, error) {
	if t.configuration.ReconcilePending {
		return t.decisions.FindDecision(msg.MessageID)
	}

	exists, err := t.decisions.DecisionExists(msg.MessageID)
	if err != nil || !exists {
		return nil, err
	}
	return &domain.Decision{MessageID: msg.MessageID}, nil
}

func (t *Triage) classify(ctx context.Context, msg *domain.Message, ruleSet *rules.Rules) (*domain.Classification, string) {
	outcome := rules.Evaluate(msg, ruleSet)
	if !outcome.Deferred() {
		return outcome.Classification(), metrics.SourceRule
	}

	start := time.Now()
	classification, err := t.classifier.Classify(ctx, msg)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		t.l.WithFields(logrus.Fields{"uid": msg.Uid, "error": err}).Warn("Classification failed, keeping mail")
		return failSafe(err), metrics.SourceFailSafe
	}

	if classification == nil {
		return failSafe(errors.New("classifier returned no result")), metrics.SourceFailSafe
	}

	switch classification.Category {
	case domain.Spam, domain.Useless, domain.Important:
		return classification, metrics.SourceAI
	default:
		return &domain.Classification{
			Category: domain.Important,
			Reason:   fmt.Sprintf("Unknown category %q, kept for safety", classification.Category),
		}, metrics.SourceFailSafe
	}
}

func failSafe(err error) *domain.Classification {
	return &domain.Classification{
		Category: domain.Important,
		Reason:   fmt.Sprintf("Error during classification: %v. Kept for safety.", err),
	}
}

// apply is phase two: one bulk mutation per queue on a fresh session. A
// failing queue does not prevent the other one from being applied.
func (t *Triage) apply(q *queues, uidValidity uint32, result *RunResult) error {
	session, err := t.transport.Connect()
	if err != nil {
		return fmt.Errorf("could not connect for applying actions: %w", err)
	}
	defer session.Disconnect()

	currentValidity, err := session.Select(t.configuration.Mailbox)
	if err != nil {
		return fmt.Errorf("could not select %s: %w", t.configuration.Mailbox, err)
	}

	if currentValidity != uidValidity {
		t.l.WithFields(logrus.Fields{"before": uidValidity, "now": currentValidity}).Warn("Mailbox uidvalidity changed, not applying actions")
		return ErrUidValidityChanged
	}

	if len(q.delete) > 0 {
		result.DeleteErr = t.applyDelete(session, q.delete)
		if result.DeleteErr != nil {
			metrics.ApplyFailures.WithLabelValues(metrics.QueueDelete).Inc()
			t.l.WithFields(logrus.Fields{"count": len(q.delete), "error": result.DeleteErr}).Error("Could not delete mails")
		} else {
			result.Deleted = len(q.delete)
			metrics.AppliedTotal.WithLabelValues(metrics.QueueDelete).Add(float64(len(q.delete)))
			t.l.WithFields(logrus.Fields{"count": len(q.delete), "trash": t.configuration.TrashFolder}).Info("Deleted mails")
		}
	}

	if len(q.keep) > 0 {
		result.KeepErr = session.FlagSeen(q.keep)
		if result.KeepErr != nil {
			metrics.ApplyFailures.WithLabelValues(metrics.QueueKeep).Inc()
			t.l.WithFields(logrus.Fields{"count": len(q.keep), "error": result.KeepErr}).Error("Could not mark kept mails as seen")
		} else {
			result.Kept = len(q.keep)
			metrics.AppliedTotal.WithLabelValues(metrics.QueueKeep).Add(float64(len(q.keep)))
			t.l.WithFields(logrus.Fields{"count": len(q.keep)}).Info("Marked kept mails as seen")
		}
	}

	return nil
}

func (t *Triage) applyDelete(session domain.MailSession, uids []uint32) error {
	if t.configuration.TrashFolder != "" {
		err := session.Move(uids, t.configuration.TrashFolder)
		if err != nil {
			return fmt.Errorf("could not move mails to %s: %w", t.configuration.TrashFolder, err)
		}
		return nil
	}

	err := session.FlagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag mails as deleted: %w", err)
	}

	err = session.Expunge(uids)
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	return nil
}

func newestFirst(uids []uint32) []uint32 {
	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	return sorted
}

// taken from https://github.com/golang/go/wiki/SliceTricks
func partitionUids(uids []uint32, partitionSize int) [][]uint32 {
	batches := make([][]uint32, 0, (len(uids)+partitionSize-1)/partitionSize)

	for partitionSize < len(uids) {
		uids, batches = uids[partitionSize:], append(batches, uids[0:partitionSize:partitionSize])
	}
	batches = append(batches, uids)

	return batches
}
