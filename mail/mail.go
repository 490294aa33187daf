// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"
)

const NoSubject = "(No subject)"

var ErrNoIdentity = errors.New("neither Message-Id nor Received, Date, From or Subject header found")

// Decoder turns raw server bytes into messages the rules and classifiers can read.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Decode(raw *domain.RawMail) (*domain.Message, error) {
	msg, err := decode(raw)
	if err != nil {
		return nil, &domain.DecodeError{Uid: raw.Uid, Err: err}
	}

	return msg, nil
}

func decode(raw *domain.RawMail) (*domain.Message, error) {
	content, err := UnwrapSpamassassinReport(raw.Raw)
	if err != nil {
		return nil, err
	}

	mr, err := mail.CreateReader(bytes.NewReader(content))
	if mr == nil {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}
	defer mr.Close()

	msg := &domain.Message{
		Uid:        raw.Uid,
		ReceivedAt: raw.InternalDate,
		Raw:        raw.Raw,
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromName = from[0].Name
		msg.FromAddress = from[0].Address
	} else {
		msg.FromAddress = strings.TrimSpace(mr.Header.Get("From"))
	}

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	msg.Subject = strings.TrimSpace(subject)
	if len(msg.Subject) == 0 {
		msg.Subject = NoSubject
	}

	if msg.ReceivedAt.IsZero() {
		if date, err := mr.Header.Date(); err == nil {
			msg.ReceivedAt = date
		}
	}

	msg.MessageID, err = mr.Header.MessageID()
	if err != nil || len(msg.MessageID) == 0 {
		msg.MessageID, err = identityHash(&mr.Header)
		if err != nil {
			return nil, err
		}
	}

	msg.Body, err = readBody(mr)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func readBody(mr *mail.Reader) (string, error) {
	var plain, html strings.Builder
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && p == nil {
			if plain.Len() > 0 || html.Len() > 0 {
				break
			}
			return "", fmt.Errorf("could not read mail part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		mediaType, _, _ := h.ContentType()
		var target *strings.Builder
		switch mediaType {
		case "text/html":
			target = &html
		case "text/plain", "":
			target = &plain
		default:
			continue
		}

		b, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("could not read %s part: %w", mediaType, err)
		}
		target.Write(b)
	}

	if text := strings.TrimSpace(plain.String()); len(text) > 0 {
		return text, nil
	}

	return strings.TrimSpace(html2text.HTML2Text(html.String())), nil
}

// identityHash derives a stable identifier for messages lacking a Message-Id.
func identityHash(h *mail.Header) (string, error) {
	received := h.Values("Received")
	rest := []string{h.Get("Date"), h.Get("From"), h.Get("Subject")}
	if len(received) == 0 && len(strings.Join(rest, "")) == 0 {
		return "", ErrNoIdentity
	}

	sum, err := hash([][]string{received, rest})
	if err != nil {
		return "", err
	}

	return "sha256:" + sum, nil
}

// UnwrapSpamassassinReport returns the original message embedded in a report
// built by a server side SpamAssassin, or the input if it is not such a report.
func UnwrapSpamassassinReport(rawMail []byte) ([]byte, error) {
	entity, err := message.Read(bytes.NewReader(rawMail))
	if entity == nil || (err != nil && !message.IsUnknownCharset(err)) {
		return rawMail, nil
	}

	saHeaders := 0
	fields := entity.Header.Fields()
	for fields.Next() {
		if strings.HasPrefix(fields.Key(), "X-Spam-") {
			saHeaders++
		}
	}
	if saHeaders < 2 {
		return rawMail, nil
	}

	mr := entity.MultipartReader()
	if mr == nil {
		return rawMail, nil
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return rawMail, nil
		}
		if err != nil && p == nil {
			return nil, fmt.Errorf("unexpected error while unwrapping: %w", err)
		}

		if strings.Contains(p.Header.Get("Content-Type"), "x-spam-type=original") {
			unwrapped, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("unexpected error while reading wrapped body: %w", err)
			}

			return unwrapped, nil
		}
	}
}

func ShortSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return subject
}

func hash(input [][]string) (string, error) {
	sha := sha256.New()
	for _, group := range input {
		for _, value := range group {
			_, err := sha.Write([]byte(value + "\n"))
			if err != nil {
				return "", fmt.Errorf("could not hash: %w", err)
			}
		}
	}

	return fmt.Sprintf("%x", sha.Sum(nil)), nil
}
