// SPDX-License-Identifier: GPL-3.0-or-later

//go:generate mockgen -destination=mocks/classifier.go -package=mocks . AIClassifier
package domain

import "context"

type Classification struct {
	Category Category
	Reason   string
}

type AIClassifier interface {
	Classify(ctx context.Context, msg *Message) (*Classification, error)
}
