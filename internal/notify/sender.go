// Package notify renders agreement emails and hands them to a mail transport.
package notify

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("notify: no recipients")

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
