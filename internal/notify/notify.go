// Package notify renders and delivers order emails.
package notify

import (
	"context"
	"errors"

	"storefront-agent/internal/db"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindUpdate       Kind = "update"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// ErrNoRecipient is returned when a message has no address to deliver to.
var ErrNoRecipient = errors.New("message has no recipient")

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders order emails and sends them.
type Mailer interface {
	Sender
	Template(order *db.Order, kind Kind) (Message, error)
}

// templates gives every mailer the shared order templates.
type templates struct{}

func (templates) Template(order *db.Order, kind Kind) (Message, error) {
	return Render(order, kind)
}
