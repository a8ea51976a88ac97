package email

import "context"

// Sender is the interface all mail providers implement, so the notifier
// wiring does not depend on a particular provider.
type Sender interface {
	// Send sends an email to the specified recipient.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	To       string // recipient email address
	Subject  string // email subject
	TextBody string // plain-text body
}
