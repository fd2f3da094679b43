package port

import (
	"context"

	"github.com/garyjia/fieldops/internal/domain/entity"
)

// Broadcaster pushes realtime notifications to connected clients
type Broadcaster interface {
	Broadcast(ctx context.Context, eventName string, payload interface{}, tenantID int64) error
}

// Document is a rendered file ready to be stored or streamed
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
}

// DocumentRenderer renders billable documents
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, invoice *entity.Invoice) (*Document, error)
}

// MessageSender delivers notifications to people outside the system
type MessageSender interface {
	// SendText posts a plain text message to a chat or user
	SendText(ctx context.Context, receiveID, text string) error

	// SendEmail sends a titled message to an email address
	SendEmail(ctx context.Context, recipient, subject, body string) error
}
