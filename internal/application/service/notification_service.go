package service

import (
	"context"
	"fmt"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/event"
)

// NotificationSettings selects where workflow notifications go
type NotificationSettings struct {
	// ChatID receives a text message for every scheduled visit and invoice
	ChatID string

	// InvoiceEmail additionally receives created invoices. Empty disables it.
	InvoiceEmail string
}

// NotificationService turns committed workflow events into messages
type NotificationService interface {
	NotifyEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	messageSender port.MessageSender
	settings      NotificationSettings
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(messageSender port.MessageSender, settings NotificationSettings, logger Logger) NotificationService {
	return &notificationServiceImpl{
		messageSender: messageSender,
		settings:      settings,
		logger:        logger,
	}
}

// NotifyEvent sends the message for evt. Events without a message are ignored.
func (s *notificationServiceImpl) NotifyEvent(ctx context.Context, evt *event.Event) error {
	text := buildMessage(evt)
	if text == "" || s.messageSender == nil {
		return nil
	}

	if s.settings.ChatID != "" {
		if err := s.messageSender.SendText(ctx, s.settings.ChatID, text); err != nil {
			s.logger.Error("Failed to send message", "error", err, "event_type", evt.Type, "event_id", evt.ID)
			return fmt.Errorf("send message: %w", err)
		}
	}

	if evt.Type == event.TypeInvoiceCreated && s.settings.InvoiceEmail != "" {
		subject := fmt.Sprintf("Invoice %s", evt.GetPayloadString("number"))
		if err := s.messageSender.SendEmail(ctx, s.settings.InvoiceEmail, subject, text); err != nil {
			s.logger.Error("Failed to send invoice email", "error", err, "event_id", evt.ID, "invoice_id", evt.EntityID)
			return fmt.Errorf("send email: %w", err)
		}
	}

	s.logger.Info("Notification sent", "event_type", evt.Type, "event_id", evt.ID, "tenant_id", evt.TenantID)
	return nil
}

func buildMessage(evt *event.Event) string {
	switch evt.Type {
	case event.TypeInvoiceCreated:
		return fmt.Sprintf("Invoice %s issued for %s, due %s",
			evt.GetPayloadString("number"), evt.GetPayloadString("total"), evt.GetPayloadString("due_date"))
	case event.TypeInvoiceStatusChanged:
		if evt.GetPayloadString("new_status") != "overdue" {
			return ""
		}
		return fmt.Sprintf("Invoice %s is overdue", evt.GetPayloadString("number"))
	default:
		return ""
	}
}
