package service

import (
	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/domain/event"
)

// RegisterSubscribers wires the post-commit handlers onto the dispatcher.
// Either service may be nil when its integration is disabled.
func RegisterSubscribers(d dispatcher.Dispatcher, archiver DocumentArchiver, notifier NotificationService) {
	if archiver != nil {
		d.SubscribeNamed(event.TypeInvoiceCreated, "invoice-document-archive", archiver.ArchiveInvoice)
	}
	if notifier != nil {
		for _, t := range []event.Type{
			event.TypeInvoiceCreated,
			event.TypeInvoiceStatusChanged,
		} {
			d.SubscribeNamed(t, "lark-notification", notifier.NotifyEvent)
		}
	}
}
