package notification

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/user"
)

type ContactDirectory interface {
	GetContact(ctx context.Context, id int64) (*user.Contact, error)
}

type Enqueuer interface {
	Enqueue(msg Message) error
}

type EventHandler struct {
	contacts ContactDirectory
	queue    Enqueuer
	logger   *slog.Logger
}

func NewEventHandler(contacts ContactDirectory, queue Enqueuer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		contacts: contacts,
		queue:    queue,
		logger:   logger,
	}
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.SubscribeAll(events.GatePassEventTypes, h.HandleGatePassEvent)
	h.logger.Info("notification event handlers registered", "handlers", events.GatePassEventTypes)
}

// HandleGatePassEvent tells the student about every status change and the next
// approver about requests that just reached them.
func (h *EventHandler) HandleGatePassEvent(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.GatePassEvent)
	if !ok {
		h.logger.Error("invalid event type for gate pass notification handler", "event_type", event.EventType())
		return fmt.Errorf("expected GatePassEvent, got %T", event)
	}

	var errs []string
	if ev.EventType() != events.EventTypeGatePassSubmitted && ev.EventType() != events.EventTypeGatePassDeleted {
		if err := h.notify(ctx, ev.StudentID, studentMessage(ev)); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if next, ok := nextApprover(ev); ok {
		if err := h.notify(ctx, next, awaitingMessage(ev)); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify request %d: %s", ev.RequestID, strings.Join(errs, "; "))
	}
	return nil
}

func (h *EventHandler) notify(ctx context.Context, userID int64, msg Message) error {
	contact, err := h.contacts.GetContact(ctx, userID)
	if err != nil {
		return fmt.Errorf("contact %d: %w", userID, err)
	}
	if contact.Email == "" {
		h.logger.Debug("skipping notification, no email on file", "user_id", userID, "kind", msg.Kind)
		return nil
	}
	msg.To = contact.Email
	msg.ToName = contact.Name
	msg.PlainText = fmt.Sprintf("Hello %s,\n\n%s", contact.Name, msg.PlainText)
	msg.HTML = fmt.Sprintf("<p>Hello %s,</p>%s", html.EscapeString(contact.Name), msg.HTML)
	return h.queue.Enqueue(msg)
}

// nextApprover returns who has to act after this event, if anyone.
func nextApprover(ev *events.GatePassEvent) (int64, bool) {
	switch gatepass.Status(ev.ToStatus) {
	case gatepass.StatusPendingTutor:
		if ev.EventType() == events.EventTypeGatePassDeleted {
			return 0, false
		}
		return ev.TutorID, true
	case gatepass.StatusPendingWarden:
		return ev.WardenID, true
	}
	return 0, false
}

func studentMessage(ev *events.GatePassEvent) Message {
	status := humanStatus(ev.ToStatus)
	text := fmt.Sprintf("Your gate pass request #%d is now %s.", ev.RequestID, status)
	if ev.Reason != "" {
		text += fmt.Sprintf("\nReason: %s", ev.Reason)
	}
	body := fmt.Sprintf("<p>Your gate pass request <strong>#%d</strong> is now <strong>%s</strong>.</p>", ev.RequestID, status)
	if ev.Reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(ev.Reason))
	}
	return Message{
		Kind:      KindStatusChange,
		Subject:   fmt.Sprintf("Gate pass #%d: %s", ev.RequestID, status),
		PlainText: text,
		HTML:      body,
	}
}

func awaitingMessage(ev *events.GatePassEvent) Message {
	return Message{
		Kind:      KindAwaiting,
		Subject:   fmt.Sprintf("Gate pass #%d awaits your approval", ev.RequestID),
		PlainText: fmt.Sprintf("Gate pass request #%d is waiting for your decision.", ev.RequestID),
		HTML:      fmt.Sprintf("<p>Gate pass request <strong>#%d</strong> is waiting for your decision.</p>", ev.RequestID),
	}
}

func humanStatus(s string) string {
	switch gatepass.Status(s) {
	case gatepass.StatusPendingTutor:
		return "pending tutor approval"
	case gatepass.StatusPendingWarden:
		return "pending warden approval"
	case gatepass.StatusApproved:
		return "approved"
	case gatepass.StatusRejected:
		return "rejected"
	}
	return strings.ToLower(s)
}
