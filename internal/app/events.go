package app

import (
	"time"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// EventNotificationCreated is the routing key of NotificationCreated.
const EventNotificationCreated = "notification.created"

// NotificationPayload is the wire form of a notification event.
type NotificationPayload struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	SenderID    string    `json:"senderId"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	QuestionID  string    `json:"questionId,omitempty"`
	AnswerID    string    `json:"answerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotificationCreated is published after a notification is stored.
type NotificationCreated struct {
	Notification *domain.Notification
}

var _ ports.AddressedEvent = NotificationCreated{}

// EventType implements ports.Event.
func (e NotificationCreated) EventType() string { return EventNotificationCreated }

// Recipient implements ports.AddressedEvent.
func (e NotificationCreated) Recipient() string { return e.Notification.RecipientID }

// Payload implements ports.Event.
func (e NotificationCreated) Payload() any {
	n := e.Notification

	return NotificationPayload{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Type:        string(n.Type),
		Message:     n.Message,
		QuestionID:  n.QuestionID,
		AnswerID:    n.AnswerID,
		CreatedAt:   n.CreatedAt,
	}
}
