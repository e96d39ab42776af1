package domain

import "errors"

type NotificationType string

const (
	NotificationTypeNewRegistration NotificationType = "new-registration"
	NotificationTypeStatusUpdate    NotificationType = "status-update"
	NotificationTypeQueueCall       NotificationType = "queue-call"
	NotificationTypeOther           NotificationType = "other"
)

// Icon is the glyph the bell widget shows next to a notification.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationTypeNewRegistration:
		return "📋"
	case NotificationTypeStatusUpdate:
		return "✅"
	case NotificationTypeQueueCall:
		return "🔔"
	default:
		return "ℹ️"
	}
}

const (
	EventNameNewRegistration = "new-registration"
	EventNameStatusUpdate    = "registration-status-update"
	EventNameQueueCalled     = "queue-called"
)

// EventKind is an inbound wire event name resolved once at the boundary.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventNewRegistration
	EventStatusUpdate
	EventQueueCalled
)

func ParseEventKind(name string) EventKind {
	switch name {
	case EventNameNewRegistration:
		return EventNewRegistration
	case EventNameStatusUpdate:
		return EventStatusUpdate
	case EventNameQueueCalled:
		return EventQueueCalled
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventNewRegistration:
		return EventNameNewRegistration
	case EventStatusUpdate:
		return EventNameStatusUpdate
	case EventQueueCalled:
		return EventNameQueueCalled
	default:
		return "unknown"
	}
}

func (k EventKind) Known() bool {
	return k != EventUnknown
}

func (k EventKind) NotificationType() NotificationType {
	switch k {
	case EventNewRegistration:
		return NotificationTypeNewRegistration
	case EventStatusUpdate:
		return NotificationTypeStatusUpdate
	case EventQueueCalled:
		return NotificationTypeQueueCall
	default:
		return NotificationTypeOther
	}
}

// AlertTitle is the headline used for toasts and desktop notifications.
func (k EventKind) AlertTitle() string {
	switch k {
	case EventNewRegistration:
		return "New Registration"
	case EventStatusUpdate:
		return "Registration Status"
	case EventQueueCalled:
		return "Queue Number Called"
	default:
		return "Notification"
	}
}

// RequiresInteraction reports whether the desktop alert should stay on screen
// until the user dismisses it.
func (k EventKind) RequiresInteraction() bool {
	return k == EventQueueCalled
}

var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidStatus = errors.New("invalid registration status")
)

// IsValidationError reports whether err means the event itself is bad and
// retrying it cannot help.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRoom) ||
		errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidStatus)
}
