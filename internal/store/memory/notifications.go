package memory

import (
	"go.uber.org/zap"
	"oceancare/internal/model"
)

func (s *Store) Record(input model.NotificationInput) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification := model.Notification{
		ID:        s.nextID,
		Type:      input.Type,
		Message:   input.Message,
		Payload:   input.Payload,
		Timestamp: input.Timestamp,
	}
	s.nextID++
	if notification.Timestamp.IsZero() {
		notification.Timestamp = s.now().UTC()
	}
	s.records = append(s.records, notification)
	s.unread++
	s.log.Debug("notification recorded",
		zap.Int64("id", notification.ID),
		zap.String("type", string(notification.Type)),
		zap.Int("unread", s.unread),
	)
	return notification
}

func (s *Store) MarkAsRead(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 || s.records[i].Read {
		return
	}
	s.records[i].Read = true
	s.unread = max(0, s.unread-1)
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		s.records[i].Read = true
	}
	s.unread = 0
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.unread = 0
}

func (s *Store) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]model.Notification, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		result = append(result, s.records[i])
	}
	return result
}

func (s *Store) Get(id int64) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Notification{}, false
	}
	return s.records[i], true
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// indexOf relies on ids being assigned in ascending order.
func (s *Store) indexOf(id int64) int {
	lo, hi := 0, len(s.records)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.records[mid].ID == id:
			return mid
		case s.records[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}
