package repository

import "oceancare/internal/model"

// NotificationRepository is the session's notification log. Lists are
// newest-first.
type NotificationRepository interface {
	Record(input model.NotificationInput) model.Notification
	MarkAsRead(id int64)
	MarkAllAsRead()
	Clear()
	List() []model.Notification
	Get(id int64) (model.Notification, bool)
	UnreadCount() int
}
