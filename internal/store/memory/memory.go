package memory

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"oceancare/internal/model"
)

type Store struct {
	mu      sync.Mutex
	nextID  int64
	records []model.Notification // oldest first
	unread  int
	now     func() time.Time
	log     *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{nextID: 1, now: time.Now, log: logger}
}
