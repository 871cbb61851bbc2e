package notify

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps at most limit notifications per user in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	limit  int
	byUser map[string][]*Notification
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryStore{
		limit:  limit,
		byUser: make(map[string][]*Notification),
	}
}

func (s *MemoryStore) Push(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.byUser[n.UserID], n)
	if len(list) > s.limit {
		list = append([]*Notification(nil), list[len(list)-s.limit:]...)
	}
	s.byUser[n.UserID] = list
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUser[userID]
	result := make([]*Notification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

func (s *MemoryStore) Trim(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, list := range s.byUser {
		kept := list[:0]
		for _, n := range list {
			if n.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(s.byUser, userID)
		} else {
			s.byUser[userID] = kept
		}
	}
	return removed, nil
}
