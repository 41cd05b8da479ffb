package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation for development and
// tests. All returned notifications are deep copies.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]*Notification)}
}

func (s *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[n.ID]; ok {
		return ErrAlreadyExists
	}
	s.items[n.ID] = n.Clone()
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

// Update applies n only if the stored status equals expected.
func (s *MemoryStorage) Update(ctx context.Context, n *Notification, expected Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[n.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrStatusConflict
	}
	s.items[n.ID] = n.Clone()
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStorage) ListByRecipient(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Notification
	for _, n := range s.items {
		if n.RecipientID != recipientID {
			continue
		}
		if opts.Status != "" && n.Status != opts.Status {
			continue
		}
		result = append(result, *n.Clone())
	}

	// Newest first, matching the database implementations.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *MemoryStorage) DueForRetry(ctx context.Context, now time.Time) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Notification
	for _, n := range s.items {
		if n.RetryDue(now) && !n.Expired(now) {
			result = append(result, *n.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextRetryAt.Before(*result[j].NextRetryAt)
	})
	return result, nil
}

func (s *MemoryStorage) ExpiredPending(ctx context.Context, now time.Time) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Notification
	for _, n := range s.items {
		if n.Status == StatusPending && n.Expired(now) {
			result = append(result, *n.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStorage) CountPending(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusPending)
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusDelivered)
}

func (s *MemoryStorage) countByStatus(ctx context.Context, recipientID string, status Status) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if n.RecipientID == recipientID && n.Status == status {
			count++
		}
	}
	return count, nil
}
