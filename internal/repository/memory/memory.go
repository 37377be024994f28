// Package memory holds in-process stores for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"ble_gateway/internal/model"
	"ble_gateway/internal/repository"
	"ble_gateway/internal/utils/random"
)

type (
	Sessions struct {
		mu       sync.Mutex
		ttl      time.Duration
		now      func() time.Time
		sessions map[string]model.Session
	}

	Contracts struct {
		mu      sync.RWMutex
		records map[string]model.ContractRecord
	}
)

var (
	_ repository.SessionStore  = (*Sessions)(nil)
	_ repository.ContractStore = (*Contracts)(nil)
)

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]model.Session),
	}
}

// SetClock overrides the time source.
func (s *Sessions) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Sessions) Start(_ context.Context, account string) (*model.Session, error) {
	if account == "" {
		return nil, errors.New("memory: missing account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < repository.MaxSessionIDAttempts; i++ {
		id, err := random.String(model.SessionIDLength)
		if err != nil {
			return nil, err
		}
		if _, taken := s.sessions[id]; taken {
			continue
		}

		sess := model.Session{
			SessionID: id,
			Account:   model.AccountKey(account),
			Expires:   s.now().Add(s.ttl).Unix(),
		}
		s.sessions[id] = sess
		return &sess, nil
	}
	return nil, repository.ErrSessionIDExhausted
}

func (s *Sessions) Lookup(_ context.Context, sessionID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) DestroyAll(context.Context) error {
	s.mu.Lock()
	s.sessions = make(map[string]model.Session)
	s.mu.Unlock()
	return nil
}

func NewContracts() *Contracts {
	return &Contracts{records: make(map[string]model.ContractRecord)}
}

func (c *Contracts) Get(_ context.Context, account string) (*model.ContractRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[model.AccountKey(account)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *Contracts) Put(_ context.Context, record *model.ContractRecord) error {
	if record == nil || record.ID == "" {
		return errors.New("memory: record id is required")
	}

	rec := *record
	rec.ID = model.AccountKey(record.ID)

	c.mu.Lock()
	c.records[rec.ID] = rec
	c.mu.Unlock()
	return nil
}

func (c *Contracts) UpdateStatus(_ context.Context, account string, update model.StatusUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := model.AccountKey(account)
	rec, ok := c.records[key]
	if !ok {
		return nil
	}
	rec.Apply(update)
	c.records[key] = rec
	return nil
}

func (c *Contracts) Remove(_ context.Context, account string) error {
	c.mu.Lock()
	delete(c.records, model.AccountKey(account))
	c.mu.Unlock()
	return nil
}

func (c *Contracts) Destroy(context.Context) error {
	c.mu.Lock()
	c.records = make(map[string]model.ContractRecord)
	c.mu.Unlock()
	return nil
}
