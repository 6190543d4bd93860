package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

type CustomerDirectory interface {
	FindByCode(code string) (domain.Customer, error)
}

// Session is a per-chat UI cache. It is never the source of truth for an
// order; losing it only forces the customer to log in again.
type Session struct {
	ChatID   int64
	Customer domain.Customer
	Category string
	Page     int
	LastSeen time.Time
}

// Store keeps sessions in memory. A session idle for longer than idleTTL is
// dropped; a zero idleTTL keeps sessions until logout.
type Store struct {
	mu        sync.RWMutex
	sessions  map[int64]*Session
	directory CustomerDirectory
	idleTTL   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewStore(directory CustomerDirectory, idleTTL time.Duration, logger *zap.Logger) *Store {
	return &Store{
		sessions:  make(map[int64]*Session),
		directory: directory,
		idleTTL:   idleTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Store) Resolve(chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return Session{}, apperrors.NewUnauthenticatedError("chat is not authenticated")
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, chatID)
		return Session{}, apperrors.NewUnauthenticatedError("session expired")
	}
	sess.LastSeen = now
	return *sess, nil
}

// Authenticate binds the chat to the customer owning code. Repeating it with
// the same code keeps the navigation cursor and returns the same session.
func (s *Store) Authenticate(chatID int64, code string) (Session, error) {
	if !validCode(code) {
		return Session{}, apperrors.NewUnauthenticatedError("customer code must be 6 digits")
	}

	customer, err := s.directory.FindByCode(code)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Info("authentication rejected", zap.Int64("chatId", chatID))
			return Session{}, apperrors.NewUnauthenticatedError("unknown customer code")
		}
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || sess.Customer.Code != customer.Code {
		sess = &Session{ChatID: chatID, Customer: customer}
		s.sessions[chatID] = sess
		s.logger.Info("customer authenticated", zap.Int64("chatId", chatID), zap.String("customerId", customer.Code))
	}
	sess.LastSeen = s.now()

	return *sess, nil
}

func (s *Store) SetNavigation(chatID int64, category string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		return apperrors.NewUnauthenticatedError("chat is not authenticated")
	}
	sess.Category = category
	sess.Page = page
	sess.LastSeen = s.now()
	return nil
}

func (s *Store) Logout(chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops every session idle past the TTL and reports how many went.
func (s *Store) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for chatID, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, chatID)
			evicted++
		}
	}
	return evicted
}

// RunEviction sweeps idle sessions every interval until ctx is done.
func (s *Store) RunEviction(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Info("idle sessions evicted", zap.Int("evicted", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(sess.LastSeen) > s.idleTTL
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
