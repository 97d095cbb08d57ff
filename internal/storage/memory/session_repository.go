package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront-cart/internal/cart"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

type cartSession struct {
	store    *cart.Store
	lastSeen time.Time
}

// SessionRepository: in-memory хранилище корзин по идентификатору сессии.
// Корзины не переживают перезапуск процесса.
type SessionRepository struct {
	mu          sync.Mutex
	sessions    map[string]*cartSession
	now         func() time.Time
	maxSessions int
	evicted     int
}

// SessionOption настраивает SessionRepository.
type SessionOption func(*SessionRepository)

// WithMaxSessions ограничивает число корзин в памяти. При достижении лимита
// новая сессия вытесняет самую давно неактивную. 0: без ограничения.
func WithMaxSessions(limit int) SessionOption {
	return func(r *SessionRepository) {
		r.maxSessions = limit
	}
}

// NewSessionRepository возвращает пустое хранилище.
func NewSessionRepository(options ...SessionOption) *SessionRepository {
	r := &SessionRepository{
		sessions: make(map[string]*cartSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// GetOrCreate возвращает корзину сессии, создавая её через factory при первом обращении.
// Каждое обращение продлевает жизнь сессии.
func (r *SessionRepository) GetOrCreate(id string, factory func() *cart.Store) (*cart.Store, bool) {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if session, ok := r.sessions[id]; ok {
		session.lastSeen = now
		return session.store, false
	}

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.evictOldestLocked()
	}

	store := factory()
	r.sessions[id] = &cartSession{store: store, lastSeen: now}
	return store, true
}

func (r *SessionRepository) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, session := range r.sessions {
		if !found || session.lastSeen.Before(oldest) {
			oldestID, oldest, found = id, session.lastSeen, true
		}
	}
	if found {
		delete(r.sessions, oldestID)
		r.evicted++
	}
}

// Get возвращает корзину или domain.ErrSessionNotFound.
func (r *SessionRepository) Get(id string) (*cart.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session.lastSeen = r.now()
	return session.store, nil
}

// DeleteExpired удаляет сессии, неактивные с момента before, не больше limit за вызов (limit <= 0: без ограничения).
func (r *SessionRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if session.lastSeen.After(before) {
			continue
		}

		delete(r.sessions, id)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

// Len возвращает число активных сессий.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evicted возвращает число сессий, вытесненных из-за лимита.
func (r *SessionRepository) Evicted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evicted
}

var _ domain.SessionSweeper = (*SessionRepository)(nil)
