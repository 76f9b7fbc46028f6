package cart

import (
	"context"
	"sync"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/notifications"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Session bundles the cart and notification queue of one shopper.
type Session struct {
	id       string
	mu       sync.Mutex
	store    *Store
	queue    *notifications.Queue
	lastSeen time.Time
}

func (s *Session) ID() string                           { return s.id }
func (s *Session) Store() *Store                        { return s.store }
func (s *Session) Notifications() *notifications.Queue { return s.queue }

// Summary is the read model returned to clients.
type Summary struct {
	Items         []LineItem                   `json:"items"`
	TotalItems    int                          `json:"totalItems"`
	TotalPrice    decimal.Decimal              `json:"totalPrice"`
	IsOpen        bool                         `json:"isOpen"`
	Notifications []notifications.Notification `json:"notifications"`
}

func (s *Session) Summary() Summary {
	return Summary{
		Items:         s.store.Items(),
		TotalItems:    s.store.TotalItems(),
		TotalPrice:    s.store.TotalPrice(),
		IsOpen:        s.store.IsOpen(),
		Notifications: s.queue.Active(),
	}
}

type SessionsParams struct {
	Storage           Storage
	StorageKey        string
	NotificationDelay time.Duration
	Logger            *logger.Logger
	Now               func() time.Time
}

// Sessions keeps one Session per cart session id in this process.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	params   SessionsParams
	now      func() time.Time
}

func NewSessions(params SessionsParams) (*Sessions, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart storage required")
	}
	if params.StorageKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart storage key required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		params:   params,
		now:      now,
	}, nil
}

// Acquire locks the session and reloads its cart from storage. Callers must
// invoke release when done.
func (r *Sessions) Acquire(ctx context.Context, sessionID string) (*Session, func(), error) {
	if sessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id required")
	}

	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		queue := notifications.NewQueue(notifications.WithDelay(r.params.NotificationDelay))
		store, err := NewStore(StoreParams{
			Storage:   r.params.Storage,
			SessionID: sessionID,
			Key:       r.params.StorageKey,
			Notifier:  queue,
			Logger:    r.params.Logger,
		})
		if err != nil {
			r.mu.Unlock()
			return nil, nil, err
		}
		sess = &Session{id: sessionID, store: store, queue: queue}
		r.sessions[sessionID] = sess
	}
	sess.lastSeen = r.now()
	r.mu.Unlock()

	sess.mu.Lock()
	if err := sess.store.Hydrate(ctx); err != nil {
		sess.mu.Unlock()
		return nil, nil, err
	}
	return sess, sess.mu.Unlock, nil
}

// Sweep forgets sessions idle longer than idle. Sessions currently held are kept.
func (r *Sessions) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if !sess.lastSeen.Before(cutoff) {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(r.sessions, id)
		sess.mu.Unlock()
		removed++
	}
	return removed
}

// Len reports how many sessions are tracked.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
