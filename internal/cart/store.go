package cart

import (
	"context"
	"fmt"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/notifications"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Notifier receives cart feedback messages.
type Notifier interface {
	Show(message string) notifications.Notification
}

type StoreParams struct {
	Storage   Storage
	SessionID string
	Key       string
	Notifier  Notifier
	Logger    *logger.Logger
}

// Store is the cart of one session. It is not safe for concurrent use;
// Sessions serializes access per session.
type Store struct {
	storage   Storage
	sessionID string
	key       string
	notifier  Notifier
	logg      *logger.Logger

	items    []LineItem
	open     bool
	hydrated bool
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart storage required")
	}
	if params.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id required")
	}
	if params.Key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart storage key required")
	}
	return &Store{
		storage:   params.Storage,
		sessionID: params.SessionID,
		key:       params.Key,
		notifier:  params.Notifier,
		logg:      params.Logger,
	}, nil
}

// Hydrate replaces the in-memory items with the stored cart. A payload that
// cannot be parsed yields an empty cart.
func (s *Store) Hydrate(ctx context.Context) error {
	payload, err := s.storage.Load(ctx, s.sessionID, s.key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	s.hydrated = true
	if len(payload) == 0 {
		s.items = nil
		return nil
	}
	items, err := DecodeItems(payload)
	if err != nil {
		s.warn(ctx, "cart.storage.corrupt_payload", map[string]any{"error": err.Error()})
		s.items = nil
		return nil
	}
	s.items = items
	return nil
}

// AddItem merges by ItemID or appends, then announces the addition.
func (s *Store) AddItem(ctx context.Context, item LineItem) (notifications.Notification, error) {
	if item.VariantCode == "" {
		return notifications.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "variantCode is required")
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	id := item.ID()
	merged := false
	for i := range s.items {
		if s.items[i].ID() != id {
			continue
		}
		existing := s.items[i]
		if !existing.EffectivePrice().Equal(item.EffectivePrice()) {
			s.warn(ctx, "cart.merge.price_drift", map[string]any{
				"item_id":        id,
				"stored_price":   existing.EffectivePrice().String(),
				"incoming_price": item.EffectivePrice().String(),
			})
		}
		s.items[i].Quantity = existing.Quantity + item.Quantity
		merged = true
		break
	}
	if !merged {
		s.items = append(s.items, item)
	}

	var note notifications.Notification
	if s.notifier != nil {
		note = s.notifier.Show(fmt.Sprintf("\"%s\" añadido al carrito", item.ProductName))
	}
	return note, s.persist(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, id string) error {
	for i := range s.items {
		if s.items[i].ID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return s.persist(ctx)
}

// UpdateQuantity sets the quantity exactly; zero or less removes the item.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id)
	}
	for i := range s.items {
		if s.items[i].ID() == id {
			s.items[i].Quantity = quantity
			break
		}
	}
	return s.persist(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.items = nil
	return s.persist(ctx)
}

// RemoveQuoted takes the quoted quantities out of the cart. Lines added or
// topped up after the snapshot keep the remainder.
func (s *Store) RemoveQuoted(ctx context.Context, quoted []LineItem) error {
	taken := make(map[string]int, len(quoted))
	for _, item := range quoted {
		taken[item.ID()] += item.Quantity
	}
	kept := s.items[:0]
	for _, item := range s.items {
		item.Quantity -= taken[item.ID()]
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return s.persist(ctx)
}

// Items returns a copy in insertion order.
func (s *Store) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Has(id string) bool {
	for _, item := range s.items {
		if item.ID() == id {
			return true
		}
	}
	return false
}

func (s *Store) TotalItems() int {
	return TotalItems(s.items)
}

func (s *Store) TotalPrice() decimal.Decimal {
	return TotalPrice(s.items)
}

func (s *Store) IsOpen() bool { return s.open }

func (s *Store) SetOpen(open bool) { s.open = open }

func (s *Store) persist(ctx context.Context) error {
	if !s.hydrated {
		return nil
	}
	payload, err := EncodeItems(s.items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.storage.Save(ctx, s.sessionID, s.key, payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

func (s *Store) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	fields["session_id"] = s.sessionID
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
