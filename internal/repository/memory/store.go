// Package memory keeps marketplace state in process memory. It backs local runs
// with STORE=memory and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

// Store owns every table. Writes outside a transaction and whole transactions are
// serialized by txMu; a failed transaction restores the snapshot taken at its start.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	items         map[uint64]model.Item
	orders        map[uint64]model.Order
	reviews       map[uint64]model.Review
	notifications map[uint64]model.Notification
	contacts      map[string]model.UserContact

	seq uint64
}

func NewStore() *Store {
	return &Store{
		items:         make(map[uint64]model.Item),
		orders:        make(map[uint64]model.Order),
		reviews:       make(map[uint64]model.Review),
		notifications: make(map[uint64]model.Notification),
		contacts:      make(map[string]model.UserContact),
	}
}

func (s *Store) Items() repository.ItemRepository { return &itemRepository{s: s} }
func (s *Store) Orders() repository.OrderRepository { return &orderRepository{s: s} }
func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepository{s: s} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepository{s: s} }
func (s *Store) Contacts() repository.ContactRepository { return &contactRepository{s: s} }
func (s *Store) Transactor() repository.Transactor { return &transactor{s: s} }

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// write runs fn with exclusive access to the tables.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// nextID must be called with mu held.
func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

type snapshot struct {
	items         map[uint64]model.Item
	orders        map[uint64]model.Order
	reviews       map[uint64]model.Review
	notifications map[uint64]model.Notification
	contacts      map[string]model.UserContact
	seq           uint64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		items:         cloneMap(s.items),
		orders:        cloneMap(s.orders),
		reviews:       cloneMap(s.reviews),
		notifications: cloneMap(s.notifications),
		contacts:      cloneMap(s.contacts),
		seq:           s.seq,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = snap.items
	s.orders = snap.orders
	s.reviews = snap.reviews
	s.notifications = snap.notifications
	s.contacts = snap.contacts
	s.seq = snap.seq
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type transactor struct {
	s *Store
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.s.inTx(ctx) {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, t.s)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
