// Package memory is an in-process repositories.Store for development and
// tests. A single mutex serializes every operation; transactions run on a
// copy of the dataset that replaces the original only when fn succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
)

type dataset struct {
	users        map[uuid.UUID]models.User
	emails       map[string]uuid.UUID
	transactions []models.Transaction
	fraudLogs    []models.FraudLog
}

func newDataset() *dataset {
	return &dataset{
		users:  make(map[uuid.UUID]models.User),
		emails: make(map[string]uuid.UUID),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:        make(map[uuid.UUID]models.User, len(d.users)),
		emails:       make(map[string]uuid.UUID, len(d.emails)),
		transactions: append([]models.Transaction(nil), d.transactions...),
		fraudLogs:    append([]models.FraudLog(nil), d.fraudLogs...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.emails {
		c.emails[k] = v
	}
	return c
}

var (
	_ repositories.Store = (*Store)(nil)
	_ repositories.Store = (*txStore)(nil)
)

type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newDataset(), now: time.Now}
}

func (s *Store) Users() repositories.UserRepository {
	return &userRepository{v: s.view()}
}

func (s *Store) Transactions() repositories.TransactionRepository {
	return &transactionRepository{v: s.view()}
}

func (s *Store) FraudLogs() repositories.FraudLogRepository {
	return &fraudLogRepository{v: s.view()}
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txStore{v: &view{data: func() *dataset { return snapshot }, now: s.now}}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) view() *view {
	return &view{
		data:   func() *dataset { return s.data },
		lock:   s.mu.Lock,
		unlock: s.mu.Unlock,
		now:    s.now,
	}
}

// txStore is the Store handed to ExecuteInTransaction callbacks. The outer
// mutex is already held, so its view does not lock.
type txStore struct {
	v *view
}

func (t *txStore) Users() repositories.UserRepository {
	return &userRepository{v: t.v}
}

func (t *txStore) Transactions() repositories.TransactionRepository {
	return &transactionRepository{v: t.v}
}

func (t *txStore) FraudLogs() repositories.FraudLogRepository {
	return &fraudLogRepository{v: t.v}
}

func (t *txStore) ExecuteInTransaction(_ context.Context, fn func(repositories.Store) error) error {
	return fn(t)
}

type view struct {
	data   func() *dataset
	lock   func()
	unlock func()
	now    func() time.Time
}

// with runs fn against the current dataset, holding the store mutex when
// the view is not already inside a transaction.
func (v *view) with(fn func(d *dataset) error) error {
	if v.lock != nil {
		v.lock()
		defer v.unlock()
	}
	return fn(v.data())
}
