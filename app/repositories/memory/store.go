// Package memory is an in-process repositories.Store. It keeps the
// conditional-update and transaction semantics of the SQL store so
// services behave the same on both. Used by tests and DB_DRIVER=memory.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

type reviewKey struct {
	target models.ReviewTarget
	id     uint
	user   uint
}

type state struct {
	products map[uint]models.Product
	plans    map[uint]models.WorkoutPlan
	reviews  map[reviewKey]models.Review
	orders   map[uuid.UUID]models.Order
	users    map[uint]models.User
	seqs     map[string]int64

	nextProduct, nextPlan, nextReview, nextUser uint
}

func newState() *state {
	return &state{
		products: map[uint]models.Product{},
		plans:    map[uint]models.WorkoutPlan{},
		reviews:  map[reviewKey]models.Review{},
		orders:   map[uuid.UUID]models.Order{},
		users:    map[uint]models.User{},
		seqs:     map[string]int64{},
	}
}

// clone deep-copies every map so a failed transaction can be undone.
func (s *state) clone() *state {
	c := *s
	c.products = maps.Clone(s.products)
	c.plans = maps.Clone(s.plans)
	c.reviews = maps.Clone(s.reviews)
	c.users = maps.Clone(s.users)
	c.seqs = maps.Clone(s.seqs)
	c.orders = make(map[uuid.UUID]models.Order, len(s.orders))
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	return &c
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	if o.User != nil {
		u := *o.User
		o.User = &u
	}
	return o
}

// Store is the in-memory repositories.Store.
type Store struct {
	mu   *sync.Mutex
	st   **state
	inTx bool
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, st: &st}
}

// lock takes the store mutex unless the caller already holds it through
// Transaction.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) cur() *state { return *s.st }

func (s *Store) Products() repositories.ProductRepository   { return &productRepo{s: s} }
func (s *Store) Plans() repositories.PlanRepository         { return &planRepo{s: s} }
func (s *Store) Reviews() repositories.ReviewRepository     { return &reviewRepo{s: s} }
func (s *Store) Orders() repositories.OrderRepository       { return &orderRepo{s: s} }
func (s *Store) Users() repositories.UserRepository         { return &userRepo{s: s} }
func (s *Store) Sequences() repositories.SequenceRepository { return &sequenceRepo{s: s} }
func (s *Store) Ping(context.Context) error                 { return nil }

// Transaction serialises fn against every other store call and restores
// the pre-transaction state when fn fails or panics.
func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.cur().clone()
	defer func() {
		if r := recover(); r != nil {
			*s.st = snapshot
			panic(r)
		}
		if err != nil {
			*s.st = snapshot
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fn(&Store{mu: s.mu, st: s.st, inTx: true})
}
