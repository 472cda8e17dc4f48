// README: In-memory Storage/Auditor fakes used by the engine tests.
package order

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"waterline/internal/types"
)

// memStore implements Storage with per-document atomicity under one mutex,
// mirroring the single-document transaction guarantee of the real store.
type memStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
	nextID int
}

func newMemStore() *memStore {
	return &memStore{orders: map[types.ID]*Order{}}
}

func (m *memStore) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = types.ID("ord-" + strconv.Itoa(m.nextID))
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) Mutate(_ context.Context, id types.ID, fn func(o *Order) error) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cur
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	m.orders[id] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) list(pred func(*Order) bool) []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if pred(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByStatus(_ context.Context, st Status) ([]Order, error) {
	return m.list(func(o *Order) bool { return o.Status == st }), nil
}

func (m *memStore) ListByCustomer(_ context.Context, uid types.ID) ([]Order, error) {
	return m.list(func(o *Order) bool { return o.CustomerUID == uid }), nil
}

func (m *memStore) ListAssigned(_ context.Context, uid types.ID, st Status) ([]Order, error) {
	return m.list(func(o *Order) bool {
		return o.Status == st && o.DriverUID != nil && *o.DriverUID == uid
	}), nil
}

func (m *memStore) ListUnassignedConfirmed(_ context.Context) ([]Order, error) {
	return m.list(func(o *Order) bool { return o.Status == StatusConfirmed && o.DriverUID == nil }), nil
}

func (m *memStore) ListCreatedBetween(_ context.Context, from, to time.Time) ([]Order, error) {
	return m.list(func(o *Order) bool {
		return !o.CreatedAt.Before(from) && o.CreatedAt.Before(to)
	}), nil
}

// memAudit records appended events for assertions.
type memAudit struct {
	mu     sync.Mutex
	events []Event
}

func (a *memAudit) Append(_ context.Context, e *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *e)
	return nil
}

func (a *memAudit) all() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Event(nil), a.events...)
}
