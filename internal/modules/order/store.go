// README: Order store backed by Firestore; single-document transactions guard every transition.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"waterline/internal/types"
)

const ordersCollection = "orders"

// ErrNeedsIndex marks a compound query rejected because the store is missing
// a composite index. The remediation is operator-provisioned, so it must stay
// distinguishable from transient failures.
var ErrNeedsIndex = errors.New("query requires a composite index")

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	ref := s.fs.Collection(ordersCollection).NewDoc()
	o.ID = types.ID(ref.ID)
	if _, err := ref.Create(ctx, o); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	snap, err := s.fs.Collection(ordersCollection).Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return decode(snap)
}

// Mutate runs fn against a fresh read of the document inside a Firestore
// transaction and writes the whole document back. A concurrent writer forces
// a transaction retry, so fn always observes the latest committed state; an
// error from fn aborts with no write.
func (s *Store) Mutate(ctx context.Context, id types.ID, fn func(o *Order) error) (*Order, error) {
	ref := s.fs.Collection(ordersCollection).Doc(string(id))
	var out *Order
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		o, err := decode(snap)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		o.UpdatedAt = time.Now().UTC()
		out = o
		return tx.Set(ref, o)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListByStatus(ctx context.Context, st Status) ([]Order, error) {
	return s.collect(s.queryByStatus(st).Documents(ctx))
}

func (s *Store) ListByCustomer(ctx context.Context, customerUID types.ID) ([]Order, error) {
	q := s.fs.Collection(ordersCollection).
		Where("customerUid", "==", string(customerUID)).
		OrderBy("createdAt", firestore.Desc)
	return s.collect(q.Documents(ctx))
}

func (s *Store) ListAssigned(ctx context.Context, driverUID types.ID, st Status) ([]Order, error) {
	return s.collect(s.queryAssigned(driverUID, st).Documents(ctx))
}

func (s *Store) ListUnassignedConfirmed(ctx context.Context) ([]Order, error) {
	return s.collect(s.queryUnassignedConfirmed().Documents(ctx))
}

func (s *Store) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	return s.collect(s.queryCreatedBetween(from, to).Documents(ctx))
}

func (s *Store) queryByStatus(st Status) firestore.Query {
	return s.fs.Collection(ordersCollection).
		Where("status", "==", string(st)).
		OrderBy("createdAt", firestore.Desc)
}

func (s *Store) queryAssigned(driverUID types.ID, st Status) firestore.Query {
	return s.fs.Collection(ordersCollection).
		Where("driverUid", "==", string(driverUID)).
		Where("status", "==", string(st)).
		OrderBy("createdAt", firestore.Desc)
}

func (s *Store) queryUnassignedConfirmed() firestore.Query {
	return s.fs.Collection(ordersCollection).
		Where("driverUid", "==", nil).
		Where("status", "==", string(StatusConfirmed)).
		OrderBy("createdAt", firestore.Desc)
}

func (s *Store) queryCreatedBetween(from, to time.Time) firestore.Query {
	return s.fs.Collection(ordersCollection).
		Where("createdAt", ">=", from).
		Where("createdAt", "<", to).
		OrderBy("createdAt", firestore.Desc)
}

func (s *Store) collect(iter *firestore.DocumentIterator) ([]Order, error) {
	defer iter.Stop()
	snaps, err := iter.GetAll()
	if err != nil {
		return nil, classify(err)
	}
	orders := make([]Order, 0, len(snaps))
	for _, snap := range snaps {
		o, err := decode(snap)
		if err != nil {
			// Malformed documents never propagate inward.
			continue
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// decode is the strict parse-at-the-boundary step: loosely-typed store data
// becomes a typed Order or is rejected.
func decode(snap *firestore.DocumentSnapshot) (*Order, error) {
	var o Order
	if err := snap.DataTo(&o); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	o.ID = types.ID(snap.Ref.ID)
	if !o.Status.IsValid() {
		return nil, fmt.Errorf("order %s: malformed status %q", o.ID, o.Status)
	}
	// Driver uid and name are both set or both null; drop a half-written pair.
	if o.DriverUID == nil || o.DriverName == nil {
		o.DriverUID = nil
		o.DriverName = nil
	}
	return &o, nil
}

// classify separates a missing-index rejection (operator remediation) from
// transient store failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.FailedPrecondition {
		return fmt.Errorf("%w: %v", ErrNeedsIndex, err)
	}
	return err
}
