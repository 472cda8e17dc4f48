// README: Live query subscriptions: each watch republishes a full snapshot per store change.
package order

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"waterline/internal/types"
)

// Snapshot is one full-replace result set from a live query. Err is set when
// a snapshot could not be produced; the subscription stays open for transient
// errors and the caller decides whether ErrNeedsIndex is worth keeping it.
type Snapshot struct {
	Orders []Order
	Err    error
}

// Watcher is the live-subscription contract consumed by the streaming
// handlers and the aggregation view.
type Watcher interface {
	WatchByStatus(ctx context.Context, st Status) <-chan Snapshot
	WatchAssigned(ctx context.Context, driverUID types.ID, st Status) <-chan Snapshot
	WatchUnassignedConfirmed(ctx context.Context) <-chan Snapshot
	WatchCreatedBetween(ctx context.Context, from, to time.Time) <-chan Snapshot
}

func (s *Store) WatchByStatus(ctx context.Context, st Status) <-chan Snapshot {
	return s.watch(ctx, s.queryByStatus(st))
}

func (s *Store) WatchAssigned(ctx context.Context, driverUID types.ID, st Status) <-chan Snapshot {
	return s.watch(ctx, s.queryAssigned(driverUID, st))
}

func (s *Store) WatchUnassignedConfirmed(ctx context.Context) <-chan Snapshot {
	return s.watch(ctx, s.queryUnassignedConfirmed())
}

func (s *Store) WatchCreatedBetween(ctx context.Context, from, to time.Time) <-chan Snapshot {
	return s.watch(ctx, s.queryCreatedBetween(from, to))
}

// watch owns exactly one Firestore snapshot listener. The channel closes when
// ctx is cancelled, which is the deterministic teardown point for the
// subscription; callbacks never outlive their owning context.
func (s *Store) watch(ctx context.Context, q firestore.Query) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	go func() {
		defer close(ch)
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				select {
				case ch <- Snapshot{Err: classify(err)}:
				case <-ctx.Done():
				}
				return
			}
			orders, err := s.collect(qs.Documents)
			select {
			case ch <- Snapshot{Orders: orders, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
