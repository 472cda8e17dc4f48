// README: Live aggregation view: folds day-bounded order snapshots into rollups.
package metrics

import (
	"context"
	"time"

	"waterline/internal/modules/order"
	"waterline/internal/modules/settings"
)

// OrderSource is the slice of the order store the view consumes.
type OrderSource interface {
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]order.Order, error)
	WatchCreatedBetween(ctx context.Context, from, to time.Time) <-chan order.Snapshot
}

// SettingsSource yields the pricing and goal configuration.
type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	orders   OrderSource
	settings SettingsSource
	loc      *time.Location
	now      func() time.Time
}

func NewService(orders OrderSource, settingsSrc SettingsSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{orders: orders, settings: settingsSrc, loc: loc, now: time.Now}
}

// DayBounds returns [local midnight, next local midnight) around t.
func (s *Service) DayBounds(t time.Time) (time.Time, time.Time) {
	lt := t.In(s.loc)
	from := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc)
	return from, from.AddDate(0, 0, 1)
}

// Today computes the rollup once from the current state.
func (s *Service) Today(ctx context.Context) (Today, error) {
	from, to := s.DayBounds(s.now())
	orders, err := s.orders.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return Today{}, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return Today{}, err
	}
	return Fold(orders, *cfg), nil
}

// Result is one live rollup or the error that prevented it.
type Result struct {
	Today Today
	Err   error
}

// WatchToday recomputes the rollup on every snapshot of today's orders. The
// day window is fixed at subscribe time; clients resubscribe across
// midnight. The returned channel closes when ctx is cancelled.
func (s *Service) WatchToday(ctx context.Context) <-chan Result {
	from, to := s.DayBounds(s.now())
	snapshots := s.orders.WatchCreatedBetween(ctx, from, to)
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		for snap := range snapshots {
			var res Result
			if snap.Err != nil {
				res.Err = snap.Err
			} else if cfg, err := s.settings.Get(ctx); err != nil {
				res.Err = err
			} else {
				res.Today = Fold(snap.Orders, *cfg)
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Fold recomputes the rollup from scratch; it never mutates or caches.
func Fold(orders []order.Order, cfg settings.Settings) Today {
	t := Today{ByStatus: map[order.Status]int{}}
	for _, st := range order.AllStatuses {
		t.ByStatus[st] = 0
	}
	for _, o := range orders {
		t.TotalOrders++
		t.TotalLiters += o.Liters
		t.ByStatus[o.Status]++
		if o.Status == order.StatusDelivered {
			t.DeliveredOrders++
			t.DeliveredLiters += o.Liters
		}
	}
	if cfg.PricePer1000 > 0 {
		t.Priced = true
		t.Revenue = (t.DeliveredLiters/1000)*cfg.PricePer1000 + cfg.DeliveryFee*float64(t.DeliveredOrders)
	}
	if cfg.DailyGoal > 0 {
		t.GoalSet = true
		t.GoalProgress = float64(t.DeliveredOrders) / float64(cfg.DailyGoal)
		if t.GoalProgress > 1 {
			t.GoalProgress = 1
		}
	}
	return t
}
