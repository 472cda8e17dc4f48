// README: Settings service: validation in front of the merge-on-write store.
package settings

import (
	"context"
	"errors"
	"fmt"
)

var ErrBadRequest = errors.New("bad request")

// Storage is the store contract the service needs.
type Storage interface {
	Get(ctx context.Context) (*Settings, error)
	Apply(ctx context.Context, u Update) error
}

type Service struct {
	store Storage
}

func NewService(store Storage) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.store.Get(ctx)
}

// Update validates the set fields and merges them. Unset fields are never
// touched.
func (s *Service) Update(ctx context.Context, u Update) (*Settings, error) {
	if err := validate(u); err != nil {
		return nil, err
	}
	if err := s.store.Apply(ctx, u); err != nil {
		return nil, err
	}
	return s.store.Get(ctx)
}

func validate(u Update) error {
	switch {
	case u.TankCapacityLiters != nil && *u.TankCapacityLiters < 0:
		return fmt.Errorf("%w: tank capacity cannot be negative", ErrBadRequest)
	case u.PricePer1000 != nil && *u.PricePer1000 < 0:
		return fmt.Errorf("%w: price per 1000 liters cannot be negative", ErrBadRequest)
	case u.DeliveryFee != nil && *u.DeliveryFee < 0:
		return fmt.Errorf("%w: delivery fee cannot be negative", ErrBadRequest)
	case u.DailyGoal != nil && *u.DailyGoal < 0:
		return fmt.Errorf("%w: daily goal cannot be negative", ErrBadRequest)
	}
	return nil
}
