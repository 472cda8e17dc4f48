// README: Role resolver: principal uid -> owner/driver, or ErrNoRole.
package roles

import (
	"context"
	"errors"

	"waterline/internal/types"
)

// ErrNoRole means the principal has no active, recognised role profile.
// Callers must deny access and force sign-out.
var ErrNoRole = errors.New("no active role for principal")

// ProfileStore is the subset of the store the resolver needs.
type ProfileStore interface {
	Get(ctx context.Context, uid types.ID) (*Profile, error)
}

type Service struct {
	store ProfileStore
	cache Cache
}

// NewService builds a resolver. cache may be nil, in which case every
// resolution hits the store.
func NewService(store ProfileStore, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Resolve maps a principal uid to its role. A missing document, an inactive
// profile, or an unrecognised role value all resolve to ErrNoRole regardless
// of what is stored.
func (s *Service) Resolve(ctx context.Context, uid types.ID) (Role, error) {
	if uid == "" {
		return "", ErrNoRole
	}
	p, ok := s.cachedProfile(ctx, uid)
	if !ok {
		var err error
		p, err = s.store.Get(ctx, uid)
		if errors.Is(err, ErrNoRole) {
			return "", ErrNoRole
		}
		if err != nil {
			return "", err
		}
		if s.cache != nil {
			s.cache.Set(ctx, p)
		}
	}
	if !p.IsActive || !p.Role.IsValid() {
		return "", ErrNoRole
	}
	return p.Role, nil
}

// Lookup returns the full profile for an actor already known to hold a role,
// used to denormalise the driver display name onto orders.
func (s *Service) Lookup(ctx context.Context, uid types.ID) (*Profile, error) {
	if p, ok := s.cachedProfile(ctx, uid); ok {
		return p, nil
	}
	p, err := s.store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *Service) cachedProfile(ctx context.Context, uid types.ID) (*Profile, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, uid)
}
