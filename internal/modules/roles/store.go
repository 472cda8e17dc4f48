// README: Role-profile store backed by Firestore with a Redis read-through cache.
package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"waterline/internal/types"
)

const usersCollection = "users"

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) Get(ctx context.Context, uid types.ID) (*Profile, error) {
	snap, err := s.fs.Collection(usersCollection).Doc(string(uid)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNoRole
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", uid, err)
	}
	p.UID = uid
	return &p, nil
}

// ListActiveByRole returns active profiles for one role, used by the owner
// surface to populate the driver-assignment picker.
func (s *Store) ListActiveByRole(ctx context.Context, role Role) ([]Profile, error) {
	iter := s.fs.Collection(usersCollection).
		Where("role", "==", string(role)).
		Where("isActive", "==", true).
		Documents(ctx)
	defer iter.Stop()

	snaps, err := iter.GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s profiles: %w", role, err)
	}
	out := make([]Profile, 0, len(snaps))
	for _, snap := range snaps {
		var p Profile
		if err := snap.DataTo(&p); err != nil {
			continue
		}
		p.UID = types.ID(snap.Ref.ID)
		out = append(out, p)
	}
	return out, nil
}

// Cache is a small TTL cache for resolved profiles. Role changes are rare;
// invalidation is by expiry only.
type Cache interface {
	Get(ctx context.Context, uid types.ID) (*Profile, bool)
	Set(ctx context.Context, p *Profile)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{client: client, ttl: ttl}
}

func cacheKey(uid types.ID) string { return "roles:profile:" + string(uid) }

func (c *redisCache) Get(ctx context.Context, uid types.ID) (*Profile, bool) {
	raw, err := c.client.Get(ctx, cacheKey(uid)).Result()
	if err != nil {
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *redisCache) Set(ctx context.Context, p *Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(p.UID), raw, c.ttl).Err()
}
