// README: Settings store: one Firestore document, merge-on-write.
package settings

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	settingsCollection = "settings"
	settingsDoc        = "app"
)

type Store struct {
	fs *firestore.Client
}

func NewStore(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func (s *Store) ref() *firestore.DocumentRef {
	return s.fs.Collection(settingsCollection).Doc(settingsDoc)
}

// Get returns the settings document, or zero-valued settings before the
// owner has ever saved them.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	snap, err := s.ref().Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	var out Settings
	if err := snap.DataTo(&out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &out, nil
}

// Apply merges the set fields into the document without clobbering the rest.
func (s *Store) Apply(ctx context.Context, u Update) error {
	fields := u.fields()
	if len(fields) == 0 {
		return nil
	}
	if _, err := s.ref().Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return nil
}
