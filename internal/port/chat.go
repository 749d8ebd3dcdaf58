package port

import (
	"context"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
)

// Fanout is the shared group-broadcast primitive. Publish delivers the
// event to every member of the group, the publisher included; membership
// is not persisted across disconnects and there is no replay.
type Fanout interface {
	Join(ctx context.Context, group, connID string, handler func(domain.ChatBroadcast)) error
	Leave(ctx context.Context, group, connID string) error
	Publish(ctx context.Context, group string, event domain.ChatBroadcast) error
	Close()
}

// Directory resolves opaque user ids to display identities.
type Directory interface {
	UserByID(ctx context.Context, id uint) (domain.User, error)
}
