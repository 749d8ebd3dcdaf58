package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/internal/redis"
	"github.com/BaoTrinh25/Job-BE/internal/store"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
)

const cacheTTL = 5 * time.Minute

// Directory resolves opaque user ids to display identities. Lookups go
// through a Redis read-through cache when one is configured; cache faults
// fall back to the database and are logged only.
type Directory struct {
	db     *gorm.DB
	cache  *redis.RedisClient
	logger logger.Logger
}

// NewDirectory builds a directory over the users table. cache may be nil,
// in which case every lookup hits the database.
func NewDirectory(ctx context.Context, db *gorm.DB, cache *redis.RedisClient) *Directory {
	return &Directory{
		db:     db,
		cache:  cache,
		logger: logger.FromContext(ctx).WithModule("identity"),
	}
}

func cacheKey(id uint) string {
	return fmt.Sprintf("jobchat:user:%d", id)
}

// UserByID returns the identity for id, or domain.ErrUnknownUser when no
// such user exists.
func (d *Directory) UserByID(ctx context.Context, id uint) (domain.User, error) {
	if d.cache != nil {
		data, err := d.cache.Get(ctx, cacheKey(id))
		if err == nil {
			var user domain.User
			if jerr := json.Unmarshal([]byte(data), &user); jerr == nil {
				return user, nil
			}
		} else if !redis.IsNotFound(err) {
			d.logger.Warnf("identity cache read failed for user %d: %v", id, err)
		}
	}

	var rec store.User
	err := d.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUnknownUser)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user %d: %w: %v", id, domain.ErrStorage, err)
	}

	user := domain.User{ID: rec.ID, Username: rec.Username, Avatar: rec.Avatar}

	if d.cache != nil {
		if data, err := json.Marshal(user); err == nil {
			if err := d.cache.SetEx(ctx, cacheKey(id), string(data), cacheTTL); err != nil {
				d.logger.Warnf("identity cache write failed for user %d: %v", id, err)
			}
		}
	}
	return user, nil
}
