package repository

import (
	"context"
	"time"

	"github.com/bizlink/workplace-console/internal/domain"
)

// UserRepository exposes persistence for console users.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.UserWithCommunity, error)
	LinkWorkplace(ctx context.Context, userID int64, workplaceID, communityID string) error
	Unlink(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID int64) error
}

// CommunityRepository exposes persistence for installed communities.
type CommunityRepository interface {
	GetByID(ctx context.Context, id string) (domain.Community, error)
	List(ctx context.Context) ([]domain.Community, error)
	Create(ctx context.Context, community domain.Community) (domain.Community, error)
	UpdateAccessToken(ctx context.Context, id, accessToken string) (domain.Community, error)
}

// PageRepository exposes persistence for page installs.
type PageRepository interface {
	Create(ctx context.Context, page domain.Page) (domain.Page, error)
}

// CallbackRepository exposes the append-only webhook delivery log.
type CallbackRepository interface {
	Create(ctx context.Context, path, payload string) (domain.Callback, error)
	List(ctx context.Context, pathContains string) ([]domain.Callback, error)
	Purge(ctx context.Context) error
}

// LinkStateStore stages verified signed-request payloads between the
// /link_account POST and the confirmation step.
type LinkStateStore interface {
	Save(ctx context.Context, key string, link domain.PendingLink, ttl time.Duration) error
	Get(ctx context.Context, key string) (*domain.PendingLink, error)
	Delete(ctx context.Context, key string) error
}
