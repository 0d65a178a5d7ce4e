package repo

import (
	"context"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

// OriginRepo is the origin registry interface
type OriginRepo interface {
	// Upsert creates unseen origins and refreshes color/updated_at of known ones
	Upsert(ctx context.Context, sightings []domain.OriginSighting) error

	// Get returns nil, nil when the origin is unknown
	Get(ctx context.Context, appName string) (*domain.Origin, error)

	// List returns all origins ordered by app name
	List(ctx context.Context) ([]*domain.Origin, error)

	// RecordCheck stores a crawl outcome; an empty loginURL records absence
	RecordCheck(ctx context.Context, appName, loginURL string, checkedAt time.Time) error
}

// LoginURLFinder discovers the login page of an application
type LoginURLFinder interface {
	// FindLoginURL returns "" with a nil error when nothing was found
	FindLoginURL(ctx context.Context, appName string) (string, error)
}
