package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	// Create inserts link as given. Must fail with domain.ErrSlugTaken if the slug is in use.
	Create(ctx context.Context, link *domain.Link) error
	// GetBySlug and GetByID return nil, nil when no link matches.
	GetBySlug(ctx context.Context, slug string) (*domain.Link, error)
	GetByID(ctx context.Context, id string) (*domain.Link, error)
	// List returns every link, newest first.
	List(ctx context.Context) ([]domain.Link, error)
	// Delete removes the link and its clicks. Must fail with domain.ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}

// ClickRepository defines storage operations for click events.
// All range bounds are inclusive.
type ClickRepository interface {
	Append(ctx context.Context, click *domain.ClickEvent) error
	CountInRange(ctx context.Context, linkID string, from, to time.Time) (int64, error)
	// CountByDay groups by UTC calendar day, ascending, omitting empty days.
	CountByDay(ctx context.Context, linkID string, from, to time.Time) ([]domain.DailyCount, error)
	CountByUserAgent(ctx context.Context, linkID string, from, to time.Time) ([]domain.UserAgentCount, error)
}

// Repository is a store holding both relations, as the SQLite adapter does.
type Repository interface {
	LinkRepository
	ClickRepository
	Close() error
}

// LinkService defines the link registry operations
type LinkService interface {
	Create(ctx context.Context, targetURL, slug string) (*domain.Link, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Link, error)
	FindByID(ctx context.Context, id string) (*domain.Link, error)
	List(ctx context.Context) ([]domain.Link, error)
	Delete(ctx context.Context, id string) error
}

// ClickService records visits
type ClickService interface {
	Record(ctx context.Context, linkID, userAgent string) (*domain.ClickEvent, error)
}

// AnalyticsService aggregates clicks of one link. from and to are optional
// ISO-8601 strings; empty means "use the default bound".
type AnalyticsService interface {
	Summary(ctx context.Context, linkID, from, to string) (*domain.Summary, error)
	Daily(ctx context.Context, linkID, from, to string) ([]domain.DailyCount, error)
	Browsers(ctx context.Context, linkID, from, to string) ([]domain.BrowserCount, error)
}
