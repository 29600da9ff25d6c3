// Package memory is a process-local store with the same guarantees as the SQLite
// adapter: unique slugs, cascading deletes and inclusive range filters.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

type Repository struct {
	mu     sync.RWMutex
	links  []domain.Link // insertion order
	slugs  map[string]string
	clicks []domain.ClickEvent
}

func NewRepository() *Repository {
	return &Repository{slugs: make(map[string]string)}
}

func (r *Repository) Close() error { return nil }

func (r *Repository) Create(_ context.Context, link *domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slugs[link.Slug]; taken {
		return domain.ErrSlugTaken
	}
	if r.find(link.ID) != nil {
		return fmt.Errorf("%w: %s", domain.ErrLinkExists, link.ID)
	}
	r.slugs[link.Slug] = link.ID
	r.links = append(r.links, *link)
	return nil
}

func (r *Repository) GetBySlug(_ context.Context, slug string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugs[slug]
	if !ok {
		return nil, nil
	}
	return r.find(id), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(id), nil
}

func (r *Repository) find(id string) *domain.Link {
	for i := range r.links {
		if r.links[i].ID == id {
			l := r.links[i]
			return &l
		}
	}
	return nil
}

func (r *Repository) List(_ context.Context) ([]domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]domain.Link, 0, len(r.links))
	for i := len(r.links) - 1; i >= 0; i-- {
		links = append(links, r.links[i])
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := range r.links {
		if r.links[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}
	delete(r.slugs, r.links[idx].Slug)
	r.links = append(r.links[:idx], r.links[idx+1:]...)

	kept := r.clicks[:0]
	for _, c := range r.clicks {
		if c.LinkID != id {
			kept = append(kept, c)
		}
	}
	r.clicks = kept
	return nil
}

// Append rejects clicks for unknown links, like the foreign key does in SQL.
func (r *Repository) Append(_ context.Context, click *domain.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(click.LinkID) == nil {
		return domain.ErrNotFound
	}
	r.clicks = append(r.clicks, *click)
	return nil
}

func (r *Repository) CountInRange(_ context.Context, linkID string, from, to time.Time) (int64, error) {
	var total int64
	r.each(linkID, from, to, func(domain.ClickEvent) { total++ })
	return total, nil
}

func (r *Repository) CountByDay(_ context.Context, linkID string, from, to time.Time) ([]domain.DailyCount, error) {
	counts := make(map[string]int64)
	r.each(linkID, from, to, func(c domain.ClickEvent) {
		counts[c.Timestamp.UTC().Format(domain.DayLayout)]++
	})

	days := make([]domain.DailyCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, domain.DailyCount{Day: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days, nil
}

func (r *Repository) CountByUserAgent(_ context.Context, linkID string, from, to time.Time) ([]domain.UserAgentCount, error) {
	counts := make(map[string]int64)
	r.each(linkID, from, to, func(c domain.ClickEvent) { counts[c.UserAgent]++ })

	agents := make([]domain.UserAgentCount, 0, len(counts))
	for ua, n := range counts {
		agents = append(agents, domain.UserAgentCount{UserAgent: ua, Count: n})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].UserAgent < agents[j].UserAgent })
	return agents, nil
}

func (r *Repository) each(linkID string, from, to time.Time, fn func(domain.ClickEvent)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	window := domain.DateRange{From: from, To: to}
	for _, c := range r.clicks {
		if c.LinkID == linkID && window.Contains(c.Timestamp) {
			fn(c)
		}
	}
}

var _ ports.Repository = (*Repository)(nil)
