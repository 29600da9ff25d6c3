package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

// DefaultSlugRetries is how many times a colliding generated slug is replaced.
const DefaultSlugRetries = 3

// LinkConfig tunes slug generation.
type LinkConfig struct {
	SlugLength  int
	SlugRetries int
}

type LinkService struct {
	repo    ports.LinkRepository
	log     logrus.FieldLogger
	retries int

	newSlug func() string
	newID   func() string
	now     func() time.Time
}

func NewLinkService(repo ports.LinkRepository, cfg LinkConfig, logger logrus.FieldLogger) *LinkService {
	log := logger.WithField("component", "links")

	length := cfg.SlugLength
	if length <= 0 {
		length = DefaultSlugLength
	}
	if length > domain.MaxSlugLength {
		log.WithField("slug_length", length).Warn("Slug length too large, clamping")
		length = domain.MaxSlugLength
	}
	retries := cfg.SlugRetries
	if retries < 0 {
		retries = 0
	}
	return &LinkService{
		repo:    repo,
		log:     log,
		retries: retries,
		newSlug: func() string { return GenerateSlug(length) },
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Create stores a new link. targetURL and slug must already be validated.
// A custom slug is inserted once; a generated one is replaced on collision.
func (s *LinkService) Create(ctx context.Context, targetURL, slug string) (*domain.Link, error) {
	link := &domain.Link{
		ID:        s.newID(),
		Slug:      slug,
		TargetURL: targetURL,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if slug != "" {
		if err := s.repo.Create(ctx, link); err != nil {
			if errors.Is(err, domain.ErrSlugTaken) {
				return nil, fmt.Errorf("%w: %s", domain.ErrSlugTaken, slug)
			}
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.log.WithFields(logrus.Fields{"id": link.ID, "slug": link.Slug}).Info("Link created")
		return link, nil
	}

	attempts := s.retries + 1
	_, err := retryOnConflict(attempts, s.newSlug, func(candidate string) error {
		link.Slug = candidate
		err := s.repo.Create(ctx, link)
		if errors.Is(err, domain.ErrSlugTaken) {
			s.log.WithField("slug", candidate).Warn("Generated slug collided, retrying")
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlugExhausted) {
			s.log.WithField("attempts", attempts).Error("Slug space exhausted")
			return nil, fmt.Errorf("%w after %d attempts", domain.ErrSlugExhausted, attempts)
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.log.WithFields(logrus.Fields{"id": link.ID, "slug": link.Slug}).Info("Link created")
	return link, nil
}

// retryOnConflict commits candidates from generate until one is accepted.
// Only domain.ErrSlugTaken is retried; after attempts collisions it returns
// domain.ErrSlugExhausted.
func retryOnConflict(attempts int, generate func() string, commit func(string) error) (string, error) {
	for i := 0; i < attempts; i++ {
		candidate := generate()
		err := commit(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, domain.ErrSlugTaken) {
			return "", err
		}
	}
	return "", domain.ErrSlugExhausted
}

// FindBySlug returns nil without error when no link has the slug.
func (s *LinkService) FindBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("find link by slug: %w", err)
	}
	return link, nil
}

// FindByID returns nil without error when no link has the id.
func (s *LinkService) FindByID(ctx context.Context, id string) (*domain.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find link by id: %w", err)
	}
	return link, nil
}

func (s *LinkService) List(ctx context.Context) ([]domain.Link, error) {
	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

// Delete removes the link together with its click events.
func (s *LinkService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete link: %w", err)
	}
	s.log.WithField("id", id).Info("Link deleted")
	return nil
}

var _ ports.LinkService = (*LinkService)(nil)
