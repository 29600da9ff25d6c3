package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

type ClickService struct {
	repo ports.ClickRepository
	log  logrus.FieldLogger

	newID func() string
	now   func() time.Time
}

func NewClickService(repo ports.ClickRepository, logger logrus.FieldLogger) *ClickService {
	return &ClickService{
		repo:  repo,
		log:   logger.WithField("component", "clicks"),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Record appends one click for linkID, stamped with the server clock.
// The caller must have resolved the link already.
func (s *ClickService) Record(ctx context.Context, linkID, userAgent string) (*domain.ClickEvent, error) {
	click := &domain.ClickEvent{
		ID:        s.newID(),
		LinkID:    linkID,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
		UserAgent: userAgent,
	}
	if err := s.repo.Append(ctx, click); err != nil {
		return nil, fmt.Errorf("record click: %w", err)
	}
	s.log.WithField("link_id", linkID).Debug("Click recorded")
	return click, nil
}

var _ ports.ClickService = (*ClickService)(nil)
