package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

const (
	browserUnknown = "Unknown"
	browserBot     = "Bot"
)

type AnalyticsService struct {
	links  ports.LinkRepository
	clicks ports.ClickRepository
	log    logrus.FieldLogger

	now func() time.Time
}

func NewAnalyticsService(links ports.LinkRepository, clicks ports.ClickRepository, logger logrus.FieldLogger) *AnalyticsService {
	return &AnalyticsService{
		links:  links,
		clicks: clicks,
		log:    logger.WithField("component", "analytics"),
		now:    time.Now,
	}
}

// Summary counts the clicks of linkID inside the range.
func (s *AnalyticsService) Summary(ctx context.Context, linkID, from, to string) (*domain.Summary, error) {
	r, err := s.prepare(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	total, err := s.clicks.CountInRange(ctx, linkID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}
	return &domain.Summary{Total: total}, nil
}

// Daily returns one bucket per UTC day that has clicks, oldest first.
func (s *AnalyticsService) Daily(ctx context.Context, linkID, from, to string) ([]domain.DailyCount, error) {
	r, err := s.prepare(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	days, err := s.clicks.CountByDay(ctx, linkID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("count clicks by day: %w", err)
	}
	if days == nil {
		days = []domain.DailyCount{}
	}
	return days, nil
}

// Browsers folds the clicks in range by browser family, most clicks first.
func (s *AnalyticsService) Browsers(ctx context.Context, linkID, from, to string) ([]domain.BrowserCount, error) {
	r, err := s.prepare(ctx, linkID, from, to)
	if err != nil {
		return nil, err
	}
	agents, err := s.clicks.CountByUserAgent(ctx, linkID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("count clicks by user agent: %w", err)
	}

	totals := make(map[string]int64)
	for _, a := range agents {
		totals[browserFamily(a.UserAgent)] += a.Count
	}

	browsers := make([]domain.BrowserCount, 0, len(totals))
	for name, count := range totals {
		browsers = append(browsers, domain.BrowserCount{Browser: name, Count: count})
	}
	sort.Slice(browsers, func(i, j int) bool {
		if browsers[i].Count != browsers[j].Count {
			return browsers[i].Count > browsers[j].Count
		}
		return browsers[i].Browser < browsers[j].Browser
	})
	return browsers, nil
}

// prepare validates the raw bounds, checks that the link exists and only then
// normalizes the range, so an unknown link is never reported as zero clicks.
func (s *AnalyticsService) prepare(ctx context.Context, linkID, from, to string) (domain.DateRange, error) {
	fromAt, err := ParseBound("from", from, false)
	if err != nil {
		return domain.DateRange{}, err
	}
	toAt, err := ParseBound("to", to, true)
	if err != nil {
		return domain.DateRange{}, err
	}

	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("find link: %w", err)
	}
	if link == nil {
		return domain.DateRange{}, fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}

	r, err := NormalizeRange(s.now(), fromAt, toAt)
	if err != nil {
		return domain.DateRange{}, err
	}
	s.log.WithFields(logrus.Fields{
		"link_id": linkID,
		"from":    r.From,
		"to":      r.To,
	}).Debug("Aggregating clicks")
	return r, nil
}

func browserFamily(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return browserUnknown
	}
	ua := user_agent.New(raw)
	if ua.Bot() {
		return browserBot
	}
	name, _ := ua.Browser()
	if name == "" {
		return browserUnknown
	}
	return name
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
