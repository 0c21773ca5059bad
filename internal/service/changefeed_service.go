package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/internal/repository"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

// subscriberBuffer is the per-subscriber channel depth for live change
// delivery. A subscriber that falls further behind loses entries and is
// expected to resync through Since.
const subscriberBuffer = 64

type changeFeedReader interface {
	Since(ctx context.Context, q repository.ChangeFeedQuery) ([]models.ChangeEntry, error)
	LatestVersion(ctx context.Context) (int64, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FeedQuery narrows a change feed read. AfterVersion wins over Since
// when both are provided; version cursors are exact while timestamps
// are a convenience for first contact.
type FeedQuery struct {
	Since        *time.Time
	AfterVersion int64
	Limit        int
}

// ChangeFeedServiceConfig governs paging limits and log retention.
type ChangeFeedServiceConfig struct {
	DefaultLimit  int
	MaxLimit      int
	Retention     time.Duration
	PruneInterval time.Duration
}

// ChangeFeedService reads the mutation log for sync clients and fans
// committed entries out to live stream subscribers.
type ChangeFeedService struct {
	repo    changeFeedReader
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ChangeFeedServiceConfig

	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.ChangeEntry
}

// NewChangeFeedService constructs the feed service.
func NewChangeFeedService(repo changeFeedReader, metrics *MetricsService, logger *zap.Logger, cfg ChangeFeedServiceConfig) *ChangeFeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 25
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &ChangeFeedService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		subs:    make(map[int]chan models.ChangeEntry),
	}
}

// Since returns committed entries after the given cursor in ascending
// version order, plus the version a client should resume from. With no
// new entries the resume cursor is the feed's latest version.
func (s *ChangeFeedService) Since(ctx context.Context, query FeedQuery) ([]models.ChangeEntry, int64, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	entries, err := s.repo.Since(ctx, repository.ChangeFeedQuery{
		AfterVersion: query.AfterVersion,
		Since:        query.Since,
		Limit:        limit,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read change feed")
	}
	if len(entries) > 0 {
		return entries, entries[len(entries)-1].Version, nil
	}
	latest, err := s.repo.LatestVersion(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read change feed version")
	}
	return entries, latest, nil
}

// LatestVersion exposes the highest committed feed version.
func (s *ChangeFeedService) LatestVersion(ctx context.Context) (int64, error) {
	latest, err := s.repo.LatestVersion(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read change feed version")
	}
	return latest, nil
}

// Notify delivers a committed entry to every live subscriber without
// blocking the mutation path. Slow subscribers drop entries.
func (s *ChangeFeedService) Notify(entry models.ChangeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- entry:
		default:
			s.logger.Warn("dropping change entry for slow stream subscriber",
				zap.Int("subscriber", id),
				zap.Int64("version", entry.Version))
		}
	}
}

// Subscribe registers a live stream subscriber. The returned cancel is
// idempotent and must be called when the subscriber goes away.
func (s *ChangeFeedService) Subscribe() (<-chan models.ChangeEntry, func()) {
	ch := make(chan models.ChangeEntry, subscriberBuffer)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	count := len(s.subs)
	s.mu.Unlock()
	s.metrics.SetStreamClients(count)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			remaining := len(s.subs)
			s.mu.Unlock()
			close(ch)
			s.metrics.SetStreamClients(remaining)
		})
	}
	return ch, cancel
}

// StartRetention boots a goroutine that prunes feed entries older than
// the retention window. With no retention configured the log is kept
// unbounded.
func (s *ChangeFeedService) StartRetention(ctx context.Context) {
	if s.cfg.Retention <= 0 || s.cfg.PruneInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.PruneInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pruneExpired(ctx)
			}
		}
	}()
}

func (s *ChangeFeedService) pruneExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention)
	removed, err := s.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Sugar().Warnw("change feed prune failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("change feed pruned",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff))
	}
}
