package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/internal/repository"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

type mockFeedReader struct {
	mu        sync.Mutex
	entries   []models.ChangeEntry
	err       error
	lastQuery repository.ChangeFeedQuery
	pruned    int64
	cutoffs   []time.Time
}

func (m *mockFeedReader) Since(ctx context.Context, q repository.ChangeFeedQuery) ([]models.ChangeEntry, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.ChangeEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		if q.AfterVersion > 0 {
			if entry.Version <= q.AfterVersion {
				continue
			}
		} else if q.Since != nil && !entry.OccurredAt.After(*q.Since) {
			continue
		}
		out = append(out, entry)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockFeedReader) LatestVersion(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if len(m.entries) == 0 {
		return 0, nil
	}
	return m.entries[len(m.entries)-1].Version, nil
}

func (m *mockFeedReader) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.pruned, nil
}

func (m *mockFeedReader) pruneCutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.cutoffs...)
}

func feedEntry(version int64, occurredAt time.Time) models.ChangeEntry {
	return models.ChangeEntry{
		Version:     version,
		OccupancyID: "occ-1",
		Operation:   models.ChangeOperationUpdated,
		OccurredAt:  occurredAt,
	}
}

func TestChangeFeedServiceSinceVersionCursor(t *testing.T) {
	reader := &mockFeedReader{entries: []models.ChangeEntry{
		feedEntry(1, hourOf(8)),
		feedEntry(2, hourOf(9)),
		feedEntry(3, hourOf(10)),
	}}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	entries, resume, err := service.Since(context.Background(), FeedQuery{AfterVersion: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Version)
	assert.Equal(t, int64(3), resume, "clients resume from the last delivered version")
}

func TestChangeFeedServiceSinceTimestampCursor(t *testing.T) {
	reader := &mockFeedReader{entries: []models.ChangeEntry{
		feedEntry(1, hourOf(8)),
		feedEntry(2, hourOf(9)),
	}}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	since := hourOf(8)
	entries, resume, err := service.Since(context.Background(), FeedQuery{Since: &since})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Version)
	assert.Equal(t, int64(2), resume)
}

func TestChangeFeedServiceSinceEmptyKeepsCursor(t *testing.T) {
	reader := &mockFeedReader{entries: []models.ChangeEntry{
		feedEntry(1, hourOf(8)),
		feedEntry(2, hourOf(9)),
	}}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	entries, resume, err := service.Since(context.Background(), FeedQuery{AfterVersion: 2})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(2), resume, "an up-to-date client keeps its cursor")
}

func TestChangeFeedServiceSinceClampsLimit(t *testing.T) {
	reader := &mockFeedReader{}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{DefaultLimit: 25, MaxLimit: 100})

	_, _, err := service.Since(context.Background(), FeedQuery{Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 25, reader.lastQuery.Limit)

	_, _, err = service.Since(context.Background(), FeedQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, reader.lastQuery.Limit)
}

func TestChangeFeedServiceSinceReadFailure(t *testing.T) {
	reader := &mockFeedReader{err: assert.AnError}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	_, _, err := service.Since(context.Background(), FeedQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestChangeFeedServiceSubscribe(t *testing.T) {
	service := NewChangeFeedService(&mockFeedReader{}, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	ch, cancel := service.Subscribe()
	service.Notify(feedEntry(7, hourOf(8)))

	select {
	case entry := <-ch:
		assert.Equal(t, int64(7), entry.Version)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the entry")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "cancel closes the subscriber channel")

	service.Notify(feedEntry(8, hourOf(9)))
	cancel()
}

func TestChangeFeedServiceNotifyDropsSlowSubscriber(t *testing.T) {
	service := NewChangeFeedService(&mockFeedReader{}, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	ch, cancel := service.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			service.Notify(feedEntry(int64(i+1), hourOf(8)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify must never block on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer, "overflow entries are dropped, not queued")
}

func TestChangeFeedServiceNotifyFansOut(t *testing.T) {
	service := NewChangeFeedService(&mockFeedReader{}, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	first, cancelFirst := service.Subscribe()
	second, cancelSecond := service.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	service.Notify(feedEntry(1, hourOf(8)))
	assert.Equal(t, int64(1), (<-first).Version)
	assert.Equal(t, int64(1), (<-second).Version)
}

func TestChangeFeedServiceRetentionPrunes(t *testing.T) {
	reader := &mockFeedReader{pruned: 3}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{
		Retention:     time.Hour,
		PruneInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	service.StartRetention(ctx)

	require.Eventually(t, func() bool {
		return len(reader.pruneCutoffs()) > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	cutoff := reader.pruneCutoffs()[0]
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), cutoff, time.Minute)
}

func TestChangeFeedServiceRetentionDisabled(t *testing.T) {
	reader := &mockFeedReader{}
	service := NewChangeFeedService(reader, nil, zap.NewNop(), ChangeFeedServiceConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartRetention(ctx)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, reader.pruneCutoffs(), "no retention window means no pruning")
}
