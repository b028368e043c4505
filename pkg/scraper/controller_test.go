package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgranger/pkg/errors"
	"tgranger/pkg/models"
)

// fakeSource fabricates members by index and can be told to fail at a
// specific position.
type fakeSource struct {
	failAt int // -1 never fails
}

func (f *fakeSource) Member(ctx context.Context, groupID string, index int, cfg models.ScrapeConfig) (models.Member, error) {
	if f.failAt >= 0 && index == f.failAt {
		return models.Member{}, errors.Provider("FLOOD_WAIT", nil)
	}
	return models.Member{
		GroupID: groupID,
		UserID:  fmt.Sprintf("user_%d", index),
	}, nil
}

// recorder captures the event stream of one run. The run goroutine emits
// serially, so a mutex plus a done channel is enough.
type recorder struct {
	mu       sync.Mutex
	events   []string // "member", "progress", "complete", "error"
	members  []models.Member
	progress [][2]int
	scraped  int
	errMsg   string
	done     chan struct{}

	onProgress func(current int)
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) OnMember(m models.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "member")
	r.members = append(r.members, m)
}

func (r *recorder) OnProgress(current, total int) {
	r.mu.Lock()
	r.events = append(r.events, "progress")
	r.progress = append(r.progress, [2]int{current, total})
	cb := r.onProgress
	r.mu.Unlock()
	if cb != nil {
		cb(current)
	}
}

func (r *recorder) OnComplete(totalScraped int) {
	r.mu.Lock()
	r.events = append(r.events, "complete")
	r.scraped = totalScraped
	r.mu.Unlock()
	close(r.done)
}

func (r *recorder) OnError(message string) {
	r.mu.Lock()
	r.events = append(r.events, "error")
	r.errMsg = message
	r.mu.Unlock()
	close(r.done)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not reach a terminal event")
	}
}

func fastConfig(maxMembers int) models.ScrapeConfig {
	return models.ScrapeConfig{
		Mode:       models.ModeStandard,
		RateLimit:  200,
		MaxMembers: maxMembers,
	}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{failAt: -1}

	tests := []struct {
		name string
		cfg  models.ScrapeConfig
	}{
		{"zero max members", models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 3}},
		{"negative max members", models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 3, MaxMembers: -5}},
		{"zero rate limit", models.ScrapeConfig{Mode: models.ModeStandard, MaxMembers: 10}},
		{"unknown mode", models.ScrapeConfig{Mode: "turbo", RateLimit: 3, MaxMembers: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			rec := newRecorder()
			err := c.Start(ctx, "g1", tt.cfg, src, rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeInvalidInput))
			assert.False(t, c.Active())
			assert.Empty(t, rec.events, "validation failures must emit no events")
		})
	}
}

func TestRunEmitsOrderedEvents(t *testing.T) {
	c := NewController()
	rec := newRecorder()
	src := &fakeSource{failAt: -1}

	const n = 5
	require.NoError(t, c.Start(context.Background(), "g1", fastConfig(n), src, rec))
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	require.Len(t, rec.members, n)
	require.Len(t, rec.progress, n)
	assert.Equal(t, n, rec.scraped)

	// Each item is member then progress, terminal event last.
	require.Len(t, rec.events, 2*n+1)
	for i := 0; i < n; i++ {
		assert.Equal(t, "member", rec.events[2*i])
		assert.Equal(t, "progress", rec.events[2*i+1])
	}
	assert.Equal(t, "complete", rec.events[2*n])

	// Progress counts up one by one against the configured total.
	for i, p := range rec.progress {
		assert.Equal(t, i+1, p[0])
		assert.Equal(t, n, p[1])
	}

	// Items arrive in index order.
	for i, m := range rec.members {
		assert.Equal(t, fmt.Sprintf("user_%d", i), m.UserID)
		assert.Equal(t, "g1", m.GroupID)
	}

	assert.False(t, c.Active())
}

func TestRejectsConcurrentRun(t *testing.T) {
	c := NewController()
	rec := newRecorder()
	src := &fakeSource{failAt: -1}

	cfg := models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 1, MaxMembers: 100}
	require.NoError(t, c.Start(context.Background(), "g1", cfg, src, rec))

	err := c.Start(context.Background(), "g1", cfg, src, newRecorder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	c.Stop()
	rec.wait(t)
}

func TestStopEndsRunEarly(t *testing.T) {
	c := NewController()
	rec := newRecorder()
	src := &fakeSource{failAt: -1}

	var stopOnce sync.Once
	var seenAtStop int
	rec.onProgress = func(current int) {
		stopOnce.Do(func() {
			seenAtStop = current
			c.Stop()
		})
	}

	cfg := models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 50, MaxMembers: 1000}
	require.NoError(t, c.Start(context.Background(), "g1", cfg, src, rec))
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// Stop is cooperative: the item already past its delay may still be
	// emitted, but nothing beyond it.
	assert.LessOrEqual(t, len(rec.members), seenAtStop+1)
	assert.Equal(t, "complete", rec.events[len(rec.events)-1])
	assert.Equal(t, len(rec.members), rec.scraped)
	assert.False(t, c.Active())
}

func TestContextCancelEndsRun(t *testing.T) {
	c := NewController()
	rec := newRecorder()
	src := &fakeSource{failAt: -1}

	ctx, cancel := context.WithCancel(context.Background())
	cfg := models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 1, MaxMembers: 1000}
	require.NoError(t, c.Start(ctx, "g1", cfg, src, rec))

	cancel()
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "complete", rec.events[len(rec.events)-1])
	assert.False(t, c.Active())
}

func TestSourceErrorTerminatesRun(t *testing.T) {
	c := NewController()
	rec := newRecorder()
	src := &fakeSource{failAt: 2}

	require.NoError(t, c.Start(context.Background(), "g1", fastConfig(10), src, rec))
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Len(t, rec.members, 2, "items before the failure were delivered")
	assert.Equal(t, "error", rec.events[len(rec.events)-1])
	assert.Contains(t, rec.errMsg, "Scraping failed:")
	assert.NotContains(t, rec.events[:len(rec.events)-1], "complete")
	assert.False(t, c.Active())
}

func TestControllerReusableAfterRun(t *testing.T) {
	c := NewController()
	src := &fakeSource{failAt: -1}

	first := newRecorder()
	require.NoError(t, c.Start(context.Background(), "g1", fastConfig(2), src, first))
	first.wait(t)

	second := newRecorder()
	require.NoError(t, c.Start(context.Background(), "g1", fastConfig(3), src, second))
	second.wait(t)

	second.mu.Lock()
	defer second.mu.Unlock()
	assert.Equal(t, 3, second.scraped)
}

func TestStatus(t *testing.T) {
	c := NewController()
	status := c.Status()
	assert.False(t, status.Active)
	assert.Zero(t, status.Current)

	rec := newRecorder()
	src := &fakeSource{failAt: -1}
	cfg := models.ScrapeConfig{Mode: models.ModeStandard, RateLimit: 20, MaxMembers: 3}
	require.NoError(t, c.Start(context.Background(), "g1", cfg, src, rec))

	assert.True(t, c.Status().Active)
	rec.wait(t)

	status = c.Status()
	assert.False(t, status.Active)
	assert.Equal(t, 3, status.Current)
	assert.Equal(t, 3, status.Total)
}
