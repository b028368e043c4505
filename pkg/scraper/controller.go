// Package scraper runs the bounded, rate-limited member enumeration loop
// for one group, emitting progress and member events and honoring
// cooperative cancellation.
package scraper

import (
	"context"
	"fmt"
	"sync"

	"tgranger/pkg/errors"
	"tgranger/pkg/logger"
	"tgranger/pkg/models"
	"tgranger/pkg/ratelimit"
)

// Observer receives the event stream of one run. For every item the member
// event precedes the progress event, items are strictly ordered, and
// exactly one terminal event (OnComplete or OnError) closes the stream.
type Observer interface {
	OnMember(member models.Member)
	OnProgress(current, total int)
	OnComplete(totalScraped int)
	OnError(message string)
}

// MemberSource produces the member record at a given position of a run.
type MemberSource interface {
	Member(ctx context.Context, groupID string, index int, cfg models.ScrapeConfig) (models.Member, error)
}

// Status is a snapshot of a controller's run state.
type Status struct {
	Active  bool `json:"active"`
	Current int  `json:"progress"`
	Total   int  `json:"total"`
}

// Controller owns at most one scrape run at a time. It is reusable: once a
// run reaches its terminal event a new run may start.
type Controller struct {
	mu      sync.Mutex
	active  bool
	current int
	total   int

	log logger.Logger
}

// NewController creates an idle controller.
func NewController() *Controller {
	return &Controller{log: logger.GetLogger()}
}

// Start begins a run against groupID and returns once the run goroutine is
// launched. Validation failures are returned synchronously and emit no
// events. The caller is responsible for the authentication precondition.
func (c *Controller) Start(ctx context.Context, groupID string, cfg models.ScrapeConfig, src MemberSource, obs Observer) error {
	if cfg.MaxMembers <= 0 {
		return errors.InvalidInput("max_members must be a positive integer, got %d", cfg.MaxMembers)
	}
	if cfg.RateLimit <= 0 {
		return errors.InvalidInput("rate_limit must be a positive integer, got %d", cfg.RateLimit)
	}
	if !cfg.Mode.Valid() {
		return errors.InvalidInput("unknown scraping mode: %q", string(cfg.Mode))
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return errors.InvalidInput("scraping already in progress")
	}
	c.active = true
	c.current = 0
	c.total = cfg.MaxMembers
	c.mu.Unlock()

	c.log.InfoWithFields("scrape run starting", map[string]interface{}{
		"group_id":    groupID,
		"mode":        string(cfg.Mode),
		"rate_limit":  cfg.RateLimit,
		"max_members": cfg.MaxMembers,
	})

	go c.run(ctx, groupID, cfg, src, obs)
	return nil
}

// Stop requests cancellation. It only flips the active flag; an in-flight
// delay is not interrupted, so at most one more member/progress pair may be
// emitted before the loop observes the flag.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// Active reports whether a run is in progress.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Status returns the current run snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Active: c.active, Current: c.current, Total: c.total}
}

// run is the scrape loop. The per-item delay is the only suspension point;
// the active flag is checked on both sides of it. The flag is cleared on
// every exit path so a subsequent run can start.
func (c *Controller) run(ctx context.Context, groupID string, cfg models.ScrapeConfig, src MemberSource, obs Observer) {
	defer c.deactivate()

	limiter := ratelimit.PerSecond(cfg.RateLimit)

	for i := 0; i < cfg.MaxMembers; i++ {
		if !c.Active() {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			// Context teardown counts as an external stop.
			break
		}
		if !c.Active() {
			break
		}

		member, err := src.Member(ctx, groupID, i, cfg)
		if err != nil {
			c.log.WithError(err).WithField("group_id", groupID).Error("scrape run aborted")
			obs.OnError(fmt.Sprintf("Scraping failed: %s", errors.ClientMessage(err)))
			return
		}

		obs.OnMember(member)

		c.mu.Lock()
		c.current = i + 1
		current := c.current
		c.mu.Unlock()
		obs.OnProgress(current, cfg.MaxMembers)
	}

	c.mu.Lock()
	scraped := c.current
	c.mu.Unlock()
	c.log.InfoWithFields("scrape run complete", map[string]interface{}{
		"group_id":      groupID,
		"total_scraped": scraped,
	})
	obs.OnComplete(scraped)
}

func (c *Controller) deactivate() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}
