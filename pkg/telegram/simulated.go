package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tgranger/pkg/errors"
	"tgranger/pkg/models"
)

// twoFactorCode is the code that always triggers the password step.
const twoFactorCode = "12345"

// sessionBlobPrefix tags blobs produced by this client so Restore can tell
// its own sessions from garbage.
const sessionBlobPrefix = "sim1:"

var (
	usernamePool  = []string{"alice_crypto", "bob_trader", "charlie_dev", "diana_analyst", "eve_investor"}
	firstNamePool = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry", "Ivy", "Jack"}
	lastNamePool  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
)

// SimulatedClient is the stand-in backend. It accepts any 5-digit code
// (except the 2FA trigger code), any non-empty password, and fabricates
// search results and member records. Latencies are scaled down from the
// real thing but still yield on the context.
type SimulatedClient struct {
	mu            sync.Mutex
	rng           *rand.Rand
	authenticated bool

	// Latency per simulated backend call; tests set this to zero.
	CallDelay time.Duration
}

var _ Client = (*SimulatedClient)(nil)

// NewSimulatedClient creates a simulated backend with a time-seeded
// generator.
func NewSimulatedClient() *SimulatedClient {
	return NewSimulatedClientWithSeed(time.Now().UnixNano())
}

// NewSimulatedClientWithSeed creates a simulated backend with a fixed seed
// so tests get reproducible records.
func NewSimulatedClientWithSeed(seed int64) *SimulatedClient {
	return &SimulatedClient{
		rng:       rand.New(rand.NewSource(seed)),
		CallDelay: 50 * time.Millisecond,
	}
}

// SimulatedFactory returns a Factory producing independent simulated
// clients, one per account session.
func SimulatedFactory() Factory {
	return func() Client { return NewSimulatedClient() }
}

// SendCode pretends to deliver a login code and returns its correlation hash.
func (c *SimulatedClient) SendCode(ctx context.Context, phone string) (string, error) {
	if err := c.sleep(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("code_hash_%d", time.Now().UnixMilli()), nil
}

// VerifyCode accepts exactly the 5-digit codes, with the 2FA trigger code
// diverting to the password step.
func (c *SimulatedClient) VerifyCode(ctx context.Context, phone, codeHash, code string) (CodeResult, error) {
	if err := c.sleep(ctx); err != nil {
		return CodeResult{}, err
	}
	if code == twoFactorCode {
		return CodeResult{NeedsPassword: true}, nil
	}
	if len(code) == 5 {
		c.setAuthenticated(true)
		return CodeResult{}, nil
	}
	return CodeResult{}, errors.Provider("Invalid code", nil)
}

// VerifyPassword accepts any non-empty password.
func (c *SimulatedClient) VerifyPassword(ctx context.Context, password string) error {
	if err := c.sleep(ctx); err != nil {
		return err
	}
	if password == "" {
		return errors.Provider("Invalid password", nil)
	}
	c.setAuthenticated(true)
	return nil
}

// Restore accepts any blob this client family exported.
func (c *SimulatedClient) Restore(ctx context.Context, phone, sessionBlob string) error {
	if err := c.sleep(ctx); err != nil {
		return err
	}
	if !strings.HasPrefix(sessionBlob, sessionBlobPrefix) {
		return errors.Provider("session data is not restorable", nil)
	}
	c.setAuthenticated(true)
	return nil
}

// ExportSession emits an opaque one-per-login token.
func (c *SimulatedClient) ExportSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authenticated {
		return "", errors.Provider("no authenticated session to export", nil)
	}
	return sessionBlobPrefix + uuid.NewString(), nil
}

// SearchGroups fabricates three keyword-derived candidates.
func (c *SimulatedClient) SearchGroups(ctx context.Context, keyword string) ([]models.Group, error) {
	if !c.isAuthenticated() {
		return nil, errors.NotAuthenticated("group search")
	}
	if err := c.sleep(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return []models.Group{
		{
			GroupID:     "1001234567890",
			Title:       fmt.Sprintf("%s Discussion Group", keyword),
			MemberCount: c.rng.Intn(10000) + 100,
			IsPrivate:   false,
			IsChannel:   false,
		},
		{
			GroupID:     "1001234567891",
			Title:       fmt.Sprintf("%s Trading Signals", keyword),
			MemberCount: c.rng.Intn(5000) + 50,
			IsPrivate:   true,
			IsChannel:   true,
		},
		{
			GroupID:     "1001234567892",
			Title:       fmt.Sprintf("Advanced %s Community", keyword),
			MemberCount: c.rng.Intn(15000) + 200,
			IsPrivate:   false,
			IsChannel:   false,
		},
	}, nil
}

// Member fabricates the record at position index. Hidden classification by
// mode: hidden forces it, all marks roughly a third, the rest never do.
func (c *SimulatedClient) Member(ctx context.Context, groupID string, index int, cfg models.ScrapeConfig) (models.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	isHidden := cfg.Mode == models.ModeHidden || (cfg.Mode == models.ModeAll && c.rng.Float64() > 0.7)
	isOnline := c.rng.Float64() > 0.6

	m := models.Member{
		GroupID:   groupID,
		UserID:    fmt.Sprintf("user_%d", index+1000000),
		FirstName: firstNamePool[index%len(firstNamePool)],
		IsHidden:  isHidden,
		IsOnline:  isOnline,
	}
	if c.rng.Float64() > 0.3 {
		m.Username = fmt.Sprintf("%s%d", usernamePool[index%len(usernamePool)], index)
	}
	if c.rng.Float64() > 0.4 {
		m.LastName = lastNamePool[index%len(lastNamePool)]
	}
	phoneChance := 0.8
	if cfg.BypassPrivacy {
		phoneChance = 0.6
	}
	if c.rng.Float64() > phoneChance {
		m.Phone = fmt.Sprintf("+1%d", c.rng.Intn(9000000000)+1000000000)
	}
	if !isOnline {
		m.LastSeen = c.lastSeen()
	}

	privacyLevel := "normal"
	if isHidden {
		privacyLevel = "high"
		m.RiskLevel = "high"
		m.PrivacyScore = 60 + c.rng.Intn(41)
	} else {
		m.RiskLevel = "low"
		m.PrivacyScore = c.rng.Intn(41)
	}
	m.RawPayload = map[string]interface{}{
		"privacy_level":  privacyLevel,
		"source":         "member_list",
		"bypass_privacy": cfg.BypassPrivacy,
	}
	return m, nil
}

// lastSeen picks a timestamp up to seven days back.
func (c *SimulatedClient) lastSeen() string {
	minutes := c.rng.Intn(10080)
	return time.Now().Add(-time.Duration(minutes) * time.Minute).UTC().Format(time.RFC3339)
}

func (c *SimulatedClient) setAuthenticated(v bool) {
	c.mu.Lock()
	c.authenticated = v
	c.mu.Unlock()
}

func (c *SimulatedClient) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// sleep waits the simulated call latency, yielding on ctx.
func (c *SimulatedClient) sleep(ctx context.Context) error {
	if c.CallDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.CallDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
