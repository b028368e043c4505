package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgranger/pkg/errors"
	"tgranger/pkg/models"
)

func newTestClient(t *testing.T) *SimulatedClient {
	t.Helper()
	c := NewSimulatedClientWithSeed(42)
	c.CallDelay = 0
	return c
}

func TestVerifyCode(t *testing.T) {
	ctx := context.Background()

	t.Run("five digit code authenticates", func(t *testing.T) {
		c := newTestClient(t)
		result, err := c.VerifyCode(ctx, "+12025550123", "hash", "54321")
		require.NoError(t, err)
		assert.False(t, result.NeedsPassword)
		assert.True(t, c.isAuthenticated())
	})

	t.Run("two factor code diverts to password", func(t *testing.T) {
		c := newTestClient(t)
		result, err := c.VerifyCode(ctx, "+12025550123", "hash", "12345")
		require.NoError(t, err)
		assert.True(t, result.NeedsPassword)
		assert.False(t, c.isAuthenticated(), "password step must complete before authentication")
	})

	t.Run("wrong length code rejected", func(t *testing.T) {
		c := newTestClient(t)
		_, err := c.VerifyCode(ctx, "+12025550123", "hash", "1234")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrorTypeProvider))
		assert.False(t, c.isAuthenticated())
	})
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t)
	require.Error(t, c.VerifyPassword(ctx, ""))
	assert.False(t, c.isAuthenticated())

	require.NoError(t, c.VerifyPassword(ctx, "hunter2"))
	assert.True(t, c.isAuthenticated())
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t)
	_, err := c.ExportSession(ctx)
	require.Error(t, err, "export before login must fail")

	_, err = c.VerifyCode(ctx, "+12025550123", "hash", "54321")
	require.NoError(t, err)

	blob, err := c.ExportSession(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(blob, "sim1:"))

	// A fresh client restores from the exported blob.
	fresh := newTestClient(t)
	require.NoError(t, fresh.Restore(ctx, "+12025550123", blob))
	assert.True(t, fresh.isAuthenticated())

	// Garbage is refused.
	another := newTestClient(t)
	require.Error(t, another.Restore(ctx, "+12025550123", "not-a-session"))
	assert.False(t, another.isAuthenticated())
}

func TestSearchGroups(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t)
	_, err := c.SearchGroups(ctx, "crypto")
	require.Error(t, err, "search requires authentication")

	_, err = c.VerifyCode(ctx, "+12025550123", "hash", "54321")
	require.NoError(t, err)

	groups, err := c.SearchGroups(ctx, "crypto")
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "1001234567890", groups[0].GroupID)
	assert.Equal(t, "crypto Discussion Group", groups[0].Title)
	assert.Equal(t, "1001234567891", groups[1].GroupID)
	assert.Equal(t, "crypto Trading Signals", groups[1].Title)
	assert.True(t, groups[1].IsPrivate)
	assert.True(t, groups[1].IsChannel)
	assert.Equal(t, "1001234567892", groups[2].GroupID)
	assert.Equal(t, "Advanced crypto Community", groups[2].Title)

	for _, g := range groups {
		assert.Greater(t, g.MemberCount, 0)
	}
}

func TestMemberHiddenByMode(t *testing.T) {
	ctx := context.Background()

	t.Run("hidden mode always hides", func(t *testing.T) {
		c := newTestClient(t)
		for i := 0; i < 20; i++ {
			m, err := c.Member(ctx, "g1", i, models.ScrapeConfig{Mode: models.ModeHidden})
			require.NoError(t, err)
			assert.True(t, m.IsHidden)
			assert.Equal(t, "high", m.RiskLevel)
			assert.GreaterOrEqual(t, m.PrivacyScore, 60)
			assert.LessOrEqual(t, m.PrivacyScore, 100)
		}
	})

	t.Run("standard mode never hides", func(t *testing.T) {
		c := newTestClient(t)
		for i := 0; i < 20; i++ {
			m, err := c.Member(ctx, "g1", i, models.ScrapeConfig{Mode: models.ModeStandard})
			require.NoError(t, err)
			assert.False(t, m.IsHidden)
			assert.Equal(t, "low", m.RiskLevel)
			assert.LessOrEqual(t, m.PrivacyScore, 40)
		}
	})

	t.Run("all mode hides roughly a third", func(t *testing.T) {
		c := newTestClient(t)
		hidden := 0
		for i := 0; i < 200; i++ {
			m, err := c.Member(ctx, "g1", i, models.ScrapeConfig{Mode: models.ModeAll})
			require.NoError(t, err)
			if m.IsHidden {
				hidden++
			}
		}
		assert.Greater(t, hidden, 0)
		assert.Less(t, hidden, 200)
	})
}

func TestMemberRecordShape(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	m, err := c.Member(ctx, "1001234567890", 7, models.ScrapeConfig{Mode: models.ModeStandard, BypassPrivacy: true})
	require.NoError(t, err)

	assert.Equal(t, "1001234567890", m.GroupID)
	assert.Equal(t, "user_1000007", m.UserID)
	assert.NotEmpty(t, m.FirstName)

	require.NotNil(t, m.RawPayload)
	assert.Equal(t, "normal", m.RawPayload["privacy_level"])
	assert.Equal(t, "member_list", m.RawPayload["source"])
	assert.Equal(t, true, m.RawPayload["bypass_privacy"])

	if !m.IsOnline {
		assert.NotEmpty(t, m.LastSeen)
	}
}

func TestCallDelayHonorsContext(t *testing.T) {
	c := NewSimulatedClientWithSeed(1)
	c.CallDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SendCode(ctx, "+12025550123")
	assert.ErrorIs(t, err, context.Canceled)
}
