// Package telegram defines the provider contract the scraping pipeline is
// built against: phone-code authentication, group search, and member
// production. The shipped implementation is simulated; a real MTProto-backed
// client implements the same interface.
package telegram

import (
	"context"

	"tgranger/pkg/models"
)

// CodeResult is the outcome of a code verification attempt.
type CodeResult struct {
	// NeedsPassword signals that the account has 2FA enabled and the
	// login must continue with a password.
	NeedsPassword bool
}

// Client is the authentication/search/scrape backend for one account.
// A Client instance is owned by a single account session and is not
// shared across phones.
type Client interface {
	// SendCode requests a login code for the phone and returns the
	// correlation hash for the pending code.
	SendCode(ctx context.Context, phone string) (codeHash string, err error)

	// VerifyCode checks a login code against the pending codeHash.
	VerifyCode(ctx context.Context, phone, codeHash, code string) (CodeResult, error)

	// VerifyPassword completes a 2FA login.
	VerifyPassword(ctx context.Context, password string) error

	// Restore reconnects using a previously exported session blob.
	Restore(ctx context.Context, phone, sessionBlob string) error

	// ExportSession serializes the authenticated session into an opaque
	// blob suitable for persistence and later Restore.
	ExportSession(ctx context.Context) (string, error)

	// SearchGroups returns candidate groups for a non-empty keyword.
	SearchGroups(ctx context.Context, keyword string) ([]models.Group, error)

	// Member produces the member record at position index of a run.
	// Visibility classification follows cfg.Mode.
	Member(ctx context.Context, groupID string, index int, cfg models.ScrapeConfig) (models.Member, error)
}

// Factory creates a fresh Client for a new account session.
type Factory func() Client
