// Package session holds the per-phone authentication state machine and the
// registry that maps phone numbers to live account sessions.
package session

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"tgranger/pkg/errors"
	"tgranger/pkg/logger"
	"tgranger/pkg/models"
	"tgranger/pkg/scraper"
	"tgranger/pkg/storage"
	"tgranger/pkg/telegram"
)

// State is the login progress of one account session.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateCodeSent         State = "code_sent"
	StateAwaitingPassword State = "awaiting_password"
	StateAuthenticated    State = "authenticated"
)

// minPhoneLength is the shortest accepted E.164-like phone string,
// including the leading plus.
const minPhoneLength = 10

var nonDigits = regexp.MustCompile(`\D`)

// ValidatePhone checks the E.164-like shape of a phone number.
func ValidatePhone(phone string) error {
	if phone == "" {
		return errors.InvalidInput("Phone number is required")
	}
	if !strings.HasPrefix(phone, "+") {
		return errors.InvalidInput("Phone number must start with +")
	}
	if len(phone) < minPhoneLength {
		return errors.InvalidInput("Phone number is too short")
	}
	return nil
}

// SendCodeResult reports how a login_phone request concluded.
type SendCodeResult struct {
	// Restored is true when a stored session blob made the code step
	// unnecessary and the session is already authenticated.
	Restored bool
}

// CodeResult reports how a login_code request concluded.
type CodeResult struct {
	NeedsPassword bool
}

// AccountSession is the per-phone authentication and scrape-ownership
// state. All methods are safe for concurrent use; the scrape loop itself
// runs on its own goroutine owned by the embedded controller.
type AccountSession struct {
	mu       sync.Mutex
	phone    string
	state    State
	codeHash string

	client     telegram.Client
	store      storage.Store
	controller *scraper.Controller
	log        logger.Logger
}

// NewAccountSession creates an unauthenticated session for phone.
func NewAccountSession(phone string, client telegram.Client, store storage.Store) *AccountSession {
	return &AccountSession{
		phone:      phone,
		state:      StateUnauthenticated,
		client:     client,
		store:      store,
		controller: scraper.NewController(),
		log:        logger.GetLogger().WithField("phone", phone),
	}
}

// Phone returns the session key.
func (s *AccountSession) Phone() string {
	return s.phone
}

// State returns the current login state.
func (s *AccountSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendCode validates the phone and requests a login code. When a durable
// session blob exists and restores cleanly, the code step is skipped and
// the session lands directly in Authenticated. Calling SendCode on a
// session that is already authenticated is a no-op reported as restored.
func (s *AccountSession) SendCode(ctx context.Context) (SendCodeResult, error) {
	if err := ValidatePhone(s.phone); err != nil {
		return SendCodeResult{}, err
	}

	s.mu.Lock()
	if s.state == StateAuthenticated {
		s.mu.Unlock()
		return SendCodeResult{Restored: true}, nil
	}
	s.mu.Unlock()

	if err := s.store.CreateSession(ctx, s.phone); err != nil {
		return SendCodeResult{}, err
	}

	// Fast path: reuse the persisted session blob when it still restores.
	if rec, err := s.store.GetSession(ctx, s.phone); err == nil && rec != nil && rec.SessionData != "" {
		if err := s.client.Restore(ctx, s.phone, rec.SessionData); err == nil {
			s.setState(StateAuthenticated)
			s.log.Info("session restored from stored credentials")
			return SendCodeResult{Restored: true}, nil
		}
		s.log.Warn("stored session blob did not restore, falling back to code login")
	}

	codeHash, err := s.client.SendCode(ctx, s.phone)
	if err != nil {
		return SendCodeResult{}, errors.Provider("Failed to send code", err)
	}

	s.mu.Lock()
	s.codeHash = codeHash
	s.state = StateCodeSent
	s.mu.Unlock()
	return SendCodeResult{}, nil
}

// VerifyCode checks a login code. The code is stripped of non-digit
// characters and must be 4-6 digits; malformed input is rejected before
// the provider is consulted and leaves the state unchanged.
func (s *AccountSession) VerifyCode(ctx context.Context, code string) (CodeResult, error) {
	if strings.TrimSpace(code) == "" {
		return CodeResult{}, errors.InvalidInput("Login code is required")
	}
	digits := nonDigits.ReplaceAllString(code, "")
	if len(digits) < 4 || len(digits) > 6 {
		return CodeResult{}, errors.InvalidInput("Login code must be 4-6 digits")
	}

	s.mu.Lock()
	if s.state != StateCodeSent {
		state := s.state
		s.mu.Unlock()
		return CodeResult{}, errors.InvalidInput("no login code pending in state %q", string(state))
	}
	codeHash := s.codeHash
	s.mu.Unlock()

	result, err := s.client.VerifyCode(ctx, s.phone, codeHash, digits)
	if err != nil {
		return CodeResult{}, err
	}
	if result.NeedsPassword {
		s.setState(StateAwaitingPassword)
		return CodeResult{NeedsPassword: true}, nil
	}

	if err := s.persistSession(ctx); err != nil {
		return CodeResult{}, err
	}
	s.setState(StateAuthenticated)
	s.log.Info("code login succeeded")
	return CodeResult{}, nil
}

// VerifyPassword completes a 2FA login.
func (s *AccountSession) VerifyPassword(ctx context.Context, password string) error {
	if password == "" {
		return errors.InvalidInput("Password is required")
	}

	s.mu.Lock()
	if s.state != StateAwaitingPassword {
		state := s.state
		s.mu.Unlock()
		return errors.InvalidInput("no password challenge pending in state %q", string(state))
	}
	s.mu.Unlock()

	if err := s.client.VerifyPassword(ctx, password); err != nil {
		return err
	}

	if err := s.persistSession(ctx); err != nil {
		return err
	}
	s.setState(StateAuthenticated)
	s.log.Info("password login succeeded")
	return nil
}

// SearchGroups queries the provider for keyword candidates and upserts each
// result into the store.
func (s *AccountSession) SearchGroups(ctx context.Context, keyword string) ([]models.Group, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, errors.InvalidInput("Search keyword is required")
	}
	if s.State() != StateAuthenticated {
		return nil, errors.NotAuthenticated("group search")
	}

	groups, err := s.client.SearchGroups(ctx, keyword)
	if err != nil {
		return nil, errors.Provider("Search failed", err)
	}

	for _, g := range groups {
		if err := s.store.UpsertGroup(ctx, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// StartScrape launches the enumeration run for groupID. The session must be
// authenticated and own no other active run.
func (s *AccountSession) StartScrape(ctx context.Context, groupID string, cfg models.ScrapeConfig, obs scraper.Observer) error {
	if s.State() != StateAuthenticated {
		return errors.NotAuthenticated("scraping")
	}
	return s.controller.Start(ctx, groupID, cfg, s.client, obs)
}

// StopScrape requests cancellation of the active run, if any.
func (s *AccountSession) StopScrape() {
	s.controller.Stop()
}

// ScrapeStatus returns the controller's run snapshot.
func (s *AccountSession) ScrapeStatus() scraper.Status {
	return s.controller.Status()
}

// Close cancels any active scrape. The session must not be used afterwards.
func (s *AccountSession) Close() {
	s.controller.Stop()
}

// persistSession exports the provider's session blob and stores it keyed by
// the phone number.
func (s *AccountSession) persistSession(ctx context.Context) error {
	blob, err := s.client.ExportSession(ctx)
	if err != nil {
		return errors.Provider("failed to export session", err)
	}
	return s.store.UpdateSessionData(ctx, s.phone, blob)
}

func (s *AccountSession) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
