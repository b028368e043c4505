// Package models holds the domain records shared by the provider, the
// session pipeline, the store, and the export engine.
package models

import "time"

// ScrapeMode selects how member visibility is classified during a run.
type ScrapeMode string

const (
	ModeStandard ScrapeMode = "standard"
	ModeHidden   ScrapeMode = "hidden"
	ModeAll      ScrapeMode = "all"
	ModeRecent   ScrapeMode = "recent"
)

// Valid reports whether m is one of the recognized modes.
func (m ScrapeMode) Valid() bool {
	switch m {
	case ModeStandard, ModeHidden, ModeAll, ModeRecent:
		return true
	}
	return false
}

// ScrapeConfig is the per-run configuration supplied by a start command.
// RateLimit is member emissions per second; the run sleeps a fixed
// 1s/RateLimit between items.
type ScrapeConfig struct {
	Mode           ScrapeMode `json:"mode"`
	RateLimit      int        `json:"rate_limit"`
	MaxMembers     int        `json:"max_members"`
	BypassPrivacy  bool       `json:"bypass_privacy"`
	RealTimeExport bool       `json:"real_time_export"`
}

// Group is a discovered group or channel.
type Group struct {
	GroupID     string    `json:"id"`
	Title       string    `json:"title"`
	MemberCount int       `json:"member_count"`
	IsPrivate   bool      `json:"is_private"`
	IsChannel   bool      `json:"is_channel"`
	LastScraped time.Time `json:"last_scraped,omitempty"`
}

// Member is one harvested member record. Rows are append-only per group:
// repeated scrapes of the same group accumulate history, duplicates included.
type Member struct {
	ID           string                 `json:"-"`
	GroupID      string                 `json:"group_id,omitempty"`
	UserID       string                 `json:"id"`
	Username     string                 `json:"username,omitempty"`
	FirstName    string                 `json:"first_name,omitempty"`
	LastName     string                 `json:"last_name,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	IsHidden     bool                   `json:"is_hidden"`
	IsOnline     bool                   `json:"is_online"`
	LastSeen     string                 `json:"last_seen,omitempty"`
	RawPayload   map[string]interface{} `json:"raw_payload,omitempty"`
	RiskLevel    string                 `json:"risk_level"`
	PrivacyScore int                    `json:"privacy_score"`
	ScrapedAt    time.Time              `json:"scraped_at,omitempty"`
}

// SessionRecord is the durable per-phone auth session.
type SessionRecord struct {
	PhoneNumber string    `json:"phone_number"`
	SessionData string    `json:"session_data"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

// ProxyConfig is a stored proxy endpoint.
type ProxyConfig struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Type      string    `json:"type"`
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"password,omitempty"`
	IsActive  bool      `json:"is_active"`
	LatencyMS int       `json:"latency"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StealthSettings are the simulated anti-detection toggles, kept per user.
type StealthSettings struct {
	UserID            string    `json:"user_id"`
	AntiDetection     bool      `json:"anti_detection"`
	UserAgentRotation bool      `json:"user_agent_rotation"`
	RandomDelays      bool      `json:"random_delays"`
	RequestThrottling bool      `json:"request_throttling"`
	HeaderSpoofing    bool      `json:"header_spoofing"`
	Fingerprinting    bool      `json:"fingerprinting"`
	StealthLevel      int       `json:"stealth_level"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultStealthSettings mirrors the stored column defaults.
func DefaultStealthSettings(userID string) StealthSettings {
	return StealthSettings{
		UserID:            userID,
		AntiDetection:     true,
		UserAgentRotation: true,
		RandomDelays:      true,
		RequestThrottling: true,
		HeaderSpoofing:    true,
		Fingerprinting:    false,
		StealthLevel:      75,
	}
}

// Stats is the aggregate view served by the read API.
type Stats struct {
	TotalGroups    int `json:"totalGroups"`
	TotalMembers   int `json:"totalMembers"`
	HiddenMembers  int `json:"hiddenMembers"`
	ActiveSessions int `json:"activeSessions"`
}
