// Package storage provides durable records for auth sessions, discovered
// groups, harvested members, and the proxy/stealth configuration shapes.
package storage

import (
	"context"

	"tgranger/pkg/models"
)

// Store persists and retrieves scraping state. Member rows are append-only:
// repeated scrapes of a group accumulate history and duplicate
// (groupID, userID) pairs are expected. Sessions, groups, and stealth
// settings upsert by their natural keys.
type Store interface {
	// Sessions
	GetSession(ctx context.Context, phoneNumber string) (*models.SessionRecord, error)
	CreateSession(ctx context.Context, phoneNumber string) error
	UpdateSessionData(ctx context.Context, phoneNumber, sessionData string) error

	// Groups
	UpsertGroup(ctx context.Context, group models.Group) error
	ListGroups(ctx context.Context) ([]models.Group, error)
	UpdateGroupScraped(ctx context.Context, groupID string, memberCount int) error

	// Members
	InsertMember(ctx context.Context, member *models.Member) error
	MembersByGroup(ctx context.Context, groupID string) ([]models.Member, error)
	AllMembers(ctx context.Context) ([]models.Member, error)
	HiddenMembersCount(ctx context.Context, groupID string) (int, error)
	TotalMembersCount(ctx context.Context) (int, error)

	// Proxies
	InsertProxy(ctx context.Context, proxy *models.ProxyConfig) error
	ListProxies(ctx context.Context) ([]models.ProxyConfig, error)
	UpdateProxyStatus(ctx context.Context, id int64, isActive bool, latencyMS int) error
	DeleteProxy(ctx context.Context, id int64) error
	DeleteFailedProxies(ctx context.Context) (int64, error)

	// Stealth settings
	GetStealthSettings(ctx context.Context, userID string) (*models.StealthSettings, error)
	UpsertStealthSettings(ctx context.Context, settings models.StealthSettings) error

	Close() error
}
