package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tgranger/pkg/models"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	phone_number TEXT PRIMARY KEY,
	session_data TEXT NOT NULL DEFAULT '',
	is_active    INTEGER NOT NULL DEFAULT 1,
	created_at   TEXT NOT NULL,
	last_login   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS groups (
	group_id     TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	member_count INTEGER NOT NULL DEFAULT 0,
	is_private   INTEGER NOT NULL DEFAULT 0,
	last_scraped TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS members (
	id            TEXT PRIMARY KEY,
	group_id      TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	username      TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	is_hidden     INTEGER NOT NULL DEFAULT 0,
	is_online     INTEGER NOT NULL DEFAULT 0,
	last_seen     TEXT NOT NULL DEFAULT '',
	raw_payload   TEXT NOT NULL DEFAULT '{}',
	risk_level    TEXT NOT NULL DEFAULT 'low',
	privacy_score INTEGER NOT NULL DEFAULT 0,
	scraped_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_members_group ON members(group_id);
CREATE INDEX IF NOT EXISTS idx_members_hidden ON members(group_id, is_hidden);

CREATE TABLE IF NOT EXISTS proxy_configs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	host       TEXT NOT NULL,
	port       INTEGER NOT NULL,
	type       TEXT NOT NULL,
	username   TEXT NOT NULL DEFAULT '',
	password   TEXT NOT NULL DEFAULT '',
	is_active  INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	country    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stealth_settings (
	user_id             TEXT PRIMARY KEY,
	anti_detection      INTEGER NOT NULL DEFAULT 1,
	user_agent_rotation INTEGER NOT NULL DEFAULT 1,
	random_delays       INTEGER NOT NULL DEFAULT 1,
	request_throttling  INTEGER NOT NULL DEFAULT 1,
	header_spoofing     INTEGER NOT NULL DEFAULT 1,
	fingerprinting      INTEGER NOT NULL DEFAULT 0,
	stealth_level       INTEGER NOT NULL DEFAULT 75,
	updated_at          TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. Use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetSession returns the session record for a phone, or (nil, nil) when no
// record exists.
func (s *SQLiteStore) GetSession(ctx context.Context, phoneNumber string) (*models.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT phone_number, session_data, is_active, created_at, last_login
		FROM sessions WHERE phone_number = ?`, phoneNumber)

	var (
		rec       models.SessionRecord
		isActive  int
		createdAt string
		lastLogin string
	)
	if err := row.Scan(&rec.PhoneNumber, &rec.SessionData, &isActive, &createdAt, &lastLogin); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: scan session: %w", err)
	}
	rec.IsActive = isActive != 0
	rec.CreatedAt = parseTime(createdAt)
	rec.LastLogin = parseTime(lastLogin)
	return &rec, nil
}

// CreateSession inserts a session row for the phone if one does not exist.
// An existing row, including its session blob, is left untouched.
func (s *SQLiteStore) CreateSession(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (phone_number, session_data, is_active, created_at)
		VALUES (?, '', 1, ?)
		ON CONFLICT(phone_number) DO NOTHING`,
		phoneNumber, now())
	if err != nil {
		return fmt.Errorf("storage: create session: %w", err)
	}
	return nil
}

// UpdateSessionData stores the exported session blob and stamps last_login.
func (s *SQLiteStore) UpdateSessionData(ctx context.Context, phoneNumber, sessionData string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (phone_number, session_data, is_active, created_at, last_login)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			session_data = excluded.session_data,
			is_active    = 1,
			last_login   = excluded.last_login`,
		phoneNumber, sessionData, now(), now())
	if err != nil {
		return fmt.Errorf("storage: update session: %w", err)
	}
	return nil
}

// UpsertGroup inserts a discovered group or refreshes its metadata.
func (s *SQLiteStore) UpsertGroup(ctx context.Context, group models.Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (group_id, title, member_count, is_private, last_scraped)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			title        = excluded.title,
			member_count = excluded.member_count,
			is_private   = excluded.is_private`,
		group.GroupID, group.Title, group.MemberCount, boolToInt(group.IsPrivate), now())
	if err != nil {
		return fmt.Errorf("storage: upsert group: %w", err)
	}
	return nil
}

// ListGroups returns all known groups, most recently scraped first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, title, member_count, is_private, last_scraped
		FROM groups ORDER BY last_scraped DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var (
			g           models.Group
			isPrivate   int
			lastScraped string
		)
		if err := rows.Scan(&g.GroupID, &g.Title, &g.MemberCount, &isPrivate, &lastScraped); err != nil {
			return nil, fmt.Errorf("storage: scan group: %w", err)
		}
		g.IsPrivate = isPrivate != 0
		g.LastScraped = parseTime(lastScraped)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroupScraped refreshes a group's member count and scrape timestamp.
func (s *SQLiteStore) UpdateGroupScraped(ctx context.Context, groupID string, memberCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE groups SET member_count = ?, last_scraped = ? WHERE group_id = ?`,
		memberCount, now(), groupID)
	if err != nil {
		return fmt.Errorf("storage: update group scraped: %w", err)
	}
	return nil
}

// InsertMember appends a harvested member row. A surrogate id and scrape
// timestamp are assigned when missing.
func (s *SQLiteStore) InsertMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.ScrapedAt.IsZero() {
		member.ScrapedAt = time.Now().UTC()
	}

	payload := []byte("{}")
	if member.RawPayload != nil {
		b, err := json.Marshal(member.RawPayload)
		if err != nil {
			return fmt.Errorf("storage: marshal member payload: %w", err)
		}
		payload = b
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, group_id, user_id, username, first_name, last_name,
			phone, is_hidden, is_online, last_seen, raw_payload, risk_level,
			privacy_score, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.UserID, member.Username, member.FirstName,
		member.LastName, member.Phone, boolToInt(member.IsHidden), boolToInt(member.IsOnline),
		member.LastSeen, string(payload), member.RiskLevel, member.PrivacyScore,
		member.ScrapedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: insert member: %w", err)
	}
	return nil
}

// MembersByGroup returns every member row harvested for one group, in
// scrape order.
func (s *SQLiteStore) MembersByGroup(ctx context.Context, groupID string) ([]models.Member, error) {
	return s.queryMembers(ctx, `
		SELECT id, group_id, user_id, username, first_name, last_name, phone,
			is_hidden, is_online, last_seen, raw_payload, risk_level,
			privacy_score, scraped_at
		FROM members WHERE group_id = ? ORDER BY scraped_at, id`, groupID)
}

// AllMembers returns every member row across all groups.
func (s *SQLiteStore) AllMembers(ctx context.Context) ([]models.Member, error) {
	return s.queryMembers(ctx, `
		SELECT id, group_id, user_id, username, first_name, last_name, phone,
			is_hidden, is_online, last_seen, raw_payload, risk_level,
			privacy_score, scraped_at
		FROM members ORDER BY scraped_at, id`)
}

func (s *SQLiteStore) queryMembers(ctx context.Context, query string, args ...interface{}) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var (
			m         models.Member
			isHidden  int
			isOnline  int
			payload   string
			scrapedAt string
		)
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Username, &m.FirstName,
			&m.LastName, &m.Phone, &isHidden, &isOnline, &m.LastSeen, &payload,
			&m.RiskLevel, &m.PrivacyScore, &scrapedAt); err != nil {
			return nil, fmt.Errorf("storage: scan member: %w", err)
		}
		m.IsHidden = isHidden != 0
		m.IsOnline = isOnline != 0
		m.ScrapedAt = parseTime(scrapedAt)
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &m.RawPayload); err != nil {
				return nil, fmt.Errorf("storage: unmarshal member payload: %w", err)
			}
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate members: %w", err)
	}
	return members, nil
}

// HiddenMembersCount counts hidden member rows for one group.
func (s *SQLiteStore) HiddenMembersCount(ctx context.Context, groupID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE group_id = ? AND is_hidden = 1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: count hidden members: %w", err)
	}
	return count, nil
}

// TotalMembersCount counts all member rows across all groups.
func (s *SQLiteStore) TotalMembersCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count members: %w", err)
	}
	return count, nil
}

// InsertProxy stores a proxy endpoint and fills in its assigned id.
func (s *SQLiteStore) InsertProxy(ctx context.Context, proxy *models.ProxyConfig) error {
	if proxy.CreatedAt.IsZero() {
		proxy.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO proxy_configs (host, port, type, username, password, is_active, latency_ms, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proxy.Host, proxy.Port, proxy.Type, proxy.Username, proxy.Password,
		boolToInt(proxy.IsActive), proxy.LatencyMS, proxy.Country,
		proxy.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: insert proxy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage: proxy id: %w", err)
	}
	proxy.ID = id
	return nil
}

// ListProxies returns all stored proxy endpoints.
func (s *SQLiteStore) ListProxies(ctx context.Context) ([]models.ProxyConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host, port, type, username, password, is_active, latency_ms, country, created_at
		FROM proxy_configs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list proxies: %w", err)
	}
	defer rows.Close()

	var proxies []models.ProxyConfig
	for rows.Next() {
		var (
			p         models.ProxyConfig
			isActive  int
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Host, &p.Port, &p.Type, &p.Username, &p.Password,
			&isActive, &p.LatencyMS, &p.Country, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scan proxy: %w", err)
		}
		p.IsActive = isActive != 0
		p.CreatedAt = parseTime(createdAt)
		proxies = append(proxies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate proxies: %w", err)
	}
	return proxies, nil
}

// UpdateProxyStatus records the outcome of a proxy probe.
func (s *SQLiteStore) UpdateProxyStatus(ctx context.Context, id int64, isActive bool, latencyMS int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE proxy_configs SET is_active = ?, latency_ms = ? WHERE id = ?`,
		boolToInt(isActive), latencyMS, id)
	if err != nil {
		return fmt.Errorf("storage: update proxy status: %w", err)
	}
	return nil
}

// DeleteProxy removes one proxy endpoint.
func (s *SQLiteStore) DeleteProxy(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM proxy_configs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage: delete proxy: %w", err)
	}
	return nil
}

// DeleteFailedProxies removes all inactive proxies and reports how many.
func (s *SQLiteStore) DeleteFailedProxies(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM proxy_configs WHERE is_active = 0`)
	if err != nil {
		return 0, fmt.Errorf("storage: delete failed proxies: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: rows affected: %w", err)
	}
	return deleted, nil
}

// GetStealthSettings returns the stored toggles for a user, or (nil, nil).
func (s *SQLiteStore) GetStealthSettings(ctx context.Context, userID string) (*models.StealthSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, anti_detection, user_agent_rotation, random_delays,
			request_throttling, header_spoofing, fingerprinting, stealth_level, updated_at
		FROM stealth_settings WHERE user_id = ?`, userID)

	var (
		st        models.StealthSettings
		flags     [6]int
		updatedAt string
	)
	err := row.Scan(&st.UserID, &flags[0], &flags[1], &flags[2], &flags[3], &flags[4],
		&flags[5], &st.StealthLevel, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: scan stealth settings: %w", err)
	}
	st.AntiDetection = flags[0] != 0
	st.UserAgentRotation = flags[1] != 0
	st.RandomDelays = flags[2] != 0
	st.RequestThrottling = flags[3] != 0
	st.HeaderSpoofing = flags[4] != 0
	st.Fingerprinting = flags[5] != 0
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

// UpsertStealthSettings inserts or replaces the toggles for a user.
func (s *SQLiteStore) UpsertStealthSettings(ctx context.Context, settings models.StealthSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stealth_settings (user_id, anti_detection, user_agent_rotation,
			random_delays, request_throttling, header_spoofing, fingerprinting,
			stealth_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			anti_detection      = excluded.anti_detection,
			user_agent_rotation = excluded.user_agent_rotation,
			random_delays       = excluded.random_delays,
			request_throttling  = excluded.request_throttling,
			header_spoofing     = excluded.header_spoofing,
			fingerprinting      = excluded.fingerprinting,
			stealth_level       = excluded.stealth_level,
			updated_at          = excluded.updated_at`,
		settings.UserID, boolToInt(settings.AntiDetection), boolToInt(settings.UserAgentRotation),
		boolToInt(settings.RandomDelays), boolToInt(settings.RequestThrottling),
		boolToInt(settings.HeaderSpoofing), boolToInt(settings.Fingerprinting),
		settings.StealthLevel, now())
	if err != nil {
		return fmt.Errorf("storage: upsert stealth settings: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
