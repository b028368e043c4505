package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"tgranger/pkg/errors"
	"tgranger/pkg/export"
	"tgranger/pkg/models"
	"tgranger/pkg/session"
)

// command is the inbound message envelope. Fields are populated per action.
type command struct {
	Action string `json:"action"`

	// login
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password"`

	// search
	Keyword string `json:"keyword"`

	// scraping
	GroupID        string `json:"group_id"`
	Mode           string `json:"mode"`
	RateLimit      *int   `json:"rate_limit"`
	MaxMembers     *int   `json:"max_members"`
	BypassPrivacy  bool   `json:"bypass_privacy"`
	RealTimeExport bool   `json:"real_time_export"`

	// export
	Format  string          `json:"format"`
	Filters []export.Filter `json:"filters"`

	// proxies
	Proxy     *proxyPayload `json:"proxy"`
	ProxyID   int64         `json:"proxyId"`
	ProxyList string        `json:"proxy_list"`
}

type proxyPayload struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

// dispatch parses one inbound frame and routes it to its handler. Every
// failure surfaces as a single error reply; nothing is allowed to crash
// the channel.
func (s *Server) dispatch(c *conn, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.log.WithError(err).Warn("malformed websocket message")
		c.sendError("Invalid message format")
		return
	}

	switch cmd.Action {
	case "login_phone":
		s.handleLoginPhone(c, cmd)
		return
	}

	// Every other action needs the phone key this connection logged in with.
	sess, ok := s.connSession(c)
	if !ok {
		c.sendError(errors.SessionNotFound().Message)
		return
	}

	switch cmd.Action {
	case "login_code":
		s.handleLoginCode(c, sess, cmd)
	case "login_password":
		s.handleLoginPassword(c, sess, cmd)
	case "search_groups":
		s.handleSearchGroups(c, sess, cmd)
	case "start_scraping":
		s.handleStartScraping(c, sess, cmd)
	case "stop_scraping":
		sess.StopScrape()
		c.sendStatus("info", "Scraping stopped by user")
	case "export_advanced":
		s.handleExport(c, cmd)
	case "add_proxy":
		s.handleAddProxy(c, cmd)
	case "test_proxy":
		s.handleTestProxy(c, cmd)
	case "test_all_proxies":
		s.handleTestAllProxies(c)
	case "clear_failed_proxies":
		s.handleClearFailedProxies(c)
	case "import_proxy_list":
		s.handleImportProxyList(c, cmd)
	case "activate_stealth_mode":
		s.handleStealthMode(c, sess, true)
	case "deactivate_stealth_mode":
		s.handleStealthMode(c, sess, false)
	default:
		c.sendError(errors.UnknownAction(cmd.Action).Message)
	}
}

// connSession resolves the connection's established session.
func (s *Server) connSession(c *conn) (*session.AccountSession, bool) {
	phone := c.phoneKey()
	if phone == "" {
		return nil, false
	}
	sess, ok := s.registry.Get(phone)
	return sess, ok
}

func (s *Server) handleLoginPhone(c *conn, cmd command) {
	if cmd.Phone == "" {
		c.sendError("Phone number is required")
		return
	}
	if err := session.ValidatePhone(cmd.Phone); err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}

	sess := s.registry.GetOrCreate(cmd.Phone)
	result, err := sess.SendCode(s.baseCtx)
	if err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}

	c.setPhoneKey(cmd.Phone)
	if result.Restored {
		c.sendStatus("login_success", "Session restored, welcome back")
		return
	}
	c.sendStatus("code_sent", "A verification code has been sent to your Telegram app")
}

func (s *Server) handleLoginCode(c *conn, sess *session.AccountSession, cmd command) {
	if cmd.Phone == "" || cmd.Code == "" {
		c.sendError("Phone number and code are required")
		return
	}

	result, err := sess.VerifyCode(s.baseCtx, cmd.Code)
	if err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}
	if result.NeedsPassword {
		c.sendStatus("password_needed", "Two-factor authentication required")
		return
	}
	c.sendStatus("login_success", "Authentication successful, welcome to tgranger")
}

func (s *Server) handleLoginPassword(c *conn, sess *session.AccountSession, cmd command) {
	if cmd.Password == "" {
		c.sendError("Password is required")
		return
	}

	if err := sess.VerifyPassword(s.baseCtx, cmd.Password); err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}
	c.sendStatus("login_success", "Two-factor authentication successful")
}

func (s *Server) handleSearchGroups(c *conn, sess *session.AccountSession, cmd command) {
	if cmd.Keyword == "" {
		c.sendError("Search keyword is required")
		return
	}

	c.sendStatus("info", fmt.Sprintf("Searching for groups with keyword: %s...", cmd.Keyword))

	groups, err := sess.SearchGroups(s.baseCtx, cmd.Keyword)
	if err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}
	c.send(reply{"status": "groups_found", "groups": groups})
}

func (s *Server) handleStartScraping(c *conn, sess *session.AccountSession, cmd command) {
	cfg := models.ScrapeConfig{
		Mode:           s.cfg.Scraping.Mode,
		RateLimit:      s.cfg.Scraping.RateLimit,
		MaxMembers:     s.cfg.Scraping.MaxMembers,
		BypassPrivacy:  cmd.BypassPrivacy,
		RealTimeExport: cmd.RealTimeExport,
	}
	if cmd.Mode != "" {
		cfg.Mode = models.ScrapeMode(cmd.Mode)
	}
	if cmd.RateLimit != nil {
		cfg.RateLimit = *cmd.RateLimit
	}
	if cmd.MaxMembers != nil {
		cfg.MaxMembers = *cmd.MaxMembers
	}

	groupID := cmd.GroupID
	if groupID == "" {
		groupID = "1001234567890"
	}

	obs := &runObserver{
		server:  s,
		conn:    c,
		groupID: groupID,
	}
	if err := sess.StartScrape(s.baseCtx, groupID, cfg, obs); err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}
	c.sendStatus("info", fmt.Sprintf("Starting %s member scraping...", cfg.Mode))
}

func (s *Server) handleExport(c *conn, cmd command) {
	format, err := export.ParseFormat(cmd.Format)
	if err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}

	var members []models.Member
	if cmd.GroupID != "" {
		members, err = s.store.MembersByGroup(s.baseCtx, cmd.GroupID)
	} else {
		members, err = s.store.AllMembers(s.baseCtx)
	}
	if err != nil {
		s.log.WithError(err).Error("export query failed")
		c.sendError("Export failed: could not load members")
		return
	}

	rows, err := export.Rows(members, cmd.Filters)
	if err != nil {
		c.sendError(errors.ClientMessage(err))
		return
	}

	blob, err := export.Export(rows, format)
	if err != nil {
		s.log.WithError(err).Error("export encoding failed")
		c.sendError("Export failed: could not encode rows")
		return
	}

	c.send(reply{
		"status":   "export_ready",
		"file":     base64.StdEncoding.EncodeToString(blob),
		"fileName": export.FileName(format),
		"format":   string(format),
		"rowCount": len(rows),
	})
}

func (s *Server) handleStealthMode(c *conn, sess *session.AccountSession, activate bool) {
	settings := models.DefaultStealthSettings(sess.Phone())
	if !activate {
		settings.AntiDetection = false
		settings.UserAgentRotation = false
		settings.RandomDelays = false
		settings.RequestThrottling = false
		settings.HeaderSpoofing = false
		settings.StealthLevel = 0
	}
	if err := s.store.UpsertStealthSettings(s.baseCtx, settings); err != nil {
		s.log.WithError(err).Error("stealth settings update failed")
		c.sendError("Failed to update stealth settings")
		return
	}
	if activate {
		c.sendStatus("info", "Stealth mode activated with advanced anti-detection")
		return
	}
	c.sendStatus("info", "Stealth mode deactivated")
}
