package gateway

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"tgranger/pkg/models"
)

// probeProxy runs the simulated reachability check. Real deployments swap
// this for a dialer probe; the contract is latency plus a pass/fail flag.
func probeProxy(p models.ProxyConfig) (latencyMS int, ok bool) {
	latencyMS = 20 + rand.Intn(280)
	ok = rand.Float64() > 0.2
	return latencyMS, ok
}

func (s *Server) handleAddProxy(c *conn, cmd command) {
	if cmd.Proxy == nil || cmd.Proxy.Host == "" || cmd.Proxy.Port <= 0 {
		c.sendError("Proxy host and port are required")
		return
	}

	proxy := models.ProxyConfig{
		Host:     cmd.Proxy.Host,
		Port:     cmd.Proxy.Port,
		Type:     cmd.Proxy.Type,
		Username: cmd.Proxy.Username,
		Password: cmd.Proxy.Password,
		Country:  cmd.Proxy.Country,
	}
	if proxy.Type == "" {
		proxy.Type = "socks5"
	}
	if err := s.store.InsertProxy(s.baseCtx, &proxy); err != nil {
		s.log.WithError(err).Error("proxy insert failed")
		c.sendError("Failed to store proxy")
		return
	}
	c.sendStatus("info", fmt.Sprintf("Proxy %s:%d added successfully", proxy.Host, proxy.Port))
}

func (s *Server) handleTestProxy(c *conn, cmd command) {
	if cmd.ProxyID <= 0 {
		c.sendError("proxyId is required")
		return
	}

	latency, ok := probeProxy(models.ProxyConfig{ID: cmd.ProxyID})
	if err := s.store.UpdateProxyStatus(s.baseCtx, cmd.ProxyID, ok, latency); err != nil {
		s.log.WithError(err).Error("proxy status update failed")
		c.sendError("Failed to update proxy status")
		return
	}
	if ok {
		c.sendStatus("info", fmt.Sprintf("Proxy %d responded in %dms", cmd.ProxyID, latency))
		return
	}
	c.sendStatus("info", fmt.Sprintf("Proxy %d failed its connectivity test", cmd.ProxyID))
}

func (s *Server) handleTestAllProxies(c *conn) {
	proxies, err := s.store.ListProxies(s.baseCtx)
	if err != nil {
		s.log.WithError(err).Error("proxy list failed")
		c.sendError("Failed to load proxies")
		return
	}

	passed := 0
	for _, p := range proxies {
		latency, ok := probeProxy(p)
		if err := s.store.UpdateProxyStatus(s.baseCtx, p.ID, ok, latency); err != nil {
			s.log.WithError(err).WithField("proxy_id", p.ID).Error("proxy status update failed")
			continue
		}
		if ok {
			passed++
		}
	}
	c.sendStatus("info", fmt.Sprintf("Tested %d proxies, %d passed", len(proxies), passed))
}

func (s *Server) handleClearFailedProxies(c *conn) {
	deleted, err := s.store.DeleteFailedProxies(s.baseCtx)
	if err != nil {
		s.log.WithError(err).Error("failed-proxy purge failed")
		c.sendError("Failed to clear proxies")
		return
	}
	c.sendStatus("info", fmt.Sprintf("Cleared %d failed proxy configurations", deleted))
}

// handleImportProxyList parses newline-separated host:port[:user:pass]
// entries and stores each.
func (s *Server) handleImportProxyList(c *conn, cmd command) {
	if strings.TrimSpace(cmd.ProxyList) == "" {
		c.sendError("proxy_list is required")
		return
	}

	imported := 0
	for _, line := range strings.Split(cmd.ProxyList, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		proxy, ok := parseProxyLine(line)
		if !ok {
			continue
		}
		if err := s.store.InsertProxy(s.baseCtx, &proxy); err != nil {
			s.log.WithError(err).WithField("line", line).Warn("proxy import insert failed")
			continue
		}
		imported++
	}
	c.sendStatus("info", fmt.Sprintf("Imported %d proxies", imported))
}

func parseProxyLine(line string) (models.ProxyConfig, bool) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return models.ProxyConfig{}, false
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port <= 0 || port > 65535 {
		return models.ProxyConfig{}, false
	}

	proxy := models.ProxyConfig{
		Host: parts[0],
		Port: port,
		Type: "socks5",
	}
	if len(parts) == 4 {
		proxy.Username = parts[2]
		proxy.Password = parts[3]
	}
	return proxy, true
}
