package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gallery/internal/config"
	"gallery/internal/tunnel"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// TunnelHandlers exposes the tunnel manager.
type TunnelHandlers struct {
	tunnels *tunnel.Manager
	config  *config.Store
	log     *utils.Logger
}

func NewTunnelHandlers(tunnels *tunnel.Manager, cfg *config.Store, logger *utils.Logger) *TunnelHandlers {
	return &TunnelHandlers{tunnels: tunnels, config: cfg, log: logger}
}

func (h *TunnelHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

type tunnelStartRequest struct {
	Provider    string `json:"provider"`
	LocalPort   json.RawMessage `json:"local_port"`
	PinggyToken string          `json:"pinggy_token"`
}

// parsePort accepts an integral JSON number or a numeric string.
func parsePort(raw json.RawMessage) (int, error) {
	var n json.Number
	var s string
	switch {
	case json.Unmarshal(raw, &n) == nil:
		if v, err := strconv.Atoi(n.String()); err == nil {
			return v, nil
		}
	case json.Unmarshal(raw, &s) == nil:
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v, nil
		}
	}
	return 0, tunnel.ErrInvalidPort
}

func tunnelError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"status": "error", "message": msg})
}

// StartTunnel starts a tunnel for the requested provider. local_port and
// pinggy_token fall back to the configured values.
func (h *TunnelHandlers) StartTunnel(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		tunnelError(c, http.StatusBadRequest, "Request body is missing.")
		return
	}
	var body tunnelStartRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		tunnelError(c, http.StatusBadRequest, "Request body is missing.")
		return
	}

	settings := h.config.Settings()
	req := tunnel.Request{
		Provider: strings.ToLower(strings.TrimSpace(body.Provider)),
		Port:     settings.TunnelLocalPort,
		Token:    strings.TrimSpace(body.PinggyToken),
	}
	if len(body.LocalPort) > 0 && string(body.LocalPort) != "null" {
		port, err := parsePort(body.LocalPort)
		if err != nil {
			tunnelError(c, http.StatusBadRequest, err.Error())
			return
		}
		req.Port = port
	}
	if req.Token == "" {
		req.Token = settings.PinggyAccessToken
	}

	result, err := h.tunnels.Start(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, tunnel.ErrNoExecutable) {
			status = http.StatusInternalServerError
		}
		h.logf("Tunnel start rejected: %v", err)
		tunnelError(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// StopTunnel stops the active tunnel.
func (h *TunnelHandlers) StopTunnel(c *gin.Context) {
	result, err := h.tunnels.Stop(c.Request.Context())
	if err != nil {
		h.logf("Tunnel stop failed: %v", err)
	}
	c.JSON(http.StatusOK, result)
}

// TunnelStatus reports the active tunnel.
func (h *TunnelHandlers) TunnelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tunnels.Status())
}
