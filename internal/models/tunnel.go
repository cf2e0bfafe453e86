package models

import "time"

// Tunnel providers.
const (
	TunnelProviderNone       = "none"
	TunnelProviderCloudflare = "cloudflare"
	TunnelProviderPinggy     = "pinggy"
	TunnelProviderUPnP       = "upnp"
)

// Tunnel states.
const (
	TunnelStatusRunning = "running"
	TunnelStatusStopped = "stopped"
)

// TunnelStatus is the externally visible state of the active tunnel.
type TunnelStatus struct {
	Status    string     `json:"status"`
	Provider  string     `json:"provider,omitempty"`
	URL       string     `json:"url,omitempty"`
	LocalPort int        `json:"local_port,omitempty"`
	Message   string     `json:"message,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// TunnelResult is the outcome of a start/stop request.
type TunnelResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}
