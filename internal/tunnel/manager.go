// Package tunnel exposes the gallery on a public URL. Cloudflare quick
// tunnels and Pinggy run as child processes whose output is scanned for the
// public URL; the UPnP provider maps a port on the local router instead.
// At most one tunnel is active at a time.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gallery/internal/models"
	"gallery/internal/utils"
)

var (
	ErrNoProvider   = errors.New("No tunnel provider specified.")
	ErrInvalidPort  = errors.New("Invalid port number provided.")
	ErrNoExecutable = errors.New("cloudflared executable not found.")
	ErrNoToken      = errors.New("Pinggy access token not provided or configured.")
	ErrUnsupported  = errors.New("Unsupported tunnel provider")
)

// Request describes a tunnel start request after defaults were applied.
type Request struct {
	Provider string
	Port     int
	Token    string
}

// Validate checks the request the way the start endpoint reports errors.
func (r Request) Validate() error {
	p := strings.TrimSpace(r.Provider)
	if p == "" || p == models.TunnelProviderNone {
		return ErrNoProvider
	}
	switch p {
	case models.TunnelProviderCloudflare, models.TunnelProviderPinggy, models.TunnelProviderUPnP:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, p)
	}
	if r.Port < 1 || r.Port > 65535 {
		return ErrInvalidPort
	}
	if p == models.TunnelProviderPinggy && strings.TrimSpace(r.Token) == "" {
		return ErrNoToken
	}
	return nil
}

// active is a running tunnel of any provider.
type active interface {
	status() models.TunnelStatus
	alive() bool
	stop(ctx context.Context) error
}

// Manager owns the single active tunnel.
type Manager struct {
	log     *utils.Logger
	logPath string

	// startMu serializes Start and Stop so a tunnel is never spawned while
	// another one is still coming up.
	startMu sync.Mutex

	mu      sync.Mutex
	current active
	notify  func(models.TunnelStatus)

	// FindCloudflared locates the cloudflared binary; "" means not installed.
	FindCloudflared func() string
	// FindSSH locates the ssh client used by Pinggy.
	FindSSH func() (string, error)
	// Mapper performs UPnP port mappings.
	Mapper PortMapper
	// StartGrace is how long a new process is watched for an early exit
	// or its public URL before the start call returns.
	StartGrace time.Duration
}

// NewManager creates a manager. Tunnel process output is appended to logPath.
func NewManager(logger *utils.Logger, logPath string) *Manager {
	return &Manager{
		log:             logger,
		logPath:         logPath,
		FindCloudflared: FindCloudflared,
		FindSSH:         findSSH,
		Mapper:          natMapper{},
		StartGrace:      3 * time.Second,
	}
}

// OnStatus registers a callback for tunnel status changes.
func (m *Manager) OnStatus(fn func(models.TunnelStatus)) {
	m.mu.Lock()
	m.notify = fn
	m.mu.Unlock()
}

func (m *Manager) logf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Write(fmt.Sprintf(format, args...))
	}
}

func (m *Manager) publish(st models.TunnelStatus) {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Start validates req, stops any active tunnel and starts a new one.
// Validation problems are returned as errors; a provider that fails to come
// up yields a result with status "error".
func (m *Manager) Start(ctx context.Context, req Request) (models.TunnelResult, error) {
	if err := req.Validate(); err != nil {
		return models.TunnelResult{}, err
	}
	provider := strings.TrimSpace(req.Provider)

	m.startMu.Lock()
	defer m.startMu.Unlock()

	var exe string
	switch provider {
	case models.TunnelProviderCloudflare:
		if exe = m.FindCloudflared(); exe == "" {
			return models.TunnelResult{}, ErrNoExecutable
		}
	case models.TunnelProviderPinggy:
		path, err := m.FindSSH()
		if err != nil {
			return failure(provider, "ssh executable not found; Pinggy requires an OpenSSH client."), nil
		}
		exe = path
	}

	if _, err := m.stopCurrent(ctx); err != nil {
		m.logf("Stopping previous tunnel failed: %v", err)
	}

	var (
		t   active
		err error
	)
	switch provider {
	case models.TunnelProviderCloudflare:
		t, err = m.startProcess(provider, req.Port, exe, cloudflareArgs(req.Port), cloudflareURL)
	case models.TunnelProviderPinggy:
		t, err = m.startProcess(provider, req.Port, exe, pinggyArgs(req.Port, req.Token), pinggyURL)
	case models.TunnelProviderUPnP:
		t, err = m.startUPnP(ctx, req.Port)
	}
	if err != nil {
		m.logf("Tunnel %s failed to start: %v", provider, err)
		return failure(provider, err.Error()), nil
	}

	m.mu.Lock()
	m.current = t
	m.mu.Unlock()

	st := t.status()
	m.publish(st)
	msg := fmt.Sprintf("%s tunnel started.", providerLabel(provider))
	if st.URL != "" {
		msg = fmt.Sprintf("%s tunnel started at %s", providerLabel(provider), st.URL)
	} else if provider != models.TunnelProviderUPnP {
		msg = fmt.Sprintf("%s tunnel starting. The public URL will appear shortly.", providerLabel(provider))
	}
	m.logf("%s", msg)
	return models.TunnelResult{Status: "success", Message: msg, Provider: provider}, nil
}

// Stop terminates the active tunnel, if any. A start in progress finishes
// first and is then stopped.
func (m *Manager) Stop(ctx context.Context) (models.TunnelResult, error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	return m.stopCurrent(ctx)
}

func (m *Manager) stopCurrent(ctx context.Context) (models.TunnelResult, error) {
	m.mu.Lock()
	t := m.current
	m.current = nil
	m.mu.Unlock()
	if t == nil {
		return models.TunnelResult{Status: "success", Message: "No active tunnel to stop."}, nil
	}
	provider := t.status().Provider
	if err := t.stop(ctx); err != nil {
		return failure(provider, fmt.Sprintf("Failed to stop %s tunnel: %v", providerLabel(provider), err)), err
	}
	m.logf("Tunnel %s stopped", provider)
	m.publish(models.TunnelStatus{Status: models.TunnelStatusStopped, Provider: provider, Message: "Tunnel stopped."})
	return models.TunnelResult{Status: "success", Message: fmt.Sprintf("%s tunnel stopped.", providerLabel(provider)), Provider: provider}, nil
}

// Status reports the active tunnel. A tunnel whose process died is cleared.
func (m *Manager) Status() models.TunnelStatus {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t == nil {
		return models.TunnelStatus{Status: models.TunnelStatusStopped, Provider: models.TunnelProviderNone}
	}
	if !t.alive() {
		st := t.status()
		m.mu.Lock()
		if m.current == t {
			m.current = nil
		}
		m.mu.Unlock()
		return models.TunnelStatus{
			Status:   models.TunnelStatusStopped,
			Provider: st.Provider,
			Message:  "Tunnel process exited.",
		}
	}
	return t.status()
}

// Shutdown stops the active tunnel during server shutdown.
func (m *Manager) Shutdown(ctx context.Context) {
	if _, err := m.Stop(ctx); err != nil {
		m.logf("Tunnel shutdown error: %v", err)
	}
}

func failure(provider, msg string) models.TunnelResult {
	return models.TunnelResult{Status: "error", Message: msg, Provider: provider}
}

func providerLabel(provider string) string {
	switch provider {
	case models.TunnelProviderCloudflare:
		return "Cloudflare"
	case models.TunnelProviderPinggy:
		return "Pinggy"
	case models.TunnelProviderUPnP:
		return "UPnP"
	default:
		return provider
	}
}
