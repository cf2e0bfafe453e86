package tunnel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gallery/internal/models"
	"gallery/internal/utils"
)

const (
	mappingLifetime = time.Hour
	mappingRefresh  = 30 * time.Minute
)

// PortMapper maps a local TCP port on the router.
type PortMapper interface {
	Map(ctx context.Context, port int) (host string, externalPort int, err error)
	Unmap(ctx context.Context, port int) error
}

// natMapper maps ports through UPnP/NAT-PMP gateway discovery.
type natMapper struct{}

func (natMapper) Map(ctx context.Context, port int) (string, int, error) {
	ext, err := utils.AddOrRefreshMapping(ctx, "tcp", port, "media gallery", mappingLifetime)
	if err != nil {
		return "", 0, fmt.Errorf("router port mapping failed: %w", err)
	}
	if ext == 0 {
		return "", 0, errors.New("no UPnP or NAT-PMP gateway found")
	}
	ip, err := utils.GetExternalIP(ctx)
	if err != nil || ip == nil {
		_ = utils.DeleteMapping(ctx, "tcp", port)
		if err == nil {
			err = errors.New("gateway did not report an external address")
		}
		return "", 0, fmt.Errorf("external address lookup failed: %w", err)
	}
	return ip.String(), ext, nil
}

func (natMapper) Unmap(ctx context.Context, port int) error {
	return utils.DeleteMapping(ctx, "tcp", port)
}

// upnpTunnel is an active router port mapping, refreshed before its lease ends.
type upnpTunnel struct {
	mapper  PortMapper
	port    int
	url     string
	started time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (m *Manager) startUPnP(ctx context.Context, port int) (active, error) {
	mapCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	host, ext, err := m.Mapper.Map(mapCtx, port)
	if err != nil {
		return nil, err
	}
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	t := &upnpTunnel{
		mapper:  m.Mapper,
		port:    port,
		url:     fmt.Sprintf("http://%s:%d", host, ext),
		started: time.Now().UTC(),
		cancel:  stopRefresh,
		done:    make(chan struct{}),
	}
	go t.refresh(refreshCtx, m)
	return t, nil
}

func (t *upnpTunnel) refresh(ctx context.Context, m *Manager) {
	defer close(t.done)
	ticker := time.NewTicker(mappingRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			_, _, err := t.mapper.Map(c, t.port)
			cancel()
			if err != nil {
				m.logf("UPnP mapping refresh failed for port %d: %v", t.port, err)
			}
		}
	}
}

func (t *upnpTunnel) status() models.TunnelStatus {
	started := t.started
	return models.TunnelStatus{
		Status:    models.TunnelStatusRunning,
		Provider:  models.TunnelProviderUPnP,
		URL:       t.url,
		LocalPort: t.port,
		StartedAt: &started,
	}
}

func (t *upnpTunnel) alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *upnpTunnel) stop(ctx context.Context) error {
	var err error
	t.once.Do(func() {
		t.cancel()
		<-t.done
		c, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		err = t.mapper.Unmap(c, t.port)
	})
	return err
}
