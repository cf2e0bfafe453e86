package utils

import (
	"context"
	"net"
	"sync"
	"time"

	natlib "github.com/libp2p/go-nat"
)

// NAT is an alias to the libp2p NAT interface so callers do not import it directly.
type NAT = natlib.NAT

var (
	natMu        sync.Mutex
	cachedNAT    NAT
	cachedNATErr error
	natResolved  bool
)

// DiscoverNAT locates a NAT gateway using UPnP or NAT-PMP. A successful
// result is cached for the process lifetime; failures are retried on the
// next call since the router may come back.
func DiscoverNAT(ctx context.Context) (NAT, error) {
	natMu.Lock()
	defer natMu.Unlock()
	if natResolved && cachedNATErr == nil {
		return cachedNAT, nil
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cachedNAT, cachedNATErr = natlib.DiscoverGateway(c)
	natResolved = true
	return cachedNAT, cachedNATErr
}

// GetExternalIP returns the external IP address from the discovered NAT device.
func GetExternalIP(ctx context.Context) (net.IP, error) {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return nil, err
	}
	return n.GetExternalAddress()
}

// AddOrRefreshMapping ensures a port mapping exists for the given internal port/protocol.
// Returns the external port assigned by the gateway, which can differ from the internal port.
func AddOrRefreshMapping(ctx context.Context, protocol string, internalPort int, description string, lifetime time.Duration) (int, error) {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return 0, err
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.AddPortMapping(c, protocol, internalPort, description, lifetime)
}

// DeleteMapping removes a port mapping for the given internal port/protocol.
func DeleteMapping(ctx context.Context, protocol string, internalPort int) error {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.DeletePortMapping(c, protocol, internalPort)
}
