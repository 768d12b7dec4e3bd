package installer

import (
	"context"
	"net"
	"time"

	"univdl/internal/config"
)

// Dial target and timeout for region detection. A host that cannot reach
// Google DNS is assumed to be behind the great firewall.
const (
	regionDialAddr    = "8.8.8.8:53"
	regionVersionTimeout = 2 * time.Second
)

// DialFunc opens a network connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DetectRegion returns global when the dial address is reachable and cn
// otherwise.
func DetectRegion(ctx context.Context, dial DialFunc) string {
	if dial == nil {
		dialer := &net.Dialer{Timeout: regionVersionTimeout}
		dial = dialer.DialContext
	}
	ctx, cancel := context.WithTimeout(ctx, regionVersionTimeout)
	defer cancel()
	conn, err := dial(ctx, "tcp", regionDialAddr)
	if err != nil {
		return config.RegionCN
	}
	_ = conn.Close()
	return config.RegionGlobal
}

// ResolveRegion turns a configured region into global or cn, probing the
// network for auto.
func ResolveRegion(ctx context.Context, configured string, dial DialFunc) string {
	switch configured {
	case config.RegionGlobal, config.RegionCN:
		return configured
	default:
		return DetectRegion(ctx, dial)
	}
}
