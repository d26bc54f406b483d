// Package geoip maps client addresses to ISO country codes for locale
// detection.
package geoip

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned by a Resolver without an open database.
var ErrUnavailable = errors.New("geoip: resolver unavailable")

// CountryResolver is the lookup surface the locale middleware consumes.
type CountryResolver interface {
	CountryCode(addr string) (string, error)
}

// Resolver reads country records from a MaxMind GeoIP2 or GeoLite2 database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the database at path. An empty path disables lookups
// and returns a nil resolver without error.
func NewResolver(path string) (CountryResolver, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode returns the upper-case ISO code for addr, which may carry a
// port. Private, loopback and unspecified addresses resolve to "".
func (r *Resolver) CountryCode(addr string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	ip, err := parseAddr(addr)
	if err != nil {
		return "", err
	}
	if !routable(ip) {
		return "", nil
	}
	record, err := r.reader.Country(ip.AsSlice())
	if err != nil {
		return "", fmt.Errorf("geoip: country %s: %w", ip, err)
	}
	if record == nil {
		return "", nil
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

// Close releases the memory-mapped database.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

func parseAddr(addr string) (netip.Addr, error) {
	addr = strings.TrimSpace(addr)
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap(), nil
	}
	ip, err := netip.ParseAddr(strings.Trim(addr, "[]"))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("geoip: invalid address %q", addr)
	}
	return ip.Unmap(), nil
}

func routable(ip netip.Addr) bool {
	return ip.IsValid() && !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() && !ip.IsLinkLocalUnicast()
}
