// Package geoip maps client addresses to ISO country codes for locale
// fallback.
package geoip

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var ErrUnavailable = errors.New("geoip: resolver unavailable")

// maxCached bounds the per-address cache. It is cleared wholesale when full.
const maxCached = 4096

// Resolver answers country lookups from a MaxMind GeoIP2 or GeoLite2
// database. Private, loopback and link-local addresses resolve to "" without
// touching the database.
type Resolver struct {
	country func(net.IP) (string, error)
	closer  io.Closer

	mu    sync.Mutex
	cache map[netip.Addr]string
}

// NewResolver opens the database at path. An empty path yields a nil Resolver
// and no error.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return newResolver(func(ip net.IP) (string, error) {
		rec, err := db.Country(ip)
		if err != nil {
			return "", err
		}
		return rec.Country.IsoCode, nil
	}, db), nil
}

func newResolver(country func(net.IP) (string, error), closer io.Closer) *Resolver {
	return &Resolver{country: country, closer: closer, cache: make(map[netip.Addr]string)}
}

// CountryCode returns the ISO code for ip, "" when the database has none.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.country == nil {
		return "", ErrUnavailable
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return "", nil
	}

	r.mu.Lock()
	code, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		return code, nil
	}

	code, err = r.country(net.IP(addr.AsSlice()))
	if err != nil {
		return "", fmt.Errorf("geoip: lookup %s: %w", addr, err)
	}
	r.mu.Lock()
	if len(r.cache) >= maxCached {
		clear(r.cache)
	}
	r.cache[addr] = code
	r.mu.Unlock()
	return code, nil
}

// Lookup adapts r to a plain function. It is nil for a nil Resolver so the
// caller can skip GeoIP entirely.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil {
		return nil
	}
	return r.CountryCode
}

func (r *Resolver) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
