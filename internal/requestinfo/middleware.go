// internal/requestinfo/middleware.go
//
// HTTP middleware that attaches *Info to each request.
//
/*
Context
--------
Sits right after panic recovery and before the verify endpoint.  For every
request it:

  1. Resolves the client IP.  Forwarding headers are honoured only when
     the socket peer is a trusted proxy.  X-Forwarded-For is walked from
     the right and the first hop outside the trusted set wins, so a value
     the client wrote itself never becomes the rate-limit key.
  2. Parses the User-Agent header.
  3. Looks up the country when a Geo database is loaded.

Notes
-----
  • Look-ups are read-only, so the middleware is safe under concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Proxies is the set of peers whose forwarding headers are believed.
type Proxies []*net.IPNet

// DefaultProxies covers loopback and private ranges.  It is used when
// trust_proxy is on and no explicit CIDR list is configured.
var DefaultProxies = MustParseProxies(
	"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"::1/128", "fc00::/7",
)

// ParseProxies parses a list of CIDRs.  A bare address is read as a
// single-host network.
func ParseProxies(cidrs ...string) (Proxies, error) {
	out := make(Proxies, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if !strings.Contains(c, "/") {
			ip := net.ParseIP(c)
			if ip == nil {
				return nil, fmt.Errorf("requestinfo: bad proxy address %q", c)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("requestinfo: bad proxy cidr %q: %w", c, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MustParseProxies is ParseProxies for static lists.
func MustParseProxies(cidrs ...string) Proxies {
	p, err := ParseProxies(cidrs...)
	if err != nil {
		panic(err)
	}
	return p
}

// Contains reports whether ip belongs to a trusted network.
func (p Proxies) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range p {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Enrich returns middleware storing *Info in the request context.  A nil
// proxy set ignores forwarding headers entirely.
func Enrich(proxies Proxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, proxies)
			info := &Info{
				IP:        ip,
				Country:   lookupCountry(ip),
				UA:        parseUA(r.UserAgent()),
				Timestamp: time.Now().UTC(),
			}

			zap.S().Debugw("request info",
				"ip", info.IPString(),
				"country", info.Country,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

// clientIP returns the socket peer unless that peer is a trusted proxy.
// Behind one, X-Forwarded-For is read right to left and the first entry
// outside the trusted set is the client.  When every hop is trusted the
// left-most one is used; X-Real-Ip is consulted only without XFF.
func clientIP(r *http.Request, proxies Proxies) net.IP {
	peer := remoteIP(r)
	if !proxies.Contains(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var last net.IP
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				// An unparsable hop ends the chain we can vouch for.
				break
			}
			if !proxies.Contains(ip) {
				return ip
			}
			last = ip
		}
		if last != nil {
			return last
		}
		return peer
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}

func remoteIP(r *http.Request) net.IP {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
