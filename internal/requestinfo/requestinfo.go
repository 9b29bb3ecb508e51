//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata for sign-in audit logs and rate-limit keys: client
//  IP, user-agent fingerprint, and an optional country hint.  The structs are
//  inert and safe to log.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind country lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Browser string
	Version string
	OS      string
	Device  string // Desktop, Mobile, Tablet, or Other
	IsBot   bool
}

// Info is attached to the request context by Enrich.
type Info struct {
	IP        net.IP
	Country   string // ISO code; empty without a Geo database
	UA        UA
	Timestamp time.Time
}

// IPString returns the client IP or "" when unknown.
func (i *Info) IPString() string {
	if i == nil || i.IP == nil {
		return ""
	}
	return i.IP.String()
}

type ctxKey struct{}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// WithInfo stores info on ctx.  Enrich is the normal caller.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

/*──────────────────────────── GeoIP ────────────────────────────────────────*/

var geoReader atomic.Pointer[geoip2.Reader]

// OpenGeo loads a GeoLite2 Country (or City) database.  An empty path is a
// no-op; lookups then return "".  Close the returned func at shutdown.
func OpenGeo(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geo db: %w", err)
	}
	geoReader.Store(r)
	return func() error {
		geoReader.Store(nil)
		return r.Close()
	}, nil
}

func lookupCountry(ip net.IP) string {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return ""
	}
	rec, err := r.Country(ip)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}

/*──────────────────────────── UA ───────────────────────────────────────────*/

func parseUA(raw string) UA {
	ua := surfer.Parse(raw)
	out := UA{
		Browser: ua.Browser.Name.StringTrimPrefix(),
		Version: versionToString(ua.Browser.Version),
		OS:      ua.OS.Name.StringTrimPrefix(),
		IsBot:   ua.IsBot(),
	}
	switch ua.DeviceType {
	case surfer.DeviceComputer:
		out.Device = "Desktop"
	case surfer.DeviceTablet:
		out.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionToString trims trailing zeros: 17.0.0 → "17", 17.3.0 → "17.3".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
