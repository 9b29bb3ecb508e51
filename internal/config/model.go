// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the tree that loader.go builds from
// three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `EYEGONAL_`-prefixed environment overrides – highest precedence.
//
// Any string beginning with `vault:` is resolved through Vault before
// unmarshalling, so the model never stores Vault URIs.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("90s", "15m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import "time"

// HTTP holds web-server tunables.
//
// AllowedOrigins must name at least one origin: an empty list would make
// the CORS layer allow every origin.  TrustedProxies lists the peers (CIDR
// or bare address) whose forwarding headers are believed; when TrustProxy
// is on and the list is empty, loopback and private ranges are trusted.
type HTTP struct {
	ListenAddr     string   `koanf:"listen_addr"     validate:"required,hostname_port"`
	ForceHTTPS     bool     `koanf:"force_https"`
	AllowedOrigins []string `koanf:"allowed_origins" validate:"min=1,dive,required"`
	TrustProxy     bool     `koanf:"trust_proxy"`
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
}

// Database holds the DSN template and its secret.
//
// The template stays in YAML so operators can tweak host, port, or flags.
// The password is normally a `vault:` reference.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
}

// Session configures the back-office cookie.
type Session struct {
	SigningKey string `koanf:"signing_key" validate:"required,min=32"`
	Secure     bool   `koanf:"secure"`
}

// Limit is one rate-limiter profile.
type Limit struct {
	MaxFailures int           `koanf:"max_failures" validate:"gte=0"`
	Lockout     time.Duration `koanf:"lockout"      validate:"gte=0"`
	MaxLockout  time.Duration `koanf:"max_lockout"  validate:"gtefield=Lockout"`
	Expiry      time.Duration `koanf:"expiry"       validate:"gte=0"`
	MaxEntries  int           `koanf:"max_entries"  validate:"gte=0"`
}

// Auth tunes credential verification.
type Auth struct {
	Account          Limit         `koanf:"account"`
	IP               Limit         `koanf:"ip"`
	LastLoginTimeout time.Duration `koanf:"last_login_timeout" validate:"gte=0"`
}

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Geo points at an optional MaxMind country database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Session  Session  `koanf:"session"`
	Auth     Auth     `koanf:"auth"`
	Log      Log      `koanf:"log"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"`
}
