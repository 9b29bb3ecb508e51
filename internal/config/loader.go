// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env`.
  2. `<root>/conf/global.yaml`.
  3. Environment variables prefixed `EYEGONAL_`, where `__` maps to "."
     (e.g., `EYEGONAL_HTTP__LISTEN_ADDR → http.listen_addr`).

String leaves starting with `vault:` are then resolved through the supplied
vault.Getter.  The tree is unmarshalled, defaulted, validated, and cached in
an `atomic.Pointer` for lock-free reads.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`, so
    `go run ./cmd/web` works from any sub-directory.
  • Logs use `zap.S()` so early boot issues surface on the bootstrap logger.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/vault"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "EYEGONAL_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root and calls LoadFrom.
func Load(ctx context.Context, g vault.Getter) (*Config, error) {
	return LoadFrom(ctx, rootDir(), g)
}

// LoadFrom reads .env, YAML, and env overrides under root, resolves Vault
// references, validates, and caches the result.
func LoadFrom(ctx context.Context, root string, g vault.Getter) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, g); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"origins", len(cfg.HTTP.AllowedOrigins),
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

func resolveSecrets(ctx context.Context, k *koanf.Koanf, g vault.Getter) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !vault.IsReference(s) {
			continue
		}
		plain, err := vault.Resolve(ctx, g, s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, plain); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.Paths.Root, "logs")
	}
	if c.Auth.Account == (Limit{}) {
		c.Auth.Account = Limit{MaxFailures: 5, Lockout: time.Minute, MaxLockout: 15 * time.Minute, Expiry: time.Hour}
	}
	if c.Auth.IP == (Limit{}) {
		c.Auth.IP = Limit{MaxFailures: 20, Lockout: time.Minute, MaxLockout: 30 * time.Minute, Expiry: time.Hour}
	}
	if c.Auth.LastLoginTimeout == 0 {
		c.Auth.LastLoginTimeout = 3 * time.Second
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
