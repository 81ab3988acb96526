package database

import (
	"context"
	"fmt"
	stdlog "log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavel19a/serverless-lab-render/pkg/log"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	// StrategyURL hands the URL to the driver unchanged.
	StrategyURL = "url"
	// StrategyFields decomposes the URL into user, password, host, port and
	// database name before connecting.
	StrategyFields = "fields"
)

// legacySchemePrefix is the scheme some hosting providers still hand out.
const legacySchemePrefix = "postgres://"

// Config holds database configuration.
// URL is the only required value; the discrete fields are filled by Resolve.
type Config struct {
	URL      string `mapstructure:"url"`
	Strategy string `mapstructure:"strategy"` // url, fields
	LogLevel string `mapstructure:"log_level"`

	Driver   string // postgres, mysql, sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string     // postgres only
	Params   url.Values // postgres only, query parameters other than sslmode
	FilePath string     // sqlite only
}

// Configured reports whether a connection URL was supplied.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.URL) != ""
}

// NormalizeURL rewrites the legacy postgres:// scheme to postgresql://.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, legacySchemePrefix) {
		return "postgresql://" + strings.TrimPrefix(raw, legacySchemePrefix)
	}
	return raw
}

// Resolve returns a copy of the config with Driver and the discrete
// connection fields decoded from URL.
func (c Config) Resolve() (Config, error) {
	out := c
	if out.Strategy == "" {
		out.Strategy = StrategyURL
	}
	if out.Strategy != StrategyURL && out.Strategy != StrategyFields {
		return out, fmt.Errorf("unsupported connection strategy: %s", out.Strategy)
	}

	raw := NormalizeURL(c.URL)
	if raw == "" {
		return out, ErrNotConfigured
	}

	if strings.HasPrefix(raw, "file:") {
		out.Driver = DriverSQLite
		out.FilePath = raw
		return out, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return out, fmt.Errorf("malformed database url: %w", err)
	}

	switch u.Scheme {
	case "postgresql":
		out.Driver = DriverPostgres
		out.Port = 5432
		q := u.Query()
		out.SSLMode = q.Get("sslmode")
		if out.SSLMode == "" {
			out.SSLMode = "prefer"
		}
		q.Del("sslmode")
		if len(q) > 0 {
			out.Params = q
		}
	case "mysql":
		out.Driver = DriverMySQL
		out.Port = 3306
	case "sqlite", "sqlite3":
		out.Driver = DriverSQLite
		out.FilePath = u.Host + u.Path
		if out.FilePath == "" {
			return out, fmt.Errorf("malformed database url: sqlite url has no file path")
		}
		return out, nil
	default:
		return out, fmt.Errorf("unsupported database url scheme: %q", u.Scheme)
	}

	out.Host = u.Hostname()
	if out.Host == "" {
		return out, fmt.Errorf("malformed database url: missing host")
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("malformed database url: bad port %q", p)
		}
		out.Port = port
	}
	if u.User != nil {
		out.User = u.User.Username()
		out.Password, _ = u.User.Password()
	}
	out.DBName = strings.TrimPrefix(u.Path, "/")

	return out, nil
}

// DSN renders the connection string handed to the driver.
func (c Config) DSN() (string, error) {
	r, err := c.Resolve()
	if err != nil {
		return "", err
	}

	switch r.Driver {
	case DriverPostgres:
		if r.Strategy == StrategyURL {
			// pgx accepts both postgres:// and postgresql:// URLs as-is.
			return strings.TrimSpace(r.URL), nil
		}
		parts := []string{
			kv("host", r.Host),
			kv("port", strconv.Itoa(r.Port)),
			kv("user", r.User),
			kv("password", r.Password),
			kv("dbname", r.DBName),
			kv("sslmode", r.SSLMode),
		}
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, kv(k, r.Params.Get(k)))
		}
		return strings.Join(parts, " "), nil

	case DriverMySQL:
		// The MySQL driver has no URL form, so both strategies decompose.
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			r.User, r.Password, r.Host, r.Port, r.DBName,
		), nil

	case DriverSQLite:
		return r.FilePath, nil

	default:
		return "", fmt.Errorf("unsupported database driver: %s", r.Driver)
	}
}

// kv renders one libpq key/value pair, quoting when required.
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return key + "='" + value + "'"
}

// New opens a GORM connection for cfg and verifies it with a ping bound to ctx.
// The underlying pool is capped at one connection.
func New(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	dsn, err := resolved.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch resolved.Driver {
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{
			DSN:                       dsn,
			SkipInitializeWithVersion: true,
		})
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", resolved.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newGormLogger(cfg.LogLevel),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newGormLogger routes GORM's statement log into the global zerolog logger.
func newGormLogger(level string) logger.Interface {
	zl := log.L().With().Str("source", "gorm").Logger()
	return logger.New(stdlog.New(zl, "", 0), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  parseGormLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

func parseGormLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
