package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppPort string

	DBDriver string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	PostgresDSN string
	SQLitePath  string

	// RedisAddr empty runs without cache, idempotency and pub/sub.
	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	JWTSecret     string
	AdminAccounts []string

	PotAccount     string
	MinimumBalance uint64
	PricePair      string

	PaybackInterval time.Duration
	PaybackCaller   string

	EventsChannel string

	LogFormat  string
	ServiceEnv string
	Verbose    bool

	RateLimitRPS float64
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Load reads the environment, after an optional .env in the working
// directory. Malformed numbers keep their defaults; Validate reports the
// rest.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:  getenv("APP_PORT", "8080"),
		DBDriver: strings.ToLower(getenv("DB_DRIVER", DriverMySQL)),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "kidot"),
		MySQLUser: getenv("MYSQL_USER", "kidot"),
		MySQLPass: getenv("MYSQL_PASS", "kidot"),

		PostgresDSN: getenv("POSTGRES_DSN", ""),
		SQLitePath:  getenv("SQLITE_PATH", "kidot.db"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		JWTSecret:     getenv("JWT_SECRET", ""),
		AdminAccounts: splitList(getenv("ADMIN_ACCOUNTS", "")),

		PotAccount:     getenv("POT_ACCOUNT", "kidot-pot"),
		MinimumBalance: 1,
		PricePair:      getenv("PRICE_PAIR", "KSM-USD"),

		PaybackCaller: getenv("PAYBACK_CALLER", ""),
		EventsChannel: getenv("EVENTS_CHANNEL", "kidot:events"),

		LogFormat:  getenv("LOG_FORMAT", "json"),
		ServiceEnv: getenv("SERVICE_ENV", "dev"),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	if v := os.Getenv("MINIMUM_BALANCE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.MinimumBalance = n
		}
	}
	if v := os.Getenv("PAYBACK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PaybackInterval = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("LOG_VERBOSE"); v != "" {
		c.Verbose, _ = strconv.ParseBool(v)
	}
	return c
}

// BindFlags exposes the most used settings as command-line overrides. Flag
// defaults are the already loaded values.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.AppPort, "port", c.AppPort, "HTTP listen port")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "database driver: mysql, postgres or sqlite")
	fs.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "sqlite database file")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis address, empty to disable")
	fs.StringVar(&c.PotAccount, "pot-account", c.PotAccount, "shared pot account")
	fs.StringSliceVar(&c.AdminAccounts, "admin", c.AdminAccounts, "administrator accounts")
	fs.DurationVar(&c.PaybackInterval, "payback-interval", c.PaybackInterval, "periodic payback interval, 0 disables")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: json or text")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "debug logging")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit", c.RateLimitRPS, "requests per second per caller, 0 disables")
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if len(c.AdminAccounts) == 0 {
		return errors.New("missing ADMIN_ACCOUNTS")
	}
	if c.PotAccount == "" {
		return errors.New("missing POT_ACCOUNT")
	}
	if c.PaybackInterval < 0 {
		return errors.New("PAYBACK_INTERVAL must not be negative")
	}
	if c.PaybackInterval > 0 && c.PaybackCaller == "" {
		return errors.New("PAYBACK_CALLER is required when PAYBACK_INTERVAL is set")
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime is needed for DATETIME columns
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverPostgres:
		return c.PostgresDSN
	case DriverSQLite:
		return c.SQLitePath
	default:
		return c.MySQLDSN()
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
