package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	RouteFile    string
	DatabaseURL  string
	DatabaseName string
	RouteID      string
	VehicleID    string

	SessionID       string
	TickInterval    time.Duration
	SpeedMultiplier float64
	Autoplay        bool
	ExitOnFinish    bool

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	RedisAddr string
	RedisTTL  time.Duration

	MetricsAddr string
	TraceFile   string
}

// UsesDatabase reports whether the route comes from Postgres rather than a file.
func (c *Config) UsesDatabase() bool { return c.RouteFile == "" }

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.RouteFile = strings.TrimSpace(os.Getenv("ROUTE_FILE"))
	cfg.RouteID = strings.TrimSpace(os.Getenv("ROUTE_ID"))
	cfg.VehicleID = strings.TrimSpace(os.Getenv("VEHICLE_ID"))
	cfg.DatabaseName = strings.TrimSpace(os.Getenv("ROUTE_DB_NAME"))

	if cfg.RouteFile == "" {
		if cfg.RouteID == "" && cfg.VehicleID == "" {
			return nil, errors.New("ROUTE_FILE, ROUTE_ID or VEHICLE_ID must be set")
		}
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	cfg.SessionID = firstNonEmpty(os.Getenv("SESSION_ID"), uuid.NewString())

	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = 50 * time.Millisecond
	}

	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 1.0
	}

	cfg.Autoplay = parseBool(os.Getenv("AUTOPLAY"), true)
	cfg.ExitOnFinish = parseBool(os.Getenv("EXIT_ON_FINISH"), false)

	// Empty NATS_URL disables publishing and remote control.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "playback")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"), false)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if v := os.Getenv("REDIS_TTL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid REDIS_TTL_SEC: %q", v)
		}
		cfg.RedisTTL = time.Duration(sec) * time.Second
	} else {
		cfg.RedisTTL = time.Hour
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.TraceFile = os.Getenv("TRACE_FILE")

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set when no ROUTE_FILE is given")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
