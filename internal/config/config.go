// Package config loads typed, validated configuration for the platform.
// Precedence: environment variables > defaults. The teacher's config
// loader layered a TOML file between those two; this service has no
// operator-facing file, so every knob in environment-variable
// table is supplied by the deployment environment instead.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the platform.
type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Graph     GraphConfig
	Pool      PoolConfig
	Exec      ExecConfig
	Cache     CacheConfig
	Breaker   BreakerConfig
	Log       LogConfig
}

// ServerConfig holds server metadata and bind address.
type ServerConfig struct {
	Name       string
	Version    string
	BindAddr   string
	Port       string
	Env        string // "development" relaxes secret-strength checks
	AllowedOrigins string
}

// TransportConfig controls which transports are mounted.
type TransportConfig struct {
	MCPPath string // mount path for the MCP streaming-HTTP endpoint, e.g. "/mcp"
}

// AuthConfig holds token-service configuration.
type AuthConfig struct {
	SigningKey    string
	TokenTTLHours int
}

// RateLimitConfig holds the default, role-independent rate limits.
type RateLimitConfig struct {
	PerMinute int
	PerHour   int
	PerDay    int
	Burst     int
}

// GraphConfig holds graph-database connection details.
type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// PoolConfig tunes the graph driver's connection pool.
type PoolConfig struct {
	Max             int
	AcqTimeoutS     int
	ConnLifetimeS   int
}

// ExecConfig tunes the sandboxed execution engine.
type ExecConfig struct {
	Workers       int
	TimeoutSMax   int
	MemBytes      int64
	OutputBytes   int
}

// CacheConfig tunes the bounded read-through cache.
type CacheConfig struct {
	Capacity int
	TTLS     int
}

// BreakerConfig tunes the read/write circuit breakers.
type BreakerConfig struct {
	ReadF, ReadS, ReadT    int
	WriteF, WriteS, WriteT int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load builds a Config from defaults, then environment variables (which
// always win). There is no file-based layer for this service: every
// setting in environment-variable contract is expected to be
// supplied by the deployment environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:           "ultimatemcp",
			Version:        "0.1.0",
			BindAddr:       "0.0.0.0",
			Port:           "8080",
			Env:            "production",
			AllowedOrigins: "*",
		},
		Transport: TransportConfig{MCPPath: "/mcp"},
		Auth: AuthConfig{
			TokenTTLHours: 24,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			PerHour:   1000,
			PerDay:    10000,
			Burst:     10,
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Database: "neo4j",
		},
		Pool: PoolConfig{
			Max:           0, // 0 means min(2*NumCPU+4, 100), resolved at construction
			AcqTimeoutS:   5,
			ConnLifetimeS: 3600,
		},
		Exec: ExecConfig{
			Workers:     0, // 0 means min(NumCPU, 4)
			TimeoutSMax: 30,
			MemBytes:    256 << 20,
			OutputBytes: 100 << 10,
		},
		Cache: CacheConfig{
			Capacity: 1000,
			TTLS:     60,
		},
		Breaker: BreakerConfig{
			ReadF: 5, ReadS: 2, ReadT: 30,
			WriteF: 3, WriteS: 2, WriteT: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	envOverride("BIND_ADDR", &c.Server.BindAddr)
	envOverride("PORT", &c.Server.Port)
	envOverride("ENV", &c.Server.Env)
	envOverride("ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	envOverride("AUTH_SIGNING_KEY", &c.Auth.SigningKey)
	envOverrideInt("AUTH_TOKEN_TTL_HOURS", &c.Auth.TokenTTLHours)

	envOverrideInt("RATE_LIMIT_PER_MINUTE", &c.RateLimit.PerMinute)
	envOverrideInt("RATE_LIMIT_PER_HOUR", &c.RateLimit.PerHour)
	envOverrideInt("RATE_LIMIT_PER_DAY", &c.RateLimit.PerDay)
	envOverrideInt("RATE_LIMIT_BURST", &c.RateLimit.Burst)

	envOverride("GRAPH_URI", &c.Graph.URI)
	envOverride("GRAPH_USER", &c.Graph.User)
	envOverride("GRAPH_PASSWORD", &c.Graph.Password)
	envOverride("GRAPH_DATABASE", &c.Graph.Database)

	envOverrideInt("POOL_MAX", &c.Pool.Max)
	envOverrideInt("POOL_ACQ_TIMEOUT_S", &c.Pool.AcqTimeoutS)
	envOverrideInt("CONN_LIFETIME_S", &c.Pool.ConnLifetimeS)

	envOverrideInt("EXEC_WORKERS", &c.Exec.Workers)
	envOverrideInt("EXEC_TIMEOUT_S_MAX", &c.Exec.TimeoutSMax)
	envOverrideInt64("EXEC_MEM_BYTES", &c.Exec.MemBytes)
	envOverrideInt("EXEC_OUTPUT_BYTES", &c.Exec.OutputBytes)

	envOverrideInt("CACHE_CAPACITY", &c.Cache.Capacity)
	envOverrideInt("CACHE_TTL_S", &c.Cache.TTLS)

	envOverrideInt("BREAKER_READ_F", &c.Breaker.ReadF)
	envOverrideInt("BREAKER_READ_S", &c.Breaker.ReadS)
	envOverrideInt("BREAKER_READ_T", &c.Breaker.ReadT)
	envOverrideInt("BREAKER_WRITE_F", &c.Breaker.WriteF)
	envOverrideInt("BREAKER_WRITE_S", &c.Breaker.WriteS)
	envOverrideInt("BREAKER_WRITE_T", &c.Breaker.WriteT)

	envOverride("LOG_LEVEL", &c.Log.Level)
	envOverride("LOG_FORMAT", &c.Log.Format)
}

// Validate rejects configuration that must not reach production: a weak
// signing key whenever Env is not "development". This is the fatal
// startup condition of — the process must exit before binding
// a socket.
func (c *Config) Validate() error {
	if strings.EqualFold(c.Server.Env, "development") {
		return nil
	}

	key := c.Auth.SigningKey
	if len(key) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes in non-development environments (got %d)", len(key))
	}
	if isWeakKey(key) {
		return fmt.Errorf("AUTH_SIGNING_KEY is too weak for a non-development environment")
	}
	return nil
}

// isWeakKey flags the well-known bad defaults and all-same-character keys.
func isWeakKey(key string) bool {
	lower := strings.ToLower(key)
	if lower == "change-me" || lower == "changeme" || lower == "secret" {
		return true
	}
	allSame := true
	for i := 1; i < len(key); i++ {
		if key[i] != key[0] {
			allSame = false
			break
		}
	}
	return allSame
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
