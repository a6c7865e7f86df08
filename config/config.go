// Package config reads the client configuration from the environment.
package config

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	envAPIURL        = "TASKBOARD_API_URL"
	envPushURL       = "TASKBOARD_PUSH_URL"
	envPushTransport = "PUSH_TRANSPORT"
	envRedis         = "REDIS_CONNECTION_STRING"
	envCacheTTL      = "CACHE_TTL"
	envSessionFile   = "TASKBOARD_SESSION_FILE"
	envJWKSURL       = "JWKS_URL"
	envAudience      = "AUTH_AUDIENCE"
	envIssuer        = "AUTH_ISSUER"
	envTokenSecret   = "LOCAL_AUTH_SHARED_SECRET"
	envHTTPTimeout   = "HTTP_TIMEOUT"
	envViewAddr      = "VIEW_ADDR"
	envViewToken     = "VIEW_TOKEN"
	envLoopBuffer    = "VIEW_LOOP_BUFFER"
	envDebug         = "DEBUG"

	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

// Config holds every runtime setting of the client.
type Config struct {
	APIURL        string
	PushURL       string
	PushTransport string
	RedisConn     string
	CacheTTL      time.Duration
	SessionFile   string
	JWKSURL       string
	Audience      string
	Issuer        string
	TokenSecret   string
	HTTPTimeout   time.Duration
	ViewAddr      string
	ViewToken     string
	LoopBuffer    int
	Debug         bool
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		APIURL:        strings.TrimRight(envStr(envAPIURL, "http://localhost:3000"), "/"),
		PushTransport: strings.ToLower(envStr(envPushTransport, TransportWebSocket)),
		RedisConn:     os.Getenv(envRedis),
		SessionFile:   os.Getenv(envSessionFile),
		JWKSURL:       os.Getenv(envJWKSURL),
		Audience:      os.Getenv(envAudience),
		Issuer:        os.Getenv(envIssuer),
		TokenSecret:   os.Getenv(envTokenSecret),
		ViewAddr:      envStr(envViewAddr, "127.0.0.1:8090"),
		ViewToken:     os.Getenv(envViewToken),
	}
	if dbg, err := strconv.ParseBool(os.Getenv(envDebug)); err == nil {
		cfg.Debug = dbg
	}

	var err error
	if cfg.CacheTTL, err = envDur(envCacheTTL, 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = envDur(envHTTPTimeout, 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LoopBuffer, err = envInt(envLoopBuffer, 64); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s: must be greater than zero", envHTTPTimeout)
	}
	if cfg.LoopBuffer <= 0 {
		return Config{}, fmt.Errorf("invalid %s: must be greater than zero", envLoopBuffer)
	}

	cfg.PushURL = os.Getenv(envPushURL)
	if cfg.PushURL == "" {
		if cfg.PushURL, err = DefaultPushURL(cfg.APIURL); err != nil {
			return Config{}, err
		}
	}

	switch cfg.PushTransport {
	case TransportWebSocket:
	case TransportRedis:
		if cfg.RedisConn == "" {
			return Config{}, fmt.Errorf("%s=redis requires %s", envPushTransport, envRedis)
		}
	default:
		return Config{}, fmt.Errorf("unsupported %s value %q", envPushTransport, cfg.PushTransport)
	}
	return cfg, nil
}

// DefaultPushURL derives the websocket endpoint from the API base URL.
func DefaultPushURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", envAPIURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// RedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" connection string form.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("missing %s", envRedis)
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
