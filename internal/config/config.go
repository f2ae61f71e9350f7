// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default PlayChain database location relative to the user's home directory.
const defaultStoreRelPath = "Library/Containers/io.playcover.PlayCover/PlayChain/com.duosecurity.DuoMobile.db"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	StorePath         string
	ListenAddr        string
	TickInterval      time.Duration
	PopulationTimeout time.Duration
	PopulationPoll    time.Duration
	MaxAttempts       int
	HostApp           string
	TargetProcess     string
	CacheDBPath       string
	SecretKey         []byte // nil disables the last-known-good cache
	CloseGrace        time.Duration
}

// CacheEnabled returns true when a cache encryption key is configured.
func (c *Config) CacheEnabled() bool {
	return c.SecretKey != nil
}

// Load reads configuration from environment variables and returns a
// validated Config. All variables are optional with defaults:
// DUOPANEL_STORE_PATH (PlayChain db under the home directory),
// DUOPANEL_LISTEN_ADDR (127.0.0.1:8094), DUOPANEL_TICK_INTERVAL (1s),
// DUOPANEL_POPULATION_TIMEOUT (25s), DUOPANEL_POPULATION_POLL (2s),
// DUOPANEL_MAX_ATTEMPTS (3), DUOPANEL_HOST_APP (PlayCover),
// DUOPANEL_TARGET_PROCESS (com.duosecurity.DuoMobile),
// DUOPANEL_CACHE_DB_PATH (duopanel.db), DUOPANEL_CLOSE_GRACE (3s), and
// DUOPANEL_SECRET_KEY (32 bytes hex; absent disables account caching).
func Load() (*Config, error) {
	storePath := os.Getenv("DUOPANEL_STORE_PATH")
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("DUOPANEL_STORE_PATH not set and home directory unknown: %w", err)
		}
		storePath = filepath.Join(home, defaultStoreRelPath)
	}

	listenAddr := "127.0.0.1:8094"
	if v, ok := os.LookupEnv("DUOPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	tickInterval, err := durationEnv("DUOPANEL_TICK_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	populationTimeout, err := durationEnv("DUOPANEL_POPULATION_TIMEOUT", 25*time.Second)
	if err != nil {
		return nil, err
	}
	populationPoll, err := durationEnv("DUOPANEL_POPULATION_POLL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	closeGrace, err := durationEnv("DUOPANEL_CLOSE_GRACE", 3*time.Second)
	if err != nil {
		return nil, err
	}

	maxAttempts := 3
	if v, ok := os.LookupEnv("DUOPANEL_MAX_ATTEMPTS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("DUOPANEL_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		maxAttempts = parsed
	}

	hostApp := "PlayCover"
	if v, ok := os.LookupEnv("DUOPANEL_HOST_APP"); ok {
		hostApp = v
	}

	targetProcess := "com.duosecurity.DuoMobile"
	if v, ok := os.LookupEnv("DUOPANEL_TARGET_PROCESS"); ok {
		targetProcess = v
	}

	cacheDBPath := "duopanel.db"
	if v, ok := os.LookupEnv("DUOPANEL_CACHE_DB_PATH"); ok {
		cacheDBPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("DUOPANEL_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("DUOPANEL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("DUOPANEL_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		StorePath:         storePath,
		ListenAddr:        listenAddr,
		TickInterval:      tickInterval,
		PopulationTimeout: populationTimeout,
		PopulationPoll:    populationPoll,
		MaxAttempts:       maxAttempts,
		HostApp:           hostApp,
		TargetProcess:     targetProcess,
		CacheDBPath:       cacheDBPath,
		SecretKey:         secretKey,
		CloseGrace:        closeGrace,
	}, nil
}

// durationEnv parses an optional duration environment variable.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return parsed, nil
}
