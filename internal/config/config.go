package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings Trackbit reads at startup.
type Config struct {
	APIURL         string
	CookieName     string
	Session        string
	LogDir         string
	RefreshEvery   time.Duration
	RequestTimeout time.Duration
	Debug          bool
}

// Environment overrides.
const (
	EnvAPIURL  = "TRACKBIT_API_URL"
	EnvSession = "TRACKBIT_SESSION"
)

const (
	defaultConfigPath     = "~/.config/trackbit/config.toml"
	defaultEnvFile        = ".env"
	defaultAPIURL         = "http://127.0.0.1:3000"
	defaultCookieName     = "connect.sid"
	defaultLogDir         = "~/.local/state/trackbit"
	defaultRefreshSeconds = 30
	defaultTimeoutSeconds = 10
)

// Load reads the config file at path (the default location when empty),
// then applies overrides from ./.env and the process environment. A missing
// file or .env is not an error.
func Load(path string) (Config, error) {
	return load(path, defaultEnvFile)
}

func load(path, envFile string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:         defaultAPIURL,
		CookieName:     defaultCookieName,
		LogDir:         mustExpand(defaultLogDir),
		RefreshEvery:   defaultRefreshSeconds * time.Second,
		RequestTimeout: defaultTimeoutSeconds * time.Second,
	}

	if err := cfg.readFile(resolved); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(envFile); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL                string `toml:"api_url"`
		SessionCookie         string `toml:"session_cookie"`
		LogDir                string `toml:"log_dir"`
		RefreshSeconds        int    `toml:"refresh_seconds"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		Debug                 bool   `toml:"debug"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(raw.SessionCookie); v != "" {
		c.CookieName = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		c.LogDir = mustExpand(v)
	}
	if raw.RefreshSeconds > 0 {
		c.RefreshEvery = time.Duration(raw.RefreshSeconds) * time.Second
	}
	if raw.RequestTimeoutSeconds > 0 {
		c.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}
	c.Debug = raw.Debug
	return nil
}

// applyEnv layers .env values under the process environment.
func (c *Config) applyEnv(envFile string) error {
	values := map[string]string{}
	if envFile != "" {
		read, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			values = read
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(values[key])
	}

	if v := lookup(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := lookup(EnvSession); v != "" {
		c.Session = v
	}
	return nil
}

// LogPath returns the path of Trackbit's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/trackbit.log")
	}
	return filepath.Join(c.LogDir, "trackbit.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
