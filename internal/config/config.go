package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/validator"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// MachineIDPath is read when no machine id is configured.
var MachineIDPath = "/etc/machine-id"

type ClientConfig struct {
	Server         request.Config
	RequestTimeout time.Duration `validate:"gt=0"`
	WatchInterval  time.Duration `validate:"gt=0"`
}

// DefaultPath returns $HOME/.config/remotebuild/config.ini.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "remotebuild", "config.ini")
}

// LoadClientConfig reads the ini file at path (a missing file is fine), then
// applies .env and environment overrides and validates the result.
func LoadClientConfig(path string) (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		RequestTimeout: 10 * time.Second,
		WatchInterval:  5 * time.Second,
	}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Server.URL = envOrDefault("RB_URL", cfg.Server.URL)
	cfg.Server.Username = envOrDefault("RB_USERNAME", cfg.Server.Username)
	cfg.Server.Token = envOrDefault("RB_TOKEN", cfg.Server.Token)
	cfg.Server.MachineID = envOrDefault("RB_MACHINE_ID", cfg.Server.MachineID)

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeout = time.Duration(i) * time.Second
		}
	}
	if v := os.Getenv("WATCH_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.WatchInterval = time.Duration(i) * time.Second
		}
	}

	if cfg.Server.MachineID == "" {
		cfg.Server.MachineID = readMachineID()
	}

	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *ClientConfig, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	server := f.Section("server")
	cfg.Server.URL = server.Key("url").MustString(cfg.Server.URL)
	cfg.Server.Username = server.Key("username").MustString(cfg.Server.Username)
	cfg.Server.Token = server.Key("token").MustString(cfg.Server.Token)
	cfg.Server.MachineID = server.Key("machine_id").MustString(cfg.Server.MachineID)

	client := f.Section("client")
	cfg.RequestTimeout = client.Key("timeout").MustDuration(cfg.RequestTimeout)
	cfg.WatchInterval = client.Key("watch_interval").MustDuration(cfg.WatchInterval)
	return nil
}

// SaveToken writes the session token into the [server] section of the ini
// file at path, creating it when needed.
func SaveToken(path, username, token string) error {
	f := ini.Empty()
	if _, err := os.Stat(path); err == nil {
		loaded, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		f = loaded
	}

	server := f.Section("server")
	server.Key("username").SetValue(username)
	server.Key("token").SetValue(token)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

func readMachineID() string {
	b, err := os.ReadFile(MachineIDPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
