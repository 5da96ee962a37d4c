package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	PublicDir    string `toml:"public_dir"`
	LogDir       string `toml:"log_dir"`
	DatabasePath string `toml:"database_path"`
	RegistryPath string `toml:"registry_path"`
}

// Server contains the HTTP surface configuration.
type Server struct {
	BaseURL          string `toml:"base_url"`
	APIBind          string `toml:"api_bind"`
	APIToken         string `toml:"api_token"`
	RemoteUserHeader string `toml:"remote_user_header"`
}

// Download contains configuration for the batch download pipeline.
type Download struct {
	Enabled            bool     `toml:"enabled"`
	IdleSleep          int      `toml:"idle_sleep"`
	HarvestPageSize    int      `toml:"harvest_page_size"`
	DefaultCompression string   `toml:"default_compression"`
	GzipCommand        string   `toml:"gzip_command"`
	ZipCommand         string   `toml:"zip_command"`
	SecretKey          string   `toml:"secret_key"`
	RetentionDays      int      `toml:"retention_days"`
	PruneInterval      int      `toml:"prune_interval"`
	TestPrefixes       []string `toml:"test_prefixes"`
}

// Notifications contains configuration for requestor email and operator alerts.
type Notifications struct {
	ServiceName    string `toml:"service_name"`
	Language       string `toml:"language"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	SMTPUsername   string `toml:"smtp_username"`
	SMTPPassword   string `toml:"smtp_password"`
	SMTPTLS        bool   `toml:"smtp_tls"`
	FromAddress    string `toml:"from_address"`
	FromName       string `toml:"from_name"`
	RatePerMinute  int    `toml:"rate_per_minute"`
	RequestTimeout int    `toml:"request_timeout"`
	NtfyTopic      string `toml:"ntfy_topic"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for batchdl.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Download      Download      `toml:"download"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("batchdl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.PublicDir, c.Paths.LogDir}
	for _, dbPath := range []string{c.Paths.DatabasePath, c.Paths.RegistryPath} {
		if strings.TrimSpace(dbPath) != "" {
			dirs = append(dirs, filepath.Dir(dbPath))
		}
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IdleSleepDuration returns the worker's idle poll interval.
func (c *Config) IdleSleepDuration() time.Duration {
	return time.Duration(c.Download.IdleSleep) * time.Second
}

// RetentionPeriod returns how long published downloads remain available.
func (c *Config) RetentionPeriod() time.Duration {
	return time.Duration(c.Download.RetentionDays) * 24 * time.Hour
}

// PruneIntervalDuration returns the interval between public directory sweeps.
func (c *Config) PruneIntervalDuration() time.Duration {
	return time.Duration(c.Download.PruneInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
