package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.PublicDir == "" {
		return errors.New("paths.public_dir must be set")
	}
	if c.Paths.WorkDir == c.Paths.PublicDir {
		return errors.New("paths.work_dir and paths.public_dir must differ")
	}
	return nil
}

func (c *Config) validateServer() error {
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.base_url must be an http or https URL, got %q", c.Server.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("server.base_url must include a host")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.SecretKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("download.secret_key is required. Set %s env var or edit %s (create with 'batchdl config init')", secretKeyEnv, defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"download.idle_sleep":        c.Download.IdleSleep,
		"download.harvest_page_size": c.Download.HarvestPageSize,
		"download.retention_days":    c.Download.RetentionDays,
		"download.prune_interval":    c.Download.PruneInterval,
	}); err != nil {
		return err
	}
	switch c.Download.DefaultCompression {
	case "gzip", "zip":
	default:
		return fmt.Errorf("download.default_compression must be gzip or zip, got %q", c.Download.DefaultCompression)
	}
	if c.Download.GzipCommand == "" {
		return errors.New("download.gzip_command must be set")
	}
	if c.Download.ZipCommand == "" {
		return errors.New("download.zip_command must be set")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.smtp_port":       c.Notifications.SMTPPort,
		"notifications.rate_per_minute": c.Notifications.RatePerMinute,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if _, err := language.Parse(c.Notifications.Language); err != nil {
		return fmt.Errorf("notifications.language: %w", err)
	}
	if c.Notifications.SMTPHost != "" && c.Notifications.FromAddress == "" {
		return errors.New("notifications.from_address must be set when smtp_host is configured")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
