package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeDownload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.PublicDir, err = expandPath(c.Paths.PublicDir); err != nil {
		return fmt.Errorf("paths.public_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.RegistryPath) == "" {
		c.Paths.RegistryPath = defaultRegistryPath
	}
	if c.Paths.RegistryPath, err = expandPath(c.Paths.RegistryPath); err != nil {
		return fmt.Errorf("paths.registry_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	c.Server.RemoteUserHeader = strings.TrimSpace(c.Server.RemoteUserHeader)
	if c.Server.RemoteUserHeader == "" {
		c.Server.RemoteUserHeader = defaultRemoteUserHeader
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.SecretKey == "" {
		if value, ok := os.LookupEnv(secretKeyEnv); ok {
			c.Download.SecretKey = value
		}
	}
	c.Download.SecretKey = strings.TrimSpace(c.Download.SecretKey)
	c.Download.DefaultCompression = strings.ToLower(strings.TrimSpace(c.Download.DefaultCompression))
	if c.Download.DefaultCompression == "" {
		c.Download.DefaultCompression = defaultCompression
	}
	c.Download.GzipCommand = strings.TrimSpace(c.Download.GzipCommand)
	c.Download.ZipCommand = strings.TrimSpace(c.Download.ZipCommand)

	prefixes := make([]string, 0, len(c.Download.TestPrefixes))
	for _, prefix := range c.Download.TestPrefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	c.Download.TestPrefixes = prefixes
}

func (c *Config) normalizeNotifications() {
	c.Notifications.ServiceName = strings.TrimSpace(c.Notifications.ServiceName)
	if c.Notifications.ServiceName == "" {
		c.Notifications.ServiceName = defaultServiceName
	}
	c.Notifications.Language = strings.TrimSpace(c.Notifications.Language)
	if c.Notifications.Language == "" {
		c.Notifications.Language = defaultLanguage
	}
	c.Notifications.SMTPHost = strings.TrimSpace(c.Notifications.SMTPHost)
	if c.Notifications.SMTPPassword == "" {
		if value, ok := os.LookupEnv(smtpPasswordEnv); ok {
			c.Notifications.SMTPPassword = value
		}
	}
	c.Notifications.FromAddress = strings.TrimSpace(c.Notifications.FromAddress)
	c.Notifications.FromName = strings.TrimSpace(c.Notifications.FromName)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
