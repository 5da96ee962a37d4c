package config

const (
	defaultConfigPath       = "~/.config/batchdl/config.toml"
	defaultWorkDir          = "~/.local/share/batchdl/work"
	defaultPublicDir        = "~/.local/share/batchdl/public"
	defaultLogDir           = "~/.local/share/batchdl/logs"
	defaultDatabasePath     = "~/.local/share/batchdl/queue.db"
	defaultRegistryPath     = "~/.local/share/batchdl/registry.db"
	defaultBaseURL          = "http://127.0.0.1:7488"
	defaultAPIBind          = "127.0.0.1:7488"
	defaultRemoteUserHeader = "X-Remote-User"
	defaultIdleSleep        = 10
	defaultHarvestPageSize  = 1000
	defaultCompression      = "gzip"
	defaultGzipCommand      = "gzip"
	defaultZipCommand       = "zip"
	defaultRetentionDays    = 7
	defaultPruneInterval    = 3600
	defaultServiceName      = "EZID"
	defaultLanguage         = "en"
	defaultSMTPPort         = 587
	defaultRatePerMinute    = 30
	defaultRequestTimeout   = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
	secretKeyEnv            = "BATCHDL_SECRET_KEY"
	smtpPasswordEnv         = "BATCHDL_SMTP_PASSWORD"
	defaultDownloadEnabled  = true
)

var defaultTestPrefixes = []string{"ark:/99999/fk4", "doi:10.5072/FK2"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	prefixes := make([]string, len(defaultTestPrefixes))
	copy(prefixes, defaultTestPrefixes)
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			PublicDir:    defaultPublicDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
			RegistryPath: defaultRegistryPath,
		},
		Server: Server{
			BaseURL:          defaultBaseURL,
			APIBind:          defaultAPIBind,
			RemoteUserHeader: defaultRemoteUserHeader,
		},
		Download: Download{
			Enabled:            defaultDownloadEnabled,
			IdleSleep:          defaultIdleSleep,
			HarvestPageSize:    defaultHarvestPageSize,
			DefaultCompression: defaultCompression,
			GzipCommand:        defaultGzipCommand,
			ZipCommand:         defaultZipCommand,
			RetentionDays:      defaultRetentionDays,
			PruneInterval:      defaultPruneInterval,
			TestPrefixes:       prefixes,
		},
		Notifications: Notifications{
			ServiceName:    defaultServiceName,
			Language:       defaultLanguage,
			SMTPPort:       defaultSMTPPort,
			RatePerMinute:  defaultRatePerMinute,
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
