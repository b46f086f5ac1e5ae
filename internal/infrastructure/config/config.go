package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Import   ImportConfig   `mapstructure:"import"`
	Browsers BrowsersConfig `mapstructure:"browsers"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	AI       AIConfig       `mapstructure:"ai"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Settings SettingsConfig `mapstructure:"settings"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds the embedded store configuration
type DatabaseConfig struct {
	Path         string        `mapstructure:"path"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
}

// StorageConfig holds on-disk locations for derived files
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	ImagesDir  string `mapstructure:"images_dir"`
	BackupsDir string `mapstructure:"backups_dir"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ImportConfig controls the browser import scheduler
type ImportConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	Limit           int  `mapstructure:"limit"`
	StageAttempts   int  `mapstructure:"stage_attempts"`
}

// Interval returns the import interval as a duration
func (c ImportConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// BrowserProfile holds discovery overrides for one browser
type BrowserProfile struct {
	UserDataDir string `mapstructure:"user_data_dir"`
	Profiles    string `mapstructure:"profiles"`
}

// ProfileList splits the comma-separated profile names
func (b BrowserProfile) ProfileList() []string {
	return SplitList(b.Profiles)
}

// BrowsersConfig holds per-browser discovery overrides
type BrowsersConfig struct {
	Chrome   BrowserProfile `mapstructure:"chrome"`
	Chromium BrowserProfile `mapstructure:"chromium"`
	Edge     BrowserProfile `mapstructure:"edge"`
	Brave    BrowserProfile `mapstructure:"brave"`
	Firefox  BrowserProfile `mapstructure:"firefox"`
}

// BackupConfig controls the backup scheduler
type BackupConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Interval     time.Duration `mapstructure:"interval"`
	Retention    int           `mapstructure:"retention"`
	Passphrase   string        `mapstructure:"passphrase"`
	Salt         string        `mapstructure:"salt"`
}

// CalendarConfig holds external calendar feed settings
type CalendarConfig struct {
	FeedURLs     string        `mapstructure:"feed_urls"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// FeedList splits the configured feed URLs
func (c CalendarConfig) FeedList() []string {
	return SplitList(c.FeedURLs)
}

// AIConfig holds inference service settings
type AIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	MaxTokens int64         `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// PreviewConfig holds link preview settings
type PreviewConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
	FaviconURL   string        `mapstructure:"favicon_url"`
}

// UploadConfig holds image upload settings
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
	MaxWidth int   `mapstructure:"max_width"`
	Quality  int   `mapstructure:"quality"`
}

// SettingsConfig points to the user-editable key-value settings file
type SettingsConfig struct {
	File      string `mapstructure:"file"`
	ArrayKeys string `mapstructure:"array_keys"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedPaths(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Memoria")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.path", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.busy_timeout", "5s")

	// Storage defaults
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.images_dir", "")
	v.SetDefault("storage.backups_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.filename", "logs/memoria.log")
	v.SetDefault("logger.max_size_mb", 20)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 30)

	// Security defaults
	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Import defaults
	v.SetDefault("import.enabled", true)
	v.SetDefault("import.interval_minutes", 30)
	v.SetDefault("import.limit", 5000)
	v.SetDefault("import.stage_attempts", 5)

	// Backup defaults
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.initial_delay", "10s")
	v.SetDefault("backup.interval", "1h")
	v.SetDefault("backup.retention", 24)
	v.SetDefault("backup.passphrase", "memoria-local-backup")
	v.SetDefault("backup.salt", "memoria-backup-salt")

	// Calendar defaults
	v.SetDefault("calendar.feed_urls", "")
	v.SetDefault("calendar.cache_ttl", "15m")
	v.SetDefault("calendar.fetch_timeout", "10s")

	// AI defaults
	v.SetDefault("ai.base_url", "http://localhost:11434")
	v.SetDefault("ai.model", "llama3.1")
	v.SetDefault("ai.api_key", "local")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.timeout", "120s")

	// Preview defaults
	v.SetDefault("preview.timeout", "8s")
	v.SetDefault("preview.image_timeout", "10s")
	v.SetDefault("preview.favicon_url", "https://www.google.com/s2/favicons?domain=%s&sz=64")

	// Upload defaults
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.max_width", 1920)
	v.SetDefault("upload.quality", 80)

	// Settings defaults
	v.SetDefault("settings.file", "")
	v.SetDefault("settings.array_keys", "CALENDAR_URLS,CHROME_PROFILES,EDGE_PROFILES,BRAVE_PROFILES,FIREFOX_PROFILES,SEARCH_ENGINES")
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.version", "APP_VERSION")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("app.debug", "APP_DEBUG")

	// Server
	v.BindEnv("server.port", "PORT", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Database
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	v.BindEnv("database.busy_timeout", "DB_BUSY_TIMEOUT")

	// Storage
	v.BindEnv("storage.data_dir", "DATA_DIR")
	v.BindEnv("storage.images_dir", "IMAGES_DIR")
	v.BindEnv("storage.backups_dir", "BACKUPS_DIR")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")
	v.BindEnv("logger.filename", "LOG_FILE")

	// Security
	v.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")

	// Import
	v.BindEnv("import.enabled", "IMPORT_ENABLED")
	v.BindEnv("import.interval_minutes", "IMPORT_INTERVAL_MINUTES")
	v.BindEnv("import.limit", "IMPORT_LIMIT")

	// Browsers
	v.BindEnv("browsers.chrome.user_data_dir", "CHROME_USER_DATA_DIR")
	v.BindEnv("browsers.chrome.profiles", "CHROME_PROFILES")
	v.BindEnv("browsers.chromium.user_data_dir", "CHROMIUM_USER_DATA_DIR")
	v.BindEnv("browsers.chromium.profiles", "CHROMIUM_PROFILES")
	v.BindEnv("browsers.edge.user_data_dir", "EDGE_USER_DATA_DIR")
	v.BindEnv("browsers.edge.profiles", "EDGE_PROFILES")
	v.BindEnv("browsers.brave.user_data_dir", "BRAVE_USER_DATA_DIR")
	v.BindEnv("browsers.brave.profiles", "BRAVE_PROFILES")
	v.BindEnv("browsers.firefox.user_data_dir", "FIREFOX_PROFILES_DIR")
	v.BindEnv("browsers.firefox.profiles", "FIREFOX_PROFILES")

	// Backup
	v.BindEnv("backup.enabled", "BACKUP_ENABLED")
	v.BindEnv("backup.initial_delay", "BACKUP_INITIAL_DELAY")
	v.BindEnv("backup.interval", "BACKUP_INTERVAL")
	v.BindEnv("backup.retention", "BACKUP_RETENTION")

	// Calendar
	v.BindEnv("calendar.feed_urls", "CALENDAR_URLS")

	// AI
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.model", "AI_MODEL")
	v.BindEnv("ai.api_key", "AI_API_KEY")

	// Upload
	v.BindEnv("upload.max_bytes", "UPLOAD_MAX_BYTES")

	// Settings
	v.BindEnv("settings.file", "SETTINGS_FILE")
	v.BindEnv("settings.array_keys", "SETTINGS_ARRAY_KEYS")
}

// applyDerivedPaths fills locations that default to children of the data directory
func applyDerivedPaths(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.Storage.DataDir, "memoria.db")
	}
	if cfg.Storage.ImagesDir == "" {
		cfg.Storage.ImagesDir = filepath.Join(cfg.Storage.DataDir, "images")
	}
	if cfg.Storage.BackupsDir == "" {
		cfg.Storage.BackupsDir = filepath.Join(cfg.Storage.DataDir, "backups")
	}
	if cfg.Settings.File == "" {
		cfg.Settings.File = filepath.Join(cfg.Storage.DataDir, "settings.env")
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Import.IntervalMinutes <= 0 {
		return fmt.Errorf("import interval must be positive")
	}

	if cfg.Backup.Retention <= 0 {
		return fmt.Errorf("backup retention must be positive")
	}

	if cfg.Backup.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}

	if cfg.Backup.Passphrase == "" || cfg.Backup.Salt == "" {
		return fmt.Errorf("backup passphrase and salt must be set")
	}

	return nil
}

// Address returns the host:port the server listens on
func (cfg *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}

// SplitList splits a comma-separated value, trimming blanks
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
