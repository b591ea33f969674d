package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	Wiki    WikiConfig    `mapstructure:"wiki"`
	Media   MediaConfig   `mapstructure:"media"`
	Diagram DiagramConfig `mapstructure:"diagram"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver     string `mapstructure:"driver"` // "mysql" or "sqlite3"
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"`
}

// OIDCConfig holds OIDC client configuration.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds the settings of the SQLite-backed cache.
type CacheConfig struct {
	FilePath   string        `mapstructure:"file_path"`
	DiagramTTL time.Duration `mapstructure:"diagram_ttl"`
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	SecretKey string `mapstructure:"secretkey"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// WikiConfig holds settings for page identity, links and suggestions.
type WikiConfig struct {
	IDPrefix     string `mapstructure:"id_prefix"`
	SuggestLimit int    `mapstructure:"suggest_limit"`
	LinkBasePath string `mapstructure:"link_base_path"`
}

// MediaConfig selects the media store backend and the garbage collection policy.
type MediaConfig struct {
	Backend       string        `mapstructure:"backend"` // "local", "s3" or "webdav"
	ManagedPrefix string        `mapstructure:"managed_prefix"`
	GCDebounce    time.Duration `mapstructure:"gc_debounce"`
	LocalDir      string        `mapstructure:"local_dir"`
	S3            S3Config      `mapstructure:"s3"`
	WebDAV        WebDAVConfig  `mapstructure:"webdav"`
}

// S3Config holds the bucket settings for the S3 media store.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
}

// WebDAVConfig holds the connection settings for the WebDAV media store.
type WebDAVConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Root     string `mapstructure:"root"`
}

// DiagramConfig configures the external diagram renderer.
type DiagramConfig struct {
	// Endpoint must be a renderer you trust, normally a self-hosted Kroki:
	// the SVG it returns is embedded in pages without sanitising. An empty
	// endpoint disables rendering and diagrams show as source.
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Languages []string      `mapstructure:"languages"`
}

// SetDefaults registers the default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "wiki.db")
	v.SetDefault("db.migrations", "migrations")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.diagram_ttl", 24*time.Hour)
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("wiki.id_prefix", "WIKI")
	v.SetDefault("wiki.suggest_limit", 5)
	v.SetDefault("wiki.link_base_path", "/wiki")
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.managed_prefix", "store/")
	v.SetDefault("media.gc_debounce", 2*time.Second)
	v.SetDefault("media.local_dir", "data")
	v.SetDefault("diagram.endpoint", "https://kroki.io")
	v.SetDefault("diagram.timeout", 5*time.Second)
	v.SetDefault("diagram.languages", []string{"mermaid", "plantuml", "graphviz", "dot", "d2"})

	// Keys without a meaningful default still need registering so that
	// AutomaticEnv picks them up during Unmarshal.
	for _, key := range []string{
		"session.secretkey",
		"oidc.issuer_url", "oidc.client_id", "oidc.client_secret", "oidc.redirect_url",
		"server.tls.certFile", "server.tls.keyFile",
		"media.s3.region", "media.s3.bucket", "media.s3.endpoint",
		"media.s3.access_key_id", "media.s3.access_key_secret",
		"media.webdav.url", "media.webdav.user", "media.webdav.password", "media.webdav.root",
	} {
		v.SetDefault(key, "")
	}
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-wiki-engine/")
	v.AddConfigPath("$HOME/.go-wiki-engine")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	return load(v)
}

// LoadConfigFile reads the given config file plus environment variables. An
// empty path falls back to LoadConfig's search paths.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return LoadConfig()
	}
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set up viper to read from environment variables
	v.SetEnvPrefix("WIKI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
