package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "KKNOTES"

var Config *ServerConfig

// ServerConfig is a struct that contains configuration values for the server.
type ServerConfig struct {
	// AllowedOrigins is a list of URLs that the server will accept requests from.
	AllowedOrigins []string
	// AllowedEmailDomains is a list of email domains that may sign in. If empty, all domains are allowed.
	AllowedEmailDomains []string
	// SessionCookieName is the name to use for the session cookie.
	SessionCookieName string
	// SessionCookieExpiration is the amount of time a session cookie is valid. Max 14 days.
	SessionCookieExpiration time.Duration
	// Port is the port the server should run on.
	Port int
	// IsHTTPS marks session cookies Secure and SameSite=None.
	IsHTTPS bool

	// Firebase project settings.
	CredentialsFile string
	ProjectID       string
	DatabaseURL     string

	// StoreBackend is "rtdb" or "memory".
	StoreBackend string
	// ActivityBackend is "rtdb" or "firestore".
	ActivityBackend string

	// PollInterval is how often list views refresh.
	PollInterval time.Duration
	// LoadTimeout is the watchdog for a single list load.
	LoadTimeout time.Duration

	// ChatHistoryLimit is the default and maximum number of chat messages returned.
	ChatHistoryLimit int
	// ChatMessagesPerMinute limits how fast a single user can send chat messages.
	ChatMessagesPerMinute int
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		AllowedOrigins:          []string{"http://localhost:3000"},
		AllowedEmailDomains:     []string{},
		SessionCookieName:       "kknotes-session",
		SessionCookieExpiration: time.Hour * 24 * 5,
		Port:                    8080,
		IsHTTPS:                 false,
		CredentialsFile:         "firebase-config.json",
		StoreBackend:            "rtdb",
		ActivityBackend:         "rtdb",
		PollInterval:            30 * time.Second,
		LoadTimeout:             10 * time.Second,
		ChatHistoryLimit:        50,
		ChatMessagesPerMinute:   20,
	}
}

// ApplyDefaults registers defaults and KKNOTES_* env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", d.Port)
	v.SetDefault("http.allowed_origins", d.AllowedOrigins)
	v.SetDefault("http.https", d.IsHTTPS)
	v.SetDefault("auth.allowed_email_domains", d.AllowedEmailDomains)
	v.SetDefault("session.cookie_name", d.SessionCookieName)
	v.SetDefault("session.expiration", d.SessionCookieExpiration)
	v.SetDefault("firebase.credentials_file", d.CredentialsFile)
	v.SetDefault("firebase.project_id", d.ProjectID)
	v.SetDefault("firebase.database_url", d.DatabaseURL)
	v.SetDefault("store.backend", d.StoreBackend)
	v.SetDefault("activity.backend", d.ActivityBackend)
	v.SetDefault("views.poll_interval", d.PollInterval)
	v.SetDefault("views.load_timeout", d.LoadTimeout)
	v.SetDefault("chat.history_limit", d.ChatHistoryLimit)
	v.SetDefault("chat.messages_per_minute", d.ChatMessagesPerMinute)
}

// Load reads a ServerConfig from v and validates it.
func Load(v *viper.Viper) (*ServerConfig, error) {
	c := &ServerConfig{
		AllowedOrigins:          v.GetStringSlice("http.allowed_origins"),
		AllowedEmailDomains:     v.GetStringSlice("auth.allowed_email_domains"),
		SessionCookieName:       v.GetString("session.cookie_name"),
		SessionCookieExpiration: v.GetDuration("session.expiration"),
		Port:                    v.GetInt("http.port"),
		IsHTTPS:                 v.GetBool("http.https"),
		CredentialsFile:         v.GetString("firebase.credentials_file"),
		ProjectID:               v.GetString("firebase.project_id"),
		DatabaseURL:             v.GetString("firebase.database_url"),
		StoreBackend:            strings.ToLower(v.GetString("store.backend")),
		ActivityBackend:         strings.ToLower(v.GetString("activity.backend")),
		PollInterval:            v.GetDuration("views.poll_interval"),
		LoadTimeout:             v.GetDuration("views.load_timeout"),
		ChatHistoryLimit:        v.GetInt("chat.history_limit"),
		ChatMessagesPerMinute:   v.GetInt("chat.messages_per_minute"),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ServerConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	// Firebase rejects session cookies outside of 5 minutes to 14 days.
	if c.SessionCookieExpiration < 5*time.Minute || c.SessionCookieExpiration > 14*24*time.Hour {
		return fmt.Errorf("session.expiration must be between 5m and 336h, got %v", c.SessionCookieExpiration)
	}
	switch c.StoreBackend {
	case "rtdb":
		if c.DatabaseURL == "" {
			return fmt.Errorf("firebase.database_url is required for the rtdb store")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be rtdb or memory, got %q", c.StoreBackend)
	}
	switch c.ActivityBackend {
	case "rtdb", "firestore":
	default:
		return fmt.Errorf("activity.backend must be rtdb or firestore, got %q", c.ActivityBackend)
	}
	if c.PollInterval <= 0 || c.LoadTimeout <= 0 {
		return fmt.Errorf("views.poll_interval and views.load_timeout must be positive")
	}
	if c.ChatHistoryLimit <= 0 || c.ChatMessagesPerMinute <= 0 {
		return fmt.Errorf("chat.history_limit and chat.messages_per_minute must be positive")
	}
	return nil
}

func init() {
	Config = DefaultConfig()
}
