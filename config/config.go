// Package config loads server and client settings: defaults, then the
// legacy plain environment names, then an optional YAML file, then
// UNIONHALL_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "UNIONHALL_"

type Config struct {
	Port          string `koanf:"port" yaml:"port"`
	Domain        string `koanf:"domain" yaml:"domain"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret"`
	Database      string `koanf:"database" yaml:"database"`
	// AnalyticsDatabase may be empty, which disables view statistics.
	AnalyticsDatabase string   `koanf:"analytics_database" yaml:"analytics_database"`
	AdminEmails       []string `koanf:"admin_emails" yaml:"admin_emails"`
	// PublicDir holds the built web client; CacheDir holds rendered posts.
	PublicDir string `koanf:"public_dir" yaml:"public_dir"`
	CacheDir  string `koanf:"cache_dir" yaml:"cache_dir"`
	// SearchIndex is the bleve index path; empty keeps the index in memory.
	SearchIndex string `koanf:"search_index" yaml:"search_index"`

	SMTPHost     string `koanf:"smtp_host" yaml:"smtp_host"`
	SMTPPort     string `koanf:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password" yaml:"smtp_password"`
	SMTPFrom     string `koanf:"smtp_from" yaml:"smtp_from"`

	// Firebase settings enable push delivery and ID token sign-in. Both stay
	// off when FirebaseProjectID is empty.
	FirebaseProjectID       string `koanf:"firebase_project_id" yaml:"firebase_project_id"`
	FirebaseCredentialsFile string `koanf:"firebase_credentials_file" yaml:"firebase_credentials_file"`
	FirebaseCredentialsJSON string `koanf:"firebase_credentials_json" yaml:"-"`

	// Backend and SnapshotDir are used by the client commands.
	Backend     string `koanf:"backend" yaml:"backend"`
	SnapshotDir string `koanf:"snapshot_dir" yaml:"snapshot_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:        "8080",
		Domain:      "http://localhost:8080",
		Database:    "unionhall.db",
		PublicDir:   "public",
		CacheDir:    "cache",
		SMTPPort:    "587",
		Backend:     "http://localhost:8080",
		SnapshotDir: ".unionhall",
	}
}

// legacyEnv maps the plain environment names older deployments use.
var legacyEnv = map[string]func(*Config, string){
	"PORT":                           func(c *Config, v string) { c.Port = v },
	"DOMAIN":                         func(c *Config, v string) { c.Domain = v },
	"SESSION_SECRET":                 func(c *Config, v string) { c.SessionSecret = v },
	"sqlite_db":                      func(c *Config, v string) { c.Database = v },
	"analytics_db":                   func(c *Config, v string) { c.AnalyticsDatabase = v },
	"BACKOFFICE_EMAILS":              func(c *Config, v string) { c.AdminEmails = SplitList(v) },
	"SMTP_HOST":                      func(c *Config, v string) { c.SMTPHost = v },
	"SMTP_PORT":                      func(c *Config, v string) { c.SMTPPort = v },
	"SMTP_USER":                      func(c *Config, v string) { c.SMTPUser = v },
	"SMTP_PASSWORD":                  func(c *Config, v string) { c.SMTPPassword = v },
	"SMTP_FROM":                      func(c *Config, v string) { c.SMTPFrom = v },
	"FIREBASE_PROJECT_ID":            func(c *Config, v string) { c.FirebaseProjectID = v },
	"GOOGLE_APPLICATION_CREDENTIALS": func(c *Config, v string) { c.FirebaseCredentialsFile = v },
	"FIREBASE_SERVICE_ACCOUNT_JSON":  func(c *Config, v string) { c.FirebaseCredentialsJSON = v },
}

// Load reads configuration. A missing file at path is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()
	for name, set := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			set(cfg, v)
		}
	}

	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// UNIONHALL_SMTP_HOST -> smtp_host
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)
	return cfg, nil
}

// Save writes the configuration as YAML. Inline credentials are not written.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the server needs.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("session_secret is required")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("session_secret must be at least 16 characters")
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("smtp_from is required when smtp_host is set")
	}
	return nil
}

// IsAdminEmail reports whether email is on the admin list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeEmails(in []string) []string {
	var out []string
	for _, e := range in {
		for _, part := range SplitList(e) {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
