package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Session     SessionConfig
	Shop        ShopConfig
	Redis       RedisConfig
	InputFilter InputFilterConfig
	ACL         ACLConfig
	Newsletter  NewsletterConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Path          string
	MigrationsDir string
}

type SessionConfig struct {
	Secret string
}

// ShopConfig holds the hosts the storefront is served from. The referer
// check accepts either of them.
type ShopConfig struct {
	Host       string
	SecureHost string
}

type RedisConfig struct {
	URL               string
	RevenueTTLSeconds int
}

type InputFilterConfig struct {
	SettingsPath string
	MaxDepth     int
}

type ACLConfig struct {
	// RolePrivileges uses the form "admin:read,write,delete;editor:read"
	RolePrivileges string
}

type NewsletterConfig struct {
	DefaultGroupID int64
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Mode:           getEnv("GIN_MODE", "release"),
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 15),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Path:          getEnv("DB_PATH", "./newsletter.db"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "default-secret-key"),
		},
		Shop: ShopConfig{
			Host:       getEnv("SHOP_HOST", "localhost"),
			SecureHost: getEnv("SHOP_SECURE_HOST", ""),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", ""),
			RevenueTTLSeconds: getEnvAsInt("REVENUE_CACHE_TTL", 300),
		},
		InputFilter: InputFilterConfig{
			SettingsPath: getEnv("INPUT_FILTER_SETTINGS", "config/input_filter.yaml"),
			MaxDepth:     getEnvAsInt("INPUT_FILTER_MAX_DEPTH", 32),
		},
		ACL: ACLConfig{
			RolePrivileges: getEnv("ACL_ROLE_PRIVILEGES", "admin:read,write,delete"),
		},
		Newsletter: NewsletterConfig{
			DefaultGroupID: int64(getEnvAsInt("NEWSLETTER_DEFAULT_GROUP_ID", 1)),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated environment variable
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ParseRolePrivileges turns "admin:read,write;editor:read" into a lookup map
func ParseRolePrivileges(spec string) map[string][]string {
	roles := make(map[string][]string)
	for _, entry := range strings.Split(spec, ";") {
		role, privileges, found := strings.Cut(strings.TrimSpace(entry), ":")
		if !found || role == "" {
			continue
		}
		for _, p := range strings.Split(privileges, ",") {
			if p = strings.TrimSpace(p); p != "" {
				roles[role] = append(roles[role], p)
			}
		}
	}
	return roles
}
