package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/errors"
)

// Default endpoints and write-path identifiers. All of them can be overridden
// through the environment.
const (
	defaultAPIVersion    = "2024-10"
	defaultLocationID    = "71003603149"
	defaultPublicationID = "gid://shopify/Publication/184418173133"
	defaultLoginURL      = "https://b2b.mediven.cl:8389/b2bv3/ws/B2BAuthService/login"
	defaultInventoryURL  = "https://b2b.mediven.cl:8389/b2bv3/ws/B2BService/inventario"
)

// Config holds the application configuration loaded from environment
// variables, .env files and flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Destination store
	ShopDomain      string
	ShopifyToken    string
	APIVersion      string
	LocationID      string
	PublicationID   string
	DefaultImageURL string

	// Supplier feed
	MedivenUser     string
	MedivenPassword string
	LoginURL        string
	InventoryURL    string

	// Sync behavior
	Simulate      bool
	DeleteMissing bool
	StatePath     string
	LockPath      string
	SnapshotPath  string
	ExclusionFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence: command-line flags
// (applied later by cobra), environment variables, .env files, defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindEnvKeys()

	config := &Config{
		ShopDomain:      viper.GetString("SHOP_DOMAIN"),
		ShopifyToken:    viper.GetString("SHOPIFY_ADMIN_TOKEN"),
		APIVersion:      viper.GetString("SHOPIFY_API_VERSION"),
		LocationID:      viper.GetString("SHOPIFY_LOCATION_ID"),
		PublicationID:   viper.GetString("ONLINE_STORE_PUBLICATION_ID"),
		DefaultImageURL: viper.GetString("SHOPIFY_DEFAULT_IMAGE_URL"),

		MedivenUser:     viper.GetString("MEDIVEN_USER"),
		MedivenPassword: viper.GetString("MEDIVEN_PASS"),
		LoginURL:        viper.GetString("MEDIVEN_LOGIN_URL"),
		InventoryURL:    viper.GetString("MEDIVEN_INVENTORY_URL"),

		Simulate:      viper.GetBool("SIMULATE"),
		DeleteMissing: viper.GetBool("DELETE_MISSING"),
		StatePath:     viper.GetString("SYNC_STATE_PATH"),
		LockPath:      viper.GetString("SYNC_LOCK_PATH"),
		SnapshotPath:  viper.GetString("FEED_SNAPSHOT_PATH"),
		ExclusionFile: viper.GetString("EXCLUSION_FILE"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills unset fields with their standard values.
func (c *Config) applyDefaults() {
	c.ShopDomain = strings.TrimSuffix(strings.TrimPrefix(c.ShopDomain, "https://"), "/")
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	if c.LocationID == "" {
		c.LocationID = defaultLocationID
	}
	if c.PublicationID == "" {
		c.PublicationID = defaultPublicationID
	}
	if c.LoginURL == "" {
		c.LoginURL = defaultLoginURL
	}
	if c.InventoryURL == "" {
		c.InventoryURL = defaultInventoryURL
	}
	if c.StatePath == "" {
		c.StatePath = constants.DefaultStatePath
	}
	if c.LockPath == "" {
		c.LockPath = constants.DefaultLockPath
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = constants.DefaultFeedSnapshotPath
	}
}

// Validate checks the credentials every remote phase needs.
func (c *Config) Validate() error {
	switch {
	case c.ShopDomain == "":
		return errors.NewConfigError("app", "SHOP_DOMAIN is required", nil)
	case c.ShopifyToken == "":
		return errors.NewConfigError("app", "SHOPIFY_ADMIN_TOKEN is required", nil)
	case c.MedivenUser == "":
		return errors.NewConfigError("app", "MEDIVEN_USER is required", nil)
	case c.MedivenPassword == "":
		return errors.NewConfigError("app", "MEDIVEN_PASS is required", nil)
	}
	return nil
}

// UpdateFromFlags applies parsed command flags, which take precedence over
// config file and environment values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}
	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindEnvKeys explicitly binds the credential variables to Viper so values
// loaded from .env files are visible.
func bindEnvKeys() {
	keys := []string{
		"SHOP_DOMAIN",
		"SHOPIFY_ADMIN_TOKEN",
		"SHOPIFY_API_VERSION",
		"SHOPIFY_LOCATION_ID",
		"ONLINE_STORE_PUBLICATION_ID",
		"SHOPIFY_DEFAULT_IMAGE_URL",
		"MEDIVEN_USER",
		"MEDIVEN_PASS",
		"MEDIVEN_LOGIN_URL",
		"MEDIVEN_INVENTORY_URL",
		"SIMULATE",
		"DELETE_MISSING",
		"SYNC_STATE_PATH",
		"SYNC_LOCK_PATH",
		"FEED_SNAPSHOT_PATH",
		"EXCLUSION_FILE",
	}
	for _, key := range keys {
		_ = viper.BindEnv(key)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
