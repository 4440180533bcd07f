package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Data   DataConfig   `mapstructure:"data"`
	Sites  SitesConfig  `mapstructure:"sites"`
	Upload UploadConfig `mapstructure:"upload"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Logger LoggerConfig `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DataConfig holds the on-disk layout of the flat-file stores
type DataConfig struct {
	SitesDir    string `mapstructure:"sites_dir"`    // one JSON document per site
	PhotosDir   string `mapstructure:"photos_dir"`   // progress photo blobs
	LedgerPath  string `mapstructure:"ledger_path"`  // petty-cash CSV table
	ReceiptsDir string `mapstructure:"receipts_dir"` // petty-cash receipt blobs
}

// SitesConfig holds the registered construction sites and budget settings
type SitesConfig struct {
	Names             map[string]string  `mapstructure:"names"`   // site id -> display name
	Budgets           map[string]float64 `mapstructure:"budgets"` // per-site fixed budget override
	DefaultBudget     float64            `mapstructure:"default_budget"`
	ExpenseCategories []string           `mapstructure:"expense_categories"`
	CashCategories    []string           `mapstructure:"cash_categories"`
}

// UploadConfig holds the external report storage endpoint settings
type UploadConfig struct {
	URL      string        `mapstructure:"url"`
	Token    string        `mapstructure:"token"`
	FolderID string        `mapstructure:"folder_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the credential pairs for the two roles
type AuthConfig struct {
	JefeUser      string        `mapstructure:"jefe_user"`
	JefePass      string        `mapstructure:"jefe_pass"`
	PasantePrefix string        `mapstructure:"pasante_prefix"`
	PasantePass   string        `mapstructure:"pasante_pass"`
	TokenSecret   string        `mapstructure:"token_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("OBRAS")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 150*time.Second) // report submission waits on the upload

	viper.SetDefault("data.sites_dir", "data/obras")
	viper.SetDefault("data.photos_dir", "data/obras/fotos")
	viper.SetDefault("data.ledger_path", "data/caja_chica/movimientos.csv")
	viper.SetDefault("data.receipts_dir", "data/caja_chica/comprobantes")

	viper.SetDefault("sites.default_budget", 0.0)
	viper.SetDefault("sites.expense_categories", []string{
		"Materiales", "Mano de obra", "Equipos", "Transporte", "Otros",
	})
	viper.SetDefault("sites.cash_categories", []string{
		"Viáticos", "Transporte", "Materiales menores", "Limpieza/oficina", "Imprevistos", "Otros",
	})

	viper.SetDefault("upload.timeout", 120*time.Second)

	viper.SetDefault("auth.pasante_prefix", "pasante")
	viper.SetDefault("auth.token_ttl", 12*time.Hour)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "console")
}

// Validate checks that required configuration values are present
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if len(c.Sites.Names) == 0 {
		return fmt.Errorf("sites.names must register at least one site")
	}
	if c.Auth.JefeUser == "" || c.Auth.JefePass == "" {
		return fmt.Errorf("auth.jefe_user and auth.jefe_pass are required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is required")
	}
	if c.Upload.URL != "" && c.Upload.Token == "" {
		return fmt.Errorf("upload.token is required when upload.url is set")
	}
	return nil
}

// SiteName returns the display name for a site id, or the id itself when the
// site is not registered.
func (c *Config) SiteName(siteID string) string {
	if name, ok := c.Sites.Names[siteID]; ok {
		return name
	}
	return siteID
}

// SiteBudget returns the fixed budget override for a site, falling back to
// the configured default.
func (c *Config) SiteBudget(siteID string) float64 {
	if b, ok := c.Sites.Budgets[siteID]; ok {
		return b
	}
	return c.Sites.DefaultBudget
}

// KnownSite reports whether the site id is registered.
func (c *Config) KnownSite(siteID string) bool {
	_, ok := c.Sites.Names[siteID]
	return ok
}
