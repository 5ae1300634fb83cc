package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	TestingMode bool   `mapstructure:"testing_mode"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`

		// Managed-Postgres token authentication. When CredentialsURL is set
		// the pool fetches short-lived credential tokens instead of using
		// the static password.
		CredentialsURL string `mapstructure:"credentials_url"`
		InstanceName   string `mapstructure:"instance_name"`
		APIToken       string `mapstructure:"api_token"`
	} `mapstructure:"db"`

	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Schedulers struct {
		DeliveryWebhookInterval time.Duration `mapstructure:"delivery_webhook_interval"`
		DeliveryWebhookURL      string        `mapstructure:"delivery_webhook_url"`
		MediaBuyStatusInterval  time.Duration `mapstructure:"media_buy_status_interval"`
	} `mapstructure:"schedulers"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.SetEnvPrefix("ADCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.DB.CredentialsURL = strings.TrimRight(strings.TrimSpace(config.DB.CredentialsURL), "/")

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "dev")
	viper.SetDefault("testing_mode", false)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("db.name", "adcp")
	viper.SetDefault("schedulers.delivery_webhook_interval", time.Minute)
	viper.SetDefault("schedulers.media_buy_status_interval", 5*time.Minute)
}
