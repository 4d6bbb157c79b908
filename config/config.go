package config

import (
	"fmt"

	"github.com/tbergot/spotify-dashboard/internal/logger"

	"github.com/spf13/viper"
)

type Config struct {
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	DataDir          string `mapstructure:"DATA_DIR"`
}

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"DATABASE_URL", "DATA_DIR",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	// Env vars win; the .env files only fill the gaps. Defaults are
	// registered after this check so they don't satisfy IsSet.
	if viper.IsSet("POSTGRES_HOST") && viper.IsSet("POSTGRES_DB") {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Debug("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("could not unmarshal config", err)
	}

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"host", config.PostgresHost,
		"port", config.PostgresPort,
		"database", config.PostgresDB,
		"dataDir", config.DataDir,
	)
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func setDefaults() {
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "spotify")
	viper.SetDefault("POSTGRES_PASSWORD", "spotify_secret")
	viper.SetDefault("POSTGRES_DB", "spotify_db")
	viper.SetDefault("DATA_DIR", "./data")
}

func validateConfig(config Config, log logger.Logger) error {
	if config.PostgresPort <= 0 {
		return log.Error("invalid postgres port", "port", config.PostgresPort)
	}
	if config.PostgresHost == "" {
		return log.Error("postgres host is empty")
	}
	if config.PostgresDB == "" {
		return log.Error("postgres database name is empty")
	}

	ConfigInstance = config
	return nil
}

// DSN returns the PostgreSQL connection string. DATABASE_URL takes
// precedence when set; otherwise the DSN is assembled from the
// individual POSTGRES_* settings.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
	)
}
