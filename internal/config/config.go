package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Features  FeatureConfig   `mapstructure:"features"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// NotifierConfig selects and configures the reminder dispatcher.
// Provider "console" logs reminders instead of sending them.
type NotifierConfig struct {
	Provider    string `mapstructure:"provider"` // "console" or "resend"
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
}

// SchedulerConfig controls the reminder sweep.
type SchedulerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ItemTimeout   time.Duration `mapstructure:"item_timeout"`
}

// FeatureConfig holds feature toggles.
type FeatureConfig struct {
	// PrecreateAssignments switches occurrence materialization from
	// computed-on-demand (default) to pre-created documents.
	PrecreateAssignments bool `mapstructure:"precreate_assignments"`
	// PrecreateHorizonWeeks bounds how many weeks of an indefinite series
	// are pre-created up front when the toggle is on.
	PrecreateHorizonWeeks int `mapstructure:"precreate_horizon_weeks"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variables override the file, e.g. server.address ->
	// SERVER_ADDRESS, scheduler.sweep_interval -> SCHEDULER_SWEEP_INTERVAL.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "checkin_app")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("notifier.provider", "console")
	viper.SetDefault("scheduler.sweep_interval", "1m")
	viper.SetDefault("scheduler.item_timeout", "10s")
	viper.SetDefault("features.precreate_assignments", false)
	viper.SetDefault("features.precreate_horizon_weeks", 12)

	err = viper.ReadInConfig()
	// Config file is optional; env vars and defaults may be enough.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
