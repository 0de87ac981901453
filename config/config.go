// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configDir      = pflag.String("config-dir", ".", "Directory containing config.toml")
	logLevel       = pflag.String("log-level", "", "Overrides app.log_level")
	port           = pflag.Int("port", 0, "Overrides host.port")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// A missing .env is fine, the variables may come from the environment
	_ = godotenv.Load(filepath.Join(*configDir, ".env"))

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	Defaults()

	if *logLevel != "" {
		v.Set("app.log_level", *logLevel)
	}
	if *port > 0 {
		v.Set("host.port", *port)
	}

	return Validate()
}

// Defaults binds environment variables and registers default values.
// It's separate from Setup so tests can use it without flags or files.
func Defaults() {
	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors", "HOST_CORS")
	v.BindEnv("host.trusted_proxies", "HOST_TRUSTED_PROXIES")

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("openai.vision_model", "OPENAI_VISION_MODEL")
	v.BindEnv("openai.text_model", "OPENAI_TEXT_MODEL")
	v.BindEnv("openai.timeout", "OPENAI_TIMEOUT")

	v.BindEnv("fetch.timeout", "FETCH_TIMEOUT")

	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.folder", "STORAGE_FOLDER")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("storage.path_style", "STORAGE_PATH_STYLE")
	v.BindEnv("storage.timeout", "STORAGE_TIMEOUT")
	v.BindEnv("storage.presign_ttl", "STORAGE_PRESIGN_TTL")

	v.BindEnv("storage.sweep.interval", "STORAGE_SWEEP_INTERVAL")
	v.BindEnv("storage.sweep.max_age", "STORAGE_SWEEP_MAX_AGE")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:8080"})

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("openai.text_model", "gpt-4o")
	v.SetDefault("openai.timeout", time.Minute)

	v.SetDefault("fetch.timeout", 30*time.Second)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "assets")
	v.SetDefault("storage.folder", "public")
	v.SetDefault("storage.path_style", true)
	v.SetDefault("storage.timeout", 20*time.Second)
	v.SetDefault("storage.presign_ttl", 15*time.Minute)

	v.SetDefault("storage.sweep.interval", time.Duration(0))
	v.SetDefault("storage.sweep.max_age", time.Hour)
}

// Validate checks the loaded values
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("openai.api_key") == "" {
		return errors.New("openai api key can't be empty")
	}

	if v.GetString("storage.bucket") == "" {
		return errors.New("bucket can't be empty")
	}
	if v.GetString("storage.folder") == "" {
		return errors.New("storage folder can't be empty")
	}
	if v.GetString("storage.access_key_id") == "" {
		return errors.New("storage access key id can't be empty")
	}
	if v.GetString("storage.secret_access_key") == "" {
		return errors.New("storage secret access key can't be empty")
	}

	for _, key := range []string{
		"openai.timeout",
		"fetch.timeout",
		"storage.timeout",
		"storage.presign_ttl",
		"storage.sweep.interval",
		"storage.sweep.max_age",
	} {
		if v.GetDuration(key) < 0 {
			return fmt.Errorf("%s can't be negative", key)
		}
	}

	if v.GetDuration("storage.sweep.interval") > 0 && v.GetDuration("storage.sweep.max_age") == 0 {
		return errors.New("storage.sweep.max_age must be set when the sweeper is enabled")
	}

	return nil
}
