package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugAddress       string        `mapstructure:"debugAddress"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		SessionCookieName  string        `mapstructure:"sessionCookieName"`
		SecureCookie       bool          `mapstructure:"secureCookie"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | sqlite
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"` // DB name, or file path for sqlite
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	LogConfig struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"` // console | json
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"maxSizeMB"`
		MaxBackups int    `mapstructure:"maxBackups"`
	}

	Config struct {
		Env                 string `mapstructure:"-"`
		Build               string `mapstructure:"build"`
		AppName             string `mapstructure:"appName"`
		Debug               bool   `mapstructure:"debug"`
		TestMode            bool   `mapstructure:"testMode"`
		SecretKey           string `mapstructure:"secretKey"`
		FrontendBaseURL     string `mapstructure:"frontendBaseURL"`
		DefaultFromEmail    string `mapstructure:"defaultFromEmail"`
		SendgridApiKey      string `mapstructure:"sendgridApiKey"`
		RollbarToken        string `mapstructure:"rollbarToken"`
		NotifyEvaluatedUser bool   `mapstructure:"notifyEvaluatedUser"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Log      LogConfig      `mapstructure:"log"`
	}
)

// Address returns the DB "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFrom parses DefaultFromEmail, falling back to a bare address.
func (c *Config) DefaultFrom() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "QA Center")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "b1t-ph@se+9x8=qa&center!dev-only#k3y")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "QA Center <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("notifyEvaluatedUser", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("server.sessionCookieName", "qa_session")
	v.SetDefault("server.secureCookie", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "qa_center")
	v.SetDefault("database.user", "qa_center")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 3)
}

// NewConfig loads the configuration for the current ENV (DEV (local; default), TEST, QA, PROD).
// Values come from the defaults, then config/.env.<env> (if it exists), then the environment.
// Env vars are prefixed with ENV and nested keys are joined with "_", eg: PROD_DATABASE_HOST.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("loading %s", dotEnvPath))
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, fmt.Sprintf("checking %s", dotEnvPath))
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	return conf, nil
}
