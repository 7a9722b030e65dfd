package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EngineMongo  = "mongo"
	EngineInmem  = "inmem"
	EngineB2     = "b2"
	EngineMemory = "memory"
)

type (
	Config struct {
		Env                string
		Debug              bool
		TestMode           bool
		AppName            string
		Build              string
		SecretKey          string
		JWTExpirationDelta time.Duration
		RollbarToken       string
		FrontendBaseURL    string
		Server             ServerConfig
		Database           DatabaseConfig
		Storage            StorageConfig
		Email              EmailConfig
		Log                LogConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		BodyLimit       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine         string
		URI            string
		Name           string
		ConnectTimeout time.Duration
	}

	StorageConfig struct {
		Engine           string
		B2AccountID      string
		B2ApplicationKey string
		B2Bucket         string
	}

	EmailConfig struct {
		DefaultFromEmail string
		DefaultFromName  string
		SendgridAPIKey   string
	}

	LogConfig struct {
		Level  string
		Format string
	}
)

// DefaultFromEmail returns the address used as sender of outgoing emails.
func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Email.DefaultFromName, Address: c.Email.DefaultFromEmail}
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (dev by default) and the dotenv file config/.env.<env>, if any.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "EduPlatform")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("server.host", ":5000")
	v.SetDefault("server.debugHost", ":5001")
	v.SetDefault("server.bodyLimit", "110M")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", EngineMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "eduplatform")
	v.SetDefault("database.connectTimeout", 10*time.Second)

	v.SetDefault("storage.engine", EngineMemory)
	v.SetDefault("storage.b2AccountID", "")
	v.SetDefault("storage.b2ApplicationKey", "")
	v.SetDefault("storage.b2Bucket", "")

	v.SetDefault("email.defaultFromEmail", "noreply@localhost")
	v.SetDefault("email.defaultFromName", "EduPlatform")
	v.SetDefault("email.sendgridApiKey", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	env := strings.ToLower(os.Getenv("ENV")) // dev (default), test, qa, prod
	if env == "" {
		env = "dev"
	}
	if env == "test" {
		v.SetDefault("testMode", true)
	}

	loadDotEnv(filepath.Join("config", ".env."+env))
	loadDotEnv(".env")

	v.SetEnvPrefix("EDU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		RollbarToken:       v.GetString("rollbarToken"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			BodyLimit:       v.GetString("server.bodyLimit"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:         v.GetString("database.engine"),
			URI:            v.GetString("database.uri"),
			Name:           v.GetString("database.name"),
			ConnectTimeout: v.GetDuration("database.connectTimeout"),
		},
		Storage: StorageConfig{
			Engine:           v.GetString("storage.engine"),
			B2AccountID:      v.GetString("storage.b2AccountID"),
			B2ApplicationKey: v.GetString("storage.b2ApplicationKey"),
			B2Bucket:         v.GetString("storage.b2Bucket"),
		},
		Email: EmailConfig{
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
			DefaultFromName:  v.GetString("email.defaultFromName"),
			SendgridAPIKey:   v.GetString("email.sendgridApiKey"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if conf.SecretKey == "" {
		if !(conf.Debug || conf.TestMode) {
			log.Fatal("config: EDU_SECRETKEY is required outside debug mode")
		}
		conf.SecretKey = "dev-only-secret-b7d1f0c2e9a84c55"
	}
	return conf
}

// loadDotEnv loads the dotenv file at path if it exists.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Fatalf("config.godotenv(%s): %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", path, err)
	}
}
