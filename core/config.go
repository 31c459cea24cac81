package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		AuthEnabled               bool
		CORSOrigins               []string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		MaxUploadSize             int64 // bytes
	}

	DatabaseConfig struct {
		Engine        string // postgres (lib/pq) | pgx
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Enabled     bool
		Addr        string
		Password    string
		DB          int
		RankingsTTL time.Duration
	}

	Config struct {
		AppName      string
		Build        string
		Env          string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig

		RankingsLimit    int
		RankingsMaxLimit int
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// DriverName returns the database/sql driver registered for Engine.
func (c DatabaseConfig) DriverName() string {
	if c.Engine == "pgx" {
		return "pgx"
	}
	return "postgres"
}

// NewConfig loads the configuration from the environment and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Lophoc")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "x7kq!vbn$2p@z9^lm#d0w*ehy&c4r+f(ga8u)tj6s1o=i3")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("rankingsLimit", 10)
	v.SetDefault("rankingsMaxLimit", 100)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.authEnabled", false)
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.maxUploadSize", int64(10<<20))

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "lophoc")
	v.SetDefault("database.user", "lophoc")
	v.SetDefault("database.password", "lophoc")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rankingsTTL", 10*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			AuthEnabled:               v.GetBool("server.authEnabled"),
			CORSOrigins:               v.GetStringSlice("server.corsOrigins"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			MaxUploadSize:             v.GetInt64("server.maxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Enabled:     v.GetBool("redis.enabled"),
			Addr:        v.GetString("redis.addr"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			RankingsTTL: v.GetDuration("redis.rankingsTTL"),
		},
		RankingsLimit:    v.GetInt("rankingsLimit"),
		RankingsMaxLimit: v.GetInt("rankingsMaxLimit"),
	}
}

// NewTestConfig returns a Config suited for tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:   "Lophoc",
		Build:     "test",
		Env:       "TEST",
		Debug:     false,
		TestMode:  true,
		SecretKey: "secret",
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			CORSOrigins:               []string{"*"},
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			MaxUploadSize:             1 << 20,
		},
		RankingsLimit:    10,
		RankingsMaxLimit: 100,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%v", c.AppName, c.Build, c.Env, c.Debug)
}
