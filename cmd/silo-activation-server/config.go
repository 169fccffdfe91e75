package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EternisAI/silo-activation/internal/api/http"
	"github.com/EternisAI/silo-activation/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        LogConfig
	Http       http.Config
	DB         db.Config        `mapstructure:"db"`
	Activation ActivationConfig `mapstructure:"activation"`
	JWT        JWTConfig        `mapstructure:"jwt"`
}

type ActivationConfig struct {
	Secret   string        `mapstructure:"secret"`
	Validity time.Duration `mapstructure:"validity"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/silo-activation-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("db.url", "DATABASE_URL")
	_ = viper.BindEnv("activation.secret", "ACTIVATION_SECRET")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")

	viper.SetDefault("activation.validity", "8760h")
	viper.SetDefault("jwt.ttl", "24h")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level). Secrets are
	// redacted; they must never reach a log line.
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		redacted := config
		redacted.Activation.Secret = "***"
		redacted.JWT.Secret = "***"
		redacted.Http.AdminAPIKey = "***"
		redacted.DB.Url = "***"
		if configJSON, err := json.MarshalIndent(redacted, "", "  "); err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
