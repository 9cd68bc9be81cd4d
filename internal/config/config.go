package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process settings.
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	TeamSize    int
	GameMode    string
	DBPath      string
	TokenSecret string
	StaticDir   string
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads an optional .env file, then the environment, and applies
// defaults for anything unset.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("TEAM_SIZE", 5)
	v.SetDefault("GAME_MODE", "bomb")
	v.SetDefault("DB_PATH", "")
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("STATIC_DIR", "./static")

	cfg := Config{
		Port:        v.GetInt("PORT"),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:   strings.ToLower(v.GetString("LOG_FORMAT")),
		TeamSize:    v.GetInt("TEAM_SIZE"),
		GameMode:    strings.ToLower(v.GetString("GAME_MODE")),
		DBPath:      v.GetString("DB_PATH"),
		TokenSecret: v.GetString("TOKEN_SECRET"),
		StaticDir:   v.GetString("STATIC_DIR"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.TeamSize < 0 {
		return fmt.Errorf("invalid TEAM_SIZE %d", c.TeamSize)
	}
	switch c.GameMode {
	case "bomb", "battle":
	default:
		return fmt.Errorf("invalid GAME_MODE %q", c.GameMode)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
