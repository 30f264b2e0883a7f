package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds process level settings taken from the environment.
type Settings struct {
	GreptimeEndpoint string        `env:"GREPTIMEDB_ENDPOINT"`
	GreptimeDatabase string        `env:"GREPTIMEDB_DATABASE" envDefault:"public"`
	AdminAddr        string        `env:"REFEREE_ADMIN_ADDR" envDefault:":8080"`
	LogPath          string        `env:"REFEREE_LOG_PATH"`
	JournalPath      string        `env:"REFEREE_JOURNAL"`
	Tick             time.Duration `env:"REFEREE_TICK" envDefault:"100ms"`
}

// ParseEnv loads settings from environment variables.
func ParseEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
