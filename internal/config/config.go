package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/kameleon.db"`
	RedisURL  string     `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	JWTSecret string     `env:"JWT_SECRET" envDefault:"dev-only-secret"`
	UploadDir string     `env:"UPLOAD_DIR" envDefault:"data/cvs"`

	// ChallengeRiddleID selects the riddle that uses the legacy
	// randomized-challenge answer check instead of direct comparison.
	// Zero disables it.
	ChallengeRiddleID int64 `env:"CHALLENGE_RIDDLE_ID" envDefault:"0"`

	// RecruiterRanks lists rank names whose members may upload a CV.
	RecruiterRanks []string `env:"RECRUITER_RANKS" envDefault:"Panda Ghilie,Kameleon"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
