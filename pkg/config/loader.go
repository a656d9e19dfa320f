package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read before parsing when ENV_FILE is not set.
const DefaultEnvFile = ".env"

// Load parses environment variables into the provided struct.
// Values from the dotenv file named by ENV_FILE (default ".env") are applied
// first; variables already present in the process environment win.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = DefaultEnvFile
	}
	return LoadFiles(cfg, file)
}

// LoadFiles is Load with an explicit list of dotenv files. Missing files are
// skipped; malformed ones are an error.
func LoadFiles(cfg any, files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
