package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables declared with `env` tags.
// Variables without a value fall back to their `envDefault` tag.
//
//	type Config struct {
//	    HTTPPort  int           `env:"HTTP_PORT" envDefault:"8080"`
//	    JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`
//	}
func Load(cfg any) error {
	if err := env.ParseWithOptions(cfg, env.Options{}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
