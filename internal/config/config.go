package config

import (
	"time"

	"github.com/Netflix/go-env"
)

// Config holds everything the server reads from the environment.
// RedisAddr is optional: when empty, chat fan-out stays in-process and the
// Codeforces cache is disabled.
type Config struct {
	Addr      string `env:"ADDR,default=:8080"`
	DSN       string `env:"DB_DSN,required=true"`
	JWTSecret string `env:"JWT_SECRET,required=true"`
	RedisAddr string `env:"REDIS_ADDR"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`

	TokenTTL time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	CodeforcesURL      string        `env:"CODEFORCES_API_URL,default=https://codeforces.com/api"`
	CodeforcesTimeout  time.Duration `env:"CODEFORCES_TIMEOUT,default=10s"`
	CodeforcesCacheTTL time.Duration `env:"CODEFORCES_CACHE_TTL,default=5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
