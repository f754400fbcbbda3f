package config

import "github.com/caarlos0/env/v11"

// TestConfig points integration tests at a scratch database. MigrationsDir
// overrides the upward search for migrations/ from the test's directory.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	MigrationsDir   string `env:"TEST_MIGRATIONS_DIR"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
