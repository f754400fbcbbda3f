package config

import "github.com/caarlos0/env/v11"

type TrackerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	LobbyURL        string  `env:"LOBBY_URL" envDefault:"https://openfront.io/api/public_lobbies"`
	GameAPIURL      string  `env:"GAME_API_URL" envDefault:"https://api.openfront.io"`
	SourceUserAgent string  `env:"SOURCE_USER_AGENT"`
	SourceCookie    string  `env:"SOURCE_COOKIE"`
	SourceTimeoutMS int     `env:"SOURCE_TIMEOUT_MS" envDefault:"10000"`
	SourceRatePerS  float64 `env:"SOURCE_RATE_PER_SEC" envDefault:"2"`
	SourceBurst     int     `env:"SOURCE_BURST" envDefault:"2"`

	DisableTasks []string `env:"DISABLE_TASKS" envSeparator:","`
	ExtraTasks   []string `env:"EXTRA_TASKS" envSeparator:","`

	QuietThresholdMins      int `env:"QUIET_THRESHOLD_MINUTES" envDefault:"15"`
	StallThresholdMins      int `env:"STALL_THRESHOLD_MINUTES" envDefault:"30"`
	TrackedPlayerRecheckMin int `env:"TRACKED_PLAYER_RECHECK_MINUTES" envDefault:"30"`

	ShutdownTimeoutMS int `env:"SHUTDOWN_TIMEOUT_MS" envDefault:"10000"`
}

func LoadTracker() (TrackerConfig, error) {
	var cfg TrackerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
