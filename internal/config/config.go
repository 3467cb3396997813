package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type ContestConf struct {
	// AnswerWindow bounds how long a question accepts answers.
	AnswerWindow time.Duration `env:"CONTEST_ANSWER_WINDOW" envDefault:"60s"`

	// RevealDelay is the pause after a scored reveal before the next
	// question.
	RevealDelay time.Duration `env:"CONTEST_REVEAL_DELAY" envDefault:"3s"`

	// SkipDelay is the pause after a reveal nobody answered.
	SkipDelay time.Duration `env:"CONTEST_SKIP_DELAY" envDefault:"2s"`
}

type WebsocketConf struct {
	ReadLimit int64 `env:"WEBSOCKET_READ_LIMIT" envDefault:"4096"`

	// RateWindow/RateLimit throttle inbound requests per connection.
	RateWindow time.Duration `env:"WEBSOCKET_RATE_WINDOW" envDefault:"1s"`
	RateLimit  int           `env:"WEBSOCKET_RATE_LIMIT" envDefault:"15"`
}

type Config struct {
	Port          int    `env:"PORT" envDefault:"3000"`
	QuestionsPath string `env:"QUESTIONS_PATH" envDefault:"questions.json"`
	PublicDir     string `env:"PUBLIC_DIR" envDefault:"public"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`

	Contest   ContestConf
	Websocket WebsocketConf
}

// LoadConfig reads an optional dotenv file and parses the environment.
// A missing dotenv file is not an error; the environment alone decides.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
