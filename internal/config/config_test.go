package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"contest-backend/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Point at a dotenv file that does not exist so only the defaults
	// and the ambient environment apply.
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("%v", err)
	}

	if got, want := cfg.Port, 3000; got != want {
		t.Fatalf("port mismatch, want: %d, got: %d", want, got)
	}
	if got, want := cfg.QuestionsPath, "questions.json"; got != want {
		t.Fatalf("questions path mismatch, want: %s, got: %s", want, got)
	}
	if got, want := cfg.Contest.AnswerWindow, 60*time.Second; got != want {
		t.Fatalf("answer window mismatch, want: %s, got: %s", want, got)
	}
	if got, want := cfg.Contest.RevealDelay, 3*time.Second; got != want {
		t.Fatalf("reveal delay mismatch, want: %s, got: %s", want, got)
	}
	if got, want := cfg.Contest.SkipDelay, 2*time.Second; got != want {
		t.Fatalf("skip delay mismatch, want: %s, got: %s", want, got)
	}
	if got, want := cfg.Websocket.RateLimit, 15; got != want {
		t.Fatalf("rate limit mismatch, want: %d, got: %d", want, got)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("CONTEST_ANSWER_WINDOW", "30s")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("%v", err)
	}

	if got, want := cfg.Port, 8080; got != want {
		t.Fatalf("port mismatch, want: %d, got: %d", want, got)
	}
	if !cfg.Debug {
		t.Fatal("debug mismatch, want: true")
	}
	if got, want := cfg.Contest.AnswerWindow, 30*time.Second; got != want {
		t.Fatalf("answer window mismatch, want: %s, got: %s", want, got)
	}
}

func TestLoadConfigDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("QUESTIONS_PATH=custom.json\n"), 0o600); err != nil {
		t.Fatalf("%v", err)
	}

	// godotenv loads into the process environment.
	t.Cleanup(func() { os.Unsetenv("QUESTIONS_PATH") })

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("%v", err)
	}

	if got, want := cfg.QuestionsPath, "custom.json"; got != want {
		t.Fatalf("questions path mismatch, want: %s, got: %s", want, got)
	}
}
