package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"contest-backend/internal/config"
	"contest-backend/internal/contest"
	"contest-backend/internal/handlers"
	"contest-backend/internal/middlewares"
	"contest-backend/internal/questions"
	"contest-backend/internal/ws"

	"github.com/MadAppGang/httplog"
	"github.com/coder/websocket"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	bank, err := questions.Load(cfg.QuestionsPath)
	if err != nil {
		slog.Warn("question bank unavailable, using builtin sample",
			slog.String("path", cfg.QuestionsPath),
			slog.Any("error", err))
		bank = questions.Fallback()
	} else {
		slog.Info("question bank loaded",
			slog.String("path", cfg.QuestionsPath),
			slog.Int("questions", bank.Len()))
	}

	sessions := contest.NewSessions()
	gateway := ws.NewGateway()

	contestHandler := handlers.NewContestHandler(cfg, sessions, bank, gateway, websocket.AcceptOptions{
		InsecureSkipVerify: true, // Accepting all origins.
	})

	mws := []middlewares.Middleware{middlewares.RequestID}
	if cfg.Debug {
		mws = append(mws,
			cors.New(cors.Options{
				AllowedOrigins: []string{"*"},
			}).Handler,
			httplog.LoggerWithConfig(httplog.LoggerConfig{
				RouterName: "Contest",
			}),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /contest", middlewares.Chain(contestHandler, mws...))

	if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))
	}

	srv := http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	slog.Info("listening", slog.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
