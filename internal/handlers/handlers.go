package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"contest-backend/api"
	"contest-backend/internal/config"
	"contest-backend/internal/contest"
	errs "contest-backend/internal/errors"
	"contest-backend/internal/rate"
	"contest-backend/internal/ws"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const requestTimeout = 5 * time.Second

// ContestHandler upgrades connections on the contest endpoint and
// dispatches their requests to the session registry.
type ContestHandler struct {
	cfg      config.Config
	sessions *contest.Sessions
	source   contest.QuestionSource
	gateway  *ws.Gateway
	accept   websocket.AcceptOptions
}

func NewContestHandler(cfg config.Config, sessions *contest.Sessions, source contest.QuestionSource, gateway *ws.Gateway, accept websocket.AcceptOptions) ContestHandler {
	return ContestHandler{
		cfg:      cfg,
		sessions: sessions,
		source:   source,
		gateway:  gateway,
		accept:   accept,
	}
}

func (h ContestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &h.accept)
	if err != nil {
		// Accept already writes a status code and error message.
		slog.Error("websocket accept", slog.Any("error", err))
		return
	}
	conn.SetReadLimit(h.cfg.Websocket.ReadLimit)

	connID := uuid.New().String()
	h.gateway.AddConn(connID, conn)

	ctx := r.Context()
	go ping(ctx, conn, 5*time.Second) // Detect timed out connection.

	defer func() {
		h.gateway.RemoveConn(connID)

		// The request context is gone once the conn drops.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		h.sessions.Disconnect(cleanupCtx, connID)
		cancel()

		conn.CloseNow()
		slog.Info("connection closed", slog.String("conn_id", connID))
	}()

	slog.Info("connection open", slog.String("conn_id", connID))

	limiter := rate.NewLimiter(h.cfg.Websocket.RateWindow, h.cfg.Websocket.RateLimit)

	for {
		req := api.Request[json.RawMessage]{}
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 { // -1 is considered as an err unrelated to closing.
				timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
				errs.WriteWebsocketError(timeoutCtx, conn, errs.InvalidRequestError(err, api.RequestTypeUnknown, "could not read websocket frame"))
				cancel()
			}
			return
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)

		if !limiter.Allow() {
			errs.WriteWebsocketError(timeoutCtx, conn, errs.TooManyRequestsError(req.Type))
			cancel()
			continue
		}

		switch req.Type {
		case api.RequestTypeCreate:
			h.handleCreate(timeoutCtx, conn, connID, req.Data)
		case api.RequestTypeJoin:
			h.handleJoin(timeoutCtx, conn, connID, req.Data)
		case api.RequestTypeStart:
			h.handleStart(timeoutCtx, conn, connID, req.Data)
		case api.RequestTypeAnswer:
			h.handleAnswer(timeoutCtx, conn, connID, req.Data)
		case api.RequestTypeLeave:
			h.handleLeave(timeoutCtx, conn, connID, req.Data)
		default:
			err := fmt.Errorf("unknown request: %s", req.Type)
			errs.WriteWebsocketError(timeoutCtx, conn, errs.InvalidRequestError(err, api.RequestTypeUnknown, err.Error()))
		}

		cancel()
	}
}

func ping(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := conn.Ping(timeoutCtx); err != nil {
				slog.Info("ping failed, closing conn")
				conn.CloseNow()
				cancel()
				return
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}
