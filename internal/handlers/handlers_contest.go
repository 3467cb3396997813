package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"contest-backend/api"
	"contest-backend/internal/contest"
	errs "contest-backend/internal/errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func (h ContestHandler) handleCreate(ctx context.Context, conn *websocket.Conn, connID string, data json.RawMessage) {
	req, err := api.DecodeJSON[api.CreateRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(err, api.RequestTypeCreate, "invalid create request"))
		return
	}

	name := req.Name
	if name == "" {
		name = "Host"
	}

	session, err := h.sessions.Register(ctx, contest.SessionOptions{
		HostID:        connID,
		HostName:      name,
		QuestionCount: req.QuestionCount,
		Source:        h.source,
		Broadcaster:   h.gateway,
		Timings: contest.Timings{
			AnswerWindow: h.cfg.Contest.AnswerWindow,
			RevealDelay:  h.cfg.Contest.RevealDelay,
			SkipDelay:    h.cfg.Contest.SkipDelay,
		},
	})
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InternalServerError(err, api.RequestTypeCreate))
		return
	}

	res := &api.Response[api.CreateResponseData]{
		Type: api.ResponseTypeCreated,
		Data: api.CreateResponseData{RoomID: session.ID()},
	}
	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.Error("create response write",
			slog.String("room_id", session.ID()),
			slog.Any("error", err))
	}

	slog.Info("contest created",
		slog.String("room_id", session.ID()),
		slog.String("conn_id", connID))
}

func (h ContestHandler) handleJoin(ctx context.Context, conn *websocket.Conn, connID string, data json.RawMessage) {
	req, err := api.DecodeJSON[api.JoinRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(err, api.RequestTypeJoin, "invalid join request"))
		return
	}

	session, ok := h.sessions.Get(req.RoomID)
	if !ok {
		errs.WriteWebsocketError(ctx, conn, errs.UnknownRoomError(api.RequestTypeJoin, req.RoomID))
		return
	}

	name := req.Name
	if name == "" {
		name = "Anon"
	}
	session.Join(ctx, connID, name)

	res := &api.Response[api.EmptyResponseData]{
		Type: api.ResponseTypeJoined,
	}
	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.Error("join response write",
			slog.String("room_id", req.RoomID),
			slog.Any("error", err))
	}

	slog.Info("member joined",
		slog.String("room_id", req.RoomID),
		slog.String("conn_id", connID),
		slog.String("name", name))
}

func (h ContestHandler) handleStart(ctx context.Context, conn *websocket.Conn, connID string, data json.RawMessage) {
	req, err := api.DecodeJSON[api.StartRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(err, api.RequestTypeStart, "invalid start request"))
		return
	}

	session, ok := h.sessions.Get(req.RoomID)
	if !ok {
		errs.WriteWebsocketError(ctx, conn, errs.UnknownRoomError(api.RequestTypeStart, req.RoomID))
		return
	}

	if err := session.Start(ctx, connID); err != nil {
		errs.WriteWebsocketError(ctx, conn, contestError(err, api.RequestTypeStart, req.RoomID, ""))
		return
	}

	res := &api.Response[api.EmptyResponseData]{
		Type: api.ResponseTypeStarted,
	}
	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.Error("start response write",
			slog.String("room_id", req.RoomID),
			slog.Any("error", err))
	}
}

func (h ContestHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, connID string, data json.RawMessage) {
	req, err := api.DecodeJSON[api.AnswerRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(err, api.RequestTypeAnswer, "invalid answer request"))
		return
	}
	if req.ChoiceIndex < 0 {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(nil, api.RequestTypeAnswer, "negative choice index"))
		return
	}

	session, ok := h.sessions.Get(req.RoomID)
	if !ok {
		errs.WriteWebsocketError(ctx, conn, errs.UnknownRoomError(api.RequestTypeAnswer, req.RoomID))
		return
	}

	if err := session.SubmitAnswer(ctx, connID, req.QuestionID, req.ChoiceIndex); err != nil {
		errs.WriteWebsocketError(ctx, conn, contestError(err, api.RequestTypeAnswer, req.RoomID, req.QuestionID))
		return
	}

	res := &api.Response[api.EmptyResponseData]{
		Type: api.ResponseTypeAnswered,
	}
	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.Error("answer response write",
			slog.String("room_id", req.RoomID),
			slog.Any("error", err))
	}
}

// handleLeave is idempotent from the caller's view: leaving an unknown
// room or a room never joined still acknowledges.
func (h ContestHandler) handleLeave(ctx context.Context, conn *websocket.Conn, connID string, data json.RawMessage) {
	req, err := api.DecodeJSON[api.LeaveRequestData](data)
	if err != nil {
		errs.WriteWebsocketError(ctx, conn, errs.InvalidRequestError(err, api.RequestTypeLeave, "invalid leave request"))
		return
	}

	if session, ok := h.sessions.Get(req.RoomID); ok {
		if empty := session.Leave(ctx, connID); empty {
			h.sessions.Delete(session.ID())
		}
	}

	res := &api.Response[api.EmptyResponseData]{
		Type: api.ResponseTypeLeft,
	}
	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.Error("leave response write",
			slog.String("room_id", req.RoomID),
			slog.Any("error", err))
	}
}

// contestError converts core sentinel errors to their wire codes.
func contestError(err error, req api.RequestType, roomID, questionID string) api.ErrorData {
	switch {
	case errors.Is(err, contest.ErrNotHost):
		return errs.NotHostError(err, req)
	case errors.Is(err, contest.ErrAlreadyRunning):
		return errs.AlreadyRunningError(err, req)
	case errors.Is(err, contest.ErrNoActiveQuestion):
		return errs.NoActiveQuestionError(err, req)
	case errors.Is(err, contest.ErrQuestionMismatch):
		return errs.QuestionMismatchError(err, req, questionID)
	case errors.Is(err, contest.ErrAlreadyAnswered):
		return errs.AlreadyAnsweredError(err, req)
	case errors.Is(err, contest.ErrNotInRoom):
		return errs.NotInRoomError(err, req, roomID)
	default:
		return errs.InternalServerError(err, req)
	}
}
