// Package errors maps request failures to the wire error codes and
// writes them back to the single requesting connection. Validation
// errors are never broadcast.
package errors

import (
	"context"
	"errors"
	"log/slog"

	"contest-backend/api"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func WriteWebsocketError(ctx context.Context, conn *websocket.Conn, err error) {
	res := api.Response[api.WebsocketErrorData]{
		Type: api.ResponseTypeError,
	}

	apiErr := &api.ErrorData{}
	if errors.As(err, apiErr) {
		res.Data.Request = apiErr.Request
		res.Data.Code = apiErr.Code
		res.Data.Message = apiErr.Message
		res.Data.Extra = apiErr.Extra
	} else {
		res.Data.Code = api.InternalServerErrorCode
		res.Data.Message = "unexpected error"
	}

	slog.ErrorContext(ctx, "ws error",
		slog.Any("error", err),
		slog.Any("error_code", res.Data.Code))

	if err := wsjson.Write(ctx, conn, res); err != nil {
		slog.ErrorContext(ctx, "ws error: failed to write response", slog.Any("error", err))
	}
}

func InvalidRequestError(err error, req api.RequestType, cause string) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.InvalidRequestCode,
		Message: "invalid request",
		Extra: struct {
			Cause string `json:"cause"`
		}{
			Cause: cause,
		},
		Err: err,
	}
}

func UnknownRoomError(req api.RequestType, roomID string) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.UnknownRoomCode,
		Message: "unknown room",
		Extra: struct {
			RoomID string `json:"roomId"`
		}{
			RoomID: roomID,
		},
	}
}

func NotHostError(err error, req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.NotHostCode,
		Message: "requester is not the host",
		Err:     err,
	}
}

func AlreadyRunningError(err error, req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.AlreadyRunningCode,
		Message: "contest already running",
		Err:     err,
	}
}

func NoActiveQuestionError(err error, req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.NoActiveQuestionCode,
		Message: "no active question",
		Err:     err,
	}
}

func QuestionMismatchError(err error, req api.RequestType, questionID string) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.QuestionMismatchCode,
		Message: "question mismatch",
		Extra: struct {
			QuestionID string `json:"questionId"`
		}{
			QuestionID: questionID,
		},
		Err: err,
	}
}

func AlreadyAnsweredError(err error, req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.AlreadyAnsweredCode,
		Message: "already answered",
		Err:     err,
	}
}

func NotInRoomError(err error, req api.RequestType, roomID string) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.NotInRoomCode,
		Message: "not a room member",
		Extra: struct {
			RoomID string `json:"roomId"`
		}{
			RoomID: roomID,
		},
		Err: err,
	}
}

func TooManyRequestsError(req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.TooManyRequestsCode,
		Message: "too many requests",
	}
}

func InternalServerError(err error, req api.RequestType) api.ErrorData {
	return api.ErrorData{
		Request: req,
		Code:    api.InternalServerErrorCode,
		Message: "internal server error",
		Err:     err,
	}
}
