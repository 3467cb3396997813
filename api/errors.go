package api

type WebsocketErrorData struct {
	Request RequestType        `json:"request,omitempty"`
	Code    WebsocketErrorCode `json:"code"`
	Message string             `json:"message,omitempty"`
	Extra   any                `json:"extra,omitempty"`
}

type WebsocketErrorCode uint8

const (
	InvalidRequestCode      WebsocketErrorCode = 201
	UnknownRoomCode         WebsocketErrorCode = 202
	NotHostCode             WebsocketErrorCode = 203
	AlreadyRunningCode      WebsocketErrorCode = 204
	NoActiveQuestionCode    WebsocketErrorCode = 205
	QuestionMismatchCode    WebsocketErrorCode = 206
	AlreadyAnsweredCode     WebsocketErrorCode = 207
	NotInRoomCode           WebsocketErrorCode = 208
	TooManyRequestsCode     WebsocketErrorCode = 209
	InternalServerErrorCode WebsocketErrorCode = 210
)

type ErrorData struct { //nolint: errname
	Request RequestType        `json:"request,omitempty"`
	Code    WebsocketErrorCode `json:"code"`
	Message string             `json:"message,omitempty"`
	Extra   any                `json:"extra,omitempty"`
	Err     error              `json:"-"`
}

func (e ErrorData) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e ErrorData) Unwrap() error {
	return e.Err
}
