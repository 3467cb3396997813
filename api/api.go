package api

import "encoding/json"

type RequestType string

const (
	RequestTypeUnknown RequestType = ""
	RequestTypeCreate  RequestType = "createContest"
	RequestTypeJoin    RequestType = "joinContest"
	RequestTypeStart   RequestType = "startContest"
	RequestTypeAnswer  RequestType = "answer"
	RequestTypeLeave   RequestType = "leaveContest"
)

type Request[T any] struct {
	Type RequestType `json:"type"`
	Data T           `json:"data,omitempty"`
}

const (
	ResponseTypeError    = "error"
	ResponseTypeCreated  = "created"
	ResponseTypeJoined   = "joined"
	ResponseTypeStarted  = "started"
	ResponseTypeAnswered = "answered"
	ResponseTypeLeft     = "left"

	// Broadcast events addressed to a whole room.
	ResponseTypeLobbyUpdate  = "lobbyUpdate"
	ResponseTypeQuestion     = "question"
	ResponseTypeReveal       = "reveal"
	ResponseTypeContestEnded = "contestEnded"
)

type Response[T any] struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type EmptyRequestData struct{}

type EmptyResponseData struct{}

type CreateRequestData struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount,omitempty"`
}

type CreateResponseData struct {
	RoomID string `json:"roomId"`
}

type JoinRequestData struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type StartRequestData struct {
	RoomID string `json:"roomId"`
}

type AnswerRequestData struct {
	RoomID      string `json:"roomId"`
	QuestionID  string `json:"questionId"`
	ChoiceIndex int    `json:"choiceIndex"`
}

type LeaveRequestData struct {
	RoomID string `json:"roomId"`
}

// LeaderboardEntry is one row of a room scoreboard. The server sorts
// entries before emission, clients render them as-is.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type LobbyUpdateData struct {
	RoomID      string             `json:"roomId"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// QuestionData is the public view of a question. The correct choice
// index is never part of it.
type QuestionData struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

type ScoredEntry struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type RevealData struct {
	CorrectIndex int                `json:"correctIndex"`
	Scored       []ScoredEntry      `json:"scored"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
}

type ContestEndedData struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Reason      string             `json:"reason,omitempty"`
}

// DecodeJSON decodes a raw request payload into a concrete request type.
func DecodeJSON[T any](data json.RawMessage) (res T, err error) {
	if len(data) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, err
	}
	return res, nil
}
