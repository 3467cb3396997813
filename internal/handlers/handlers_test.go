package handlers_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contest-backend/api"
	"contest-backend/internal/client"
	"contest-backend/internal/config"
	"contest-backend/internal/contest"
	"contest-backend/internal/handlers"
	"contest-backend/internal/questions"
	"contest-backend/internal/ws"

	cws "github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const clientTimeout = 3 * time.Second

func newTestConfig() config.Config {
	return config.Config{
		Websocket: config.WebsocketConf{
			ReadLimit:  4096,
			RateWindow: time.Second,
			RateLimit:  100,
		},
		Contest: config.ContestConf{
			// Long answer window so nothing fires mid-assertion; the
			// reveal pauses stay short to keep the tests fast.
			AnswerWindow: 30 * time.Second,
			RevealDelay:  20 * time.Millisecond,
			SkipDelay:    10 * time.Millisecond,
		},
	}
}

func newTestBank(t *testing.T) *questions.Bank {
	t.Helper()

	bank, err := questions.NewBank([]questions.Question{
		{
			ID:          "q1",
			Text:        "What is the capital of France?",
			Choices:     []string{"Lyon", "Paris", "Marseille", "Lille"},
			AnswerIndex: 1,
		},
	})
	if err != nil {
		t.Fatalf("%v", err)
	}
	return bank
}

func setupContestServer(t *testing.T, cfg config.Config, bank contest.QuestionSource) *httptest.Server {
	t.Helper()

	handler := handlers.NewContestHandler(cfg, &contest.Sessions{}, bank, ws.NewGateway(), cws.AcceptOptions{
		InsecureSkipVerify: true, // Accepting all origins.
	})

	mux := http.NewServeMux()
	mux.Handle("GET /contest", handler)

	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func dialTestServer(t *testing.T, s *httptest.Server) *client.Client {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/contest"

	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("%v", err)
	}
	defer res.Body.Close()

	cli := client.NewClient(conn, clientTimeout)
	t.Cleanup(cli.Close)

	return cli
}

func readResponse(t *testing.T, cli *client.Client, wantType string) api.Response[json.RawMessage] {
	t.Helper()

	res, err := cli.ReadResponse()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if res.Type != wantType {
		t.Fatalf("response type mismatch, want: %s, got: %s", wantType, res.Type)
	}
	return res
}

func decodeData[T any](t *testing.T, res api.Response[json.RawMessage]) T {
	t.Helper()

	data, err := api.DecodeJSON[T](res.Data)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return data
}

func readError(t *testing.T, cli *client.Client) api.WebsocketErrorData {
	t.Helper()
	return decodeData[api.WebsocketErrorData](t, readResponse(t, cli, api.ResponseTypeError))
}

// createContest drives a create request to completion and returns the
// room code.
func createContest(t *testing.T, cli *client.Client, name string, questionCount int) string {
	t.Helper()

	if err := cli.CreateContest(name, questionCount); err != nil {
		t.Fatalf("%v", err)
	}

	readResponse(t, cli, api.ResponseTypeLobbyUpdate)
	created := decodeData[api.CreateResponseData](t, readResponse(t, cli, api.ResponseTypeCreated))

	if len(created.RoomID) != 5 {
		t.Fatalf("room code length mismatch, want: %d, got: %d", 5, len(created.RoomID))
	}
	return created.RoomID
}

func joinContest(t *testing.T, cli *client.Client, roomID, name string) {
	t.Helper()

	if err := cli.JoinContest(roomID, name); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, cli, api.ResponseTypeLobbyUpdate)
	readResponse(t, cli, api.ResponseTypeJoined)
}

func TestContestFlow(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	host := dialTestServer(t, s)
	roomID := createContest(t, host, "alice", 1)

	player := dialTestServer(t, s)
	joinContest(t, player, roomID, "bob")

	update := decodeData[api.LobbyUpdateData](t, readResponse(t, host, api.ResponseTypeLobbyUpdate))
	assertEqual(t, roomID, update.RoomID)
	if diff := cmp.Diff([]api.LeaderboardEntry{
		{Name: "alice", Score: 0},
		{Name: "bob", Score: 0},
	}, update.Leaderboard); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}

	if err := host.StartContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}

	question := decodeData[api.QuestionData](t, readResponse(t, host, api.ResponseTypeQuestion))
	readResponse(t, host, api.ResponseTypeStarted)
	assertEqual(t, "q1", question.ID)
	assertEqual(t, 4, len(question.Choices))

	playerQuestion := decodeData[api.QuestionData](t, readResponse(t, player, api.ResponseTypeQuestion))
	assertEqual(t, question.ID, playerQuestion.ID)

	// First answer in: correct, but the host has not answered yet so
	// nothing is revealed.
	if err := player.Answer(roomID, question.ID, 1); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, player, api.ResponseTypeAnswered)

	// Last answer in: wrong, triggers the reveal for the whole room.
	if err := host.Answer(roomID, question.ID, 0); err != nil {
		t.Fatalf("%v", err)
	}

	reveal := decodeData[api.RevealData](t, readResponse(t, host, api.ResponseTypeReveal))
	readResponse(t, host, api.ResponseTypeAnswered)

	assertEqual(t, 1, reveal.CorrectIndex)
	if diff := cmp.Diff([]api.ScoredEntry{{Name: "bob", Points: 10}}, reveal.Scored); diff != "" {
		t.Errorf("scored mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]api.LeaderboardEntry{
		{Name: "bob", Score: 10},
		{Name: "alice", Score: 0},
	}, reveal.Leaderboard); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}

	playerReveal := decodeData[api.RevealData](t, readResponse(t, player, api.ResponseTypeReveal))
	assertEqual(t, reveal.CorrectIndex, playerReveal.CorrectIndex)

	// Single question contest: the end follows the reveal pause.
	ended := decodeData[api.ContestEndedData](t, readResponse(t, host, api.ResponseTypeContestEnded))
	if diff := cmp.Diff([]api.LeaderboardEntry{
		{Name: "bob", Score: 10},
		{Name: "alice", Score: 0},
	}, ended.Leaderboard); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
	assertEqual(t, "", ended.Reason)

	readResponse(t, player, api.ResponseTypeContestEnded)
}

func TestContestUnknownRoom(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))
	cli := dialTestServer(t, s)

	if err := cli.JoinContest("ZZZZZ", "bob"); err != nil {
		t.Fatalf("%v", err)
	}
	errData := readError(t, cli)
	assertEqual(t, api.UnknownRoomCode, errData.Code)
	assertEqual(t, api.RequestTypeJoin, errData.Request)

	if err := cli.StartContest("ZZZZZ"); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.UnknownRoomCode, readError(t, cli).Code)

	if err := cli.Answer("ZZZZZ", "q1", 0); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.UnknownRoomCode, readError(t, cli).Code)
}

func TestContestStartErrors(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	host := dialTestServer(t, s)
	roomID := createContest(t, host, "alice", 1)

	player := dialTestServer(t, s)
	joinContest(t, player, roomID, "bob")
	readResponse(t, host, api.ResponseTypeLobbyUpdate)

	if err := player.StartContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	errData := readError(t, player)
	assertEqual(t, api.NotHostCode, errData.Code)
	assertEqual(t, api.RequestTypeStart, errData.Request)

	if err := host.StartContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, host, api.ResponseTypeQuestion)
	readResponse(t, host, api.ResponseTypeStarted)
	readResponse(t, player, api.ResponseTypeQuestion)

	if err := host.StartContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.AlreadyRunningCode, readError(t, host).Code)
}

func TestContestAnswerErrors(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	host := dialTestServer(t, s)
	roomID := createContest(t, host, "alice", 1)

	player := dialTestServer(t, s)
	joinContest(t, player, roomID, "bob")
	readResponse(t, host, api.ResponseTypeLobbyUpdate)

	// No question is active before the start.
	if err := host.Answer(roomID, "q1", 0); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.NoActiveQuestionCode, readError(t, host).Code)

	if err := host.StartContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, host, api.ResponseTypeQuestion)
	readResponse(t, host, api.ResponseTypeStarted)
	readResponse(t, player, api.ResponseTypeQuestion)

	if err := host.Answer(roomID, "stale-id", 0); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.QuestionMismatchCode, readError(t, host).Code)

	if err := host.Answer(roomID, "q1", -1); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.InvalidRequestCode, readError(t, host).Code)

	if err := host.Answer(roomID, "q1", 0); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, host, api.ResponseTypeAnswered)

	if err := host.Answer(roomID, "q1", 1); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.AlreadyAnsweredCode, readError(t, host).Code)

	// A connection that never joined the room cannot answer.
	stranger := dialTestServer(t, s)
	if err := stranger.Answer(roomID, "q1", 0); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.NotInRoomCode, readError(t, stranger).Code)
}

func TestContestLeave(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	host := dialTestServer(t, s)
	roomID := createContest(t, host, "alice", 1)

	player := dialTestServer(t, s)
	joinContest(t, player, roomID, "bob")
	readResponse(t, host, api.ResponseTypeLobbyUpdate)

	// Leaver is unsubscribed before the lobby update goes out.
	if err := player.LeaveContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, player, api.ResponseTypeLeft)

	update := decodeData[api.LobbyUpdateData](t, readResponse(t, host, api.ResponseTypeLobbyUpdate))
	if diff := cmp.Diff([]api.LeaderboardEntry{{Name: "alice", Score: 0}}, update.Leaderboard); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}

	// The last member leaving discards the room entirely.
	if err := host.LeaveContest(roomID); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, host, api.ResponseTypeLeft)

	if err := host.JoinContest(roomID, "alice"); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.UnknownRoomCode, readError(t, host).Code)

	// Leaving an unknown room still acknowledges.
	if err := player.LeaveContest("ZZZZZ"); err != nil {
		t.Fatalf("%v", err)
	}
	readResponse(t, player, api.ResponseTypeLeft)
}

func TestContestHostDisconnect(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	host := dialTestServer(t, s)
	roomID := createContest(t, host, "alice", 1)

	player := dialTestServer(t, s)
	joinContest(t, player, roomID, "bob")
	readResponse(t, host, api.ResponseTypeLobbyUpdate)

	host.Close()

	readResponse(t, player, api.ResponseTypeLobbyUpdate)
	ended := decodeData[api.ContestEndedData](t, readResponse(t, player, api.ResponseTypeContestEnded))
	assertEqual(t, contest.ReasonHostDisconnected, ended.Reason)
	if diff := cmp.Diff([]api.LeaderboardEntry{{Name: "bob", Score: 0}}, ended.Leaderboard); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
}

func TestContestRateLimit(t *testing.T) {
	cfg := newTestConfig()
	cfg.Websocket.RateLimit = 1

	s := setupContestServer(t, cfg, newTestBank(t))
	cli := dialTestServer(t, s)

	if err := cli.CreateContest("alice", 1); err != nil {
		t.Fatalf("%v", err)
	}
	if err := cli.LeaveContest("ZZZZZ"); err != nil {
		t.Fatalf("%v", err)
	}

	readResponse(t, cli, api.ResponseTypeLobbyUpdate)
	readResponse(t, cli, api.ResponseTypeCreated)
	assertEqual(t, api.TooManyRequestsCode, readError(t, cli).Code)
}

func TestContestUnknownRequest(t *testing.T) {
	s := setupContestServer(t, newTestConfig(), newTestBank(t))

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/contest"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("%v", err)
	}
	defer res.Body.Close()
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("%v", err)
	}

	errRes := api.Response[api.WebsocketErrorData]{}
	if err := conn.ReadJSON(&errRes); err != nil {
		t.Fatalf("%v", err)
	}
	assertEqual(t, api.ResponseTypeError, errRes.Type)
	assertEqual(t, api.InvalidRequestCode, errRes.Data.Code)
}

func assertEqual(t *testing.T, want, got interface{}) {
	t.Helper()
	if want != got {
		t.Errorf("assert equal: got %v, want %v", got, want)
	}
}
