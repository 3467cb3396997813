// Package client implements a minimal contest client used by tests to
// drive the websocket API.
package client

import (
	"encoding/json"
	"time"

	"contest-backend/api"

	"github.com/gorilla/websocket"
)

type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func NewClient(conn *websocket.Conn, timeout time.Duration) *Client {
	return &Client{
		conn:    conn,
		timeout: timeout,
	}
}

func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) send(req api.Request[any]) error {
	if c.timeout > 0 {
		deadline := time.Now().Add(c.timeout)
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(req)
}

// ReadResponse reads the next server message, acks and room broadcasts
// alike.
func (c *Client) ReadResponse() (api.Response[json.RawMessage], error) {
	if c.timeout > 0 {
		deadline := time.Now().Add(c.timeout)
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return api.Response[json.RawMessage]{}, err
		}
	}
	res := api.Response[json.RawMessage]{}
	err := c.conn.ReadJSON(&res)
	return res, err
}

func (c *Client) CreateContest(name string, questionCount int) error {
	return c.send(api.Request[any]{
		Type: api.RequestTypeCreate,
		Data: api.CreateRequestData{
			Name:          name,
			QuestionCount: questionCount,
		},
	})
}

func (c *Client) JoinContest(roomID, name string) error {
	return c.send(api.Request[any]{
		Type: api.RequestTypeJoin,
		Data: api.JoinRequestData{
			RoomID: roomID,
			Name:   name,
		},
	})
}

func (c *Client) StartContest(roomID string) error {
	return c.send(api.Request[any]{
		Type: api.RequestTypeStart,
		Data: api.StartRequestData{
			RoomID: roomID,
		},
	})
}

func (c *Client) Answer(roomID, questionID string, choiceIndex int) error {
	return c.send(api.Request[any]{
		Type: api.RequestTypeAnswer,
		Data: api.AnswerRequestData{
			RoomID:      roomID,
			QuestionID:  questionID,
			ChoiceIndex: choiceIndex,
		},
	})
}

func (c *Client) LeaveContest(roomID string) error {
	return c.send(api.Request[any]{
		Type: api.RequestTypeLeave,
		Data: api.LeaveRequestData{
			RoomID: roomID,
		},
	})
}
