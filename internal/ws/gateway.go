// Package ws implements the publish/subscribe gateway that fans
// contest events out to websocket connections. The contest core only
// knows room and connection ids; this package owns the sockets.
package ws

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"
)

// Gateway tracks live websocket connections and their room
// subscriptions.
//
// Multiple goroutines may invoke methods on a Gateway simultaneously.
type Gateway struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	rooms map[string]map[string]struct{}
}

// NewGateway returns an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		conns: map[string]*websocket.Conn{},
		rooms: map[string]map[string]struct{}{},
	}
}

// AddConn registers a connection under its id.
func (g *Gateway) AddConn(connID string, conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[connID] = conn
}

// RemoveConn forgets a connection and drops it from every room.
func (g *Gateway) RemoveConn(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, connID)
	for roomID, members := range g.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(g.rooms, roomID)
		}
	}
}

// JoinRoom subscribes a connection to a room.
func (g *Gateway) JoinRoom(roomID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.rooms[roomID]
	if !ok {
		members = map[string]struct{}{}
		g.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a room.
func (g *Gateway) LeaveRoom(roomID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(g.rooms, roomID)
	}
}

// CloseRoom drops every subscription of a room. Connections stay open;
// they may still participate in other rooms.
func (g *Gateway) CloseRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
}

// ToRoom sends a JSON message to every connection subscribed to a
// room.
func (g *Gateway) ToRoom(ctx context.Context, roomID string, v any) error {
	g.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(g.rooms[roomID]))
	for connID := range g.rooms[roomID] {
		if conn, ok := g.conns[connID]; ok {
			conns = append(conns, conn)
		}
	}
	g.mu.RUnlock()

	errs := errgroup.Group{}
	for _, conn := range conns {
		errs.Go(func() error {
			return wsjson.Write(ctx, conn, v)
		})
	}
	return errs.Wait()
}
