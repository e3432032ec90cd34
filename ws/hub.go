/*
Copyright (c) the wordball authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ws fans out game state snapshots to browser subscribers over
// WebSocket. Subscribers are read-only: the hub pushes a full snapshot
// on connect and after every state mutation, and never reads frames
// besides control messages.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
)

const writeTimeout = 5 * time.Second

// subscriber owns one connection. gorilla connections allow a single
// concurrent writer, and publishes can arrive from several game
// goroutines at once, so every write goes through the subscriber's
// mutex.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connected subscribers and pushes snapshots to all of
// them. A subscriber that fails a write is dropped on the spot.
type Hub struct {
	// Snapshot produces the current state for the initial push.
	snapshot func() *protocol.Snapshot
	stats    stats.Stats

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]*subscriber
}

// NewHub returns a hub that serves snapshots produced by the given
// function. The game UI is served from another origin during
// development, so cross-origin upgrades are allowed.
func NewHub(snapshot func() *protocol.Snapshot, st stats.Stats) *Hub {
	return &Hub{
		snapshot: snapshot,
		stats:    st,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: map[*websocket.Conn]*subscriber{},
	}
}

// ServeHTTP upgrades the request and registers the subscriber. The
// connection stays open until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	sub := h.add(conn)
	if err := h.send(sub, h.snapshot()); err != nil {
		h.drop(conn)
		return
	}
	// Drain the connection so pings are answered and closes noticed;
	// subscriber frames carry no commands.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// PublishState implements game.StateSink: every subscriber gets the
// snapshot, serialized once.
func (h *Hub) PublishState(snap *protocol.Snapshot) {
	data, err := marshal(snap)
	if err != nil {
		log.Errorf("marshaling state snapshot: %v", err)
		return
	}
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.conns))
	for _, s := range h.conns {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		if err := s.write(data); err != nil {
			h.drop(s.conn)
		}
	}
}

// ClientCount reports how many subscribers are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func marshal(snap *protocol.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func (h *Hub) send(sub *subscriber, snap *protocol.Snapshot) error {
	data, err := marshal(snap)
	if err != nil {
		return err
	}
	return sub.write(data)
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.conns[conn] = sub
	n := len(h.conns)
	h.mu.Unlock()
	log.Debugf("websocket subscriber connected, %d active", n)
	if h.stats != nil {
		h.stats.SetWSClients(n)
	}
	return sub
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	if _, ok := h.conns[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	log.Debugf("websocket subscriber dropped, %d active", n)
	if h.stats != nil {
		h.stats.SetWSClients(n)
	}
}
