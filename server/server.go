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

// Package server exposes the game to local clients and to other peers
// over one HTTP API, and wires the game core to its transport: the
// dispatcher for outbound peer calls, the subnet scanner for
// discovery, and the WebSocket hub for browser state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/discovery"
	"github.com/wordball/wordball/game"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
	"github.com/wordball/wordball/ws"
)

// Server owns the game instance of one peer and its HTTP surface.
type Server struct {
	cfg        *Config
	game       *game.Game
	hub        *ws.Hub
	scanner    *discovery.Scanner
	dispatcher *Dispatcher
	stats      stats.Stats
}

// New wires a server from config. The monitoring server is not
// started here; main owns its lifecycle.
func New(cfg *Config, st stats.Stats) *Server {
	s := &Server{cfg: cfg, stats: st}
	s.dispatcher = NewDispatcher(cfg)
	s.game = game.New(cfg.ID(), s.dispatcher, s, st)
	s.hub = ws.NewHub(s.game.Snapshot, st)
	s.scanner = &discovery.Scanner{
		OwnHost:     cfg.OwnHost,
		CIDR:        cfg.NetmaskCIDR,
		Port:        cfg.Port,
		Timeout:     cfg.PingTimeout,
		Concurrency: cfg.ScanConcurrency,
		Known:       s.game.KnowsPeer,
		Stats:       st,
	}
	return s
}

// PublishState implements game.StateSink by delegating to the hub.
func (s *Server) PublishState(snap *protocol.Snapshot) {
	s.hub.PublishState(snap)
}

// Start serves the game API until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Mux(),
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Infof("serving game API on %s as %s", srv.Addr, s.cfg.ID())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Mux builds the full route table.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/ping", s.handlePing)
	mux.HandleFunc("GET /api/get-ball", s.handleGetBall)
	mux.HandleFunc("POST /api/discover", s.handleDiscover)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/ready", s.handleReady)
	mux.HandleFunc("POST /api/notify-ready", s.handleNotifyReady)
	mux.HandleFunc("POST /api/receive-ball", s.handleReceiveBall)
	mux.HandleFunc("POST /api/pass-ball", s.handlePassBall)
	mux.HandleFunc("POST /api/game-over", s.handleGameOver)
	mux.HandleFunc("POST /api/rematch", s.handleRematch)
	mux.HandleFunc("POST /api/rematch-broadcast", s.handleRematchBroadcast)
	mux.HandleFunc("POST /api/combo", s.handleCombo)
	mux.HandleFunc("POST /api/power-up", s.handlePowerUp)
	mux.Handle("GET /ws", s.hub)
	return allowCORS(mux)
}

// allowCORS lets the game UI, served from another origin during
// development, reach the API.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("writing response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, &protocol.Message{Message: msg})
}

// writeError maps game rule violations to their HTTP codes and
// everything else to a 500.
func writeError(w http.ResponseWriter, err error) {
	gameErr := &game.Error{}
	if errors.As(err, &gameErr) {
		writeJSON(w, gameErr.Code, &protocol.Error{Detail: gameErr.Detail})
		return
	}
	writeJSON(w, http.StatusInternalServerError, &protocol.Error{Detail: err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &game.Error{Code: http.StatusBadRequest, Detail: "Malformed request body."}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &protocol.HealthResponse{Status: "ok"})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &protocol.PingResponse{Message: "pong", Identity: s.cfg.ID()})
}

func (s *Server) handleGetBall(w http.ResponseWriter, r *http.Request) {
	resp := &protocol.WordResponse{}
	if word, ok := s.game.CurrentWord(); ok {
		resp.Word = &word
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	go s.runDiscovery()
	writeMessage(w, "Discovery process started.")
}

// runDiscovery scans the subnet and runs the register handshake with
// every peer that answered.
func (s *Server) runDiscovery() {
	reg := s.game.RegisterPayload()
	for _, peer := range s.scanner.Scan(context.Background()) {
		if peer == s.cfg.ID() {
			continue
		}
		s.dispatcher.RegisterBack(peer, reg)
	}
	s.game.PublishState()
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := &protocol.RegisterPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, s.game.Register(p))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, s.game.Ready())
}

func (s *Server) handleNotifyReady(w http.ResponseWriter, r *http.Request) {
	p := &protocol.ReadyPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, s.game.NotifyReady(p.PlayerID))
}

func (s *Server) handleReceiveBall(w http.ResponseWriter, r *http.Request) {
	p := &protocol.BallPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	if err := s.game.ReceiveBall(p); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Ball received.")
}

func (s *Server) handlePassBall(w http.ResponseWriter, r *http.Request) {
	p := &protocol.PassBallPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.game.PassBall(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, msg)
}

func (s *Server) handleGameOver(w http.ResponseWriter, r *http.Request) {
	p := &protocol.GameOverPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	if p.Reason == "" {
		p.Reason = protocol.GameOverReasonUnknown
	}
	writeMessage(w, s.game.GameOver(p.Loser, p.Reason))
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, s.game.Rematch())
}

func (s *Server) handleRematchBroadcast(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, s.game.RematchBroadcast())
}

func (s *Server) handleCombo(w http.ResponseWriter, r *http.Request) {
	p := &protocol.ComboPayload{}
	if err := decode(r, p); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.game.Combo(p.ComboKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, msg)
}

func (s *Server) handlePowerUp(w http.ResponseWriter, r *http.Request) {
	msg, err := s.game.PowerUp()
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, msg)
}
