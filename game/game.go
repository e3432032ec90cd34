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

// Package game holds the single source of truth of a running match and
// the turn controller driving it. One mutex serializes every state
// transition; anything that blocks (outbound HTTP, websocket pushes,
// the computer's thinking pause) runs outside the critical section on
// snapshots taken inside it. Exported methods take the lock once,
// unexported *Locked helpers assume it is held.
package game

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
	"github.com/wordball/wordball/timeout"
)

// ComputerID is the reserved identifier of the built-in opponent.
const ComputerID = "computer"

const (
	// CurseThreshold is how many times a letter is played before its
	// curse level escalates.
	CurseThreshold = 3
	// PadChargeThreshold caps each phone pad digit's charge.
	PadChargeThreshold = 3
)

// Sender is this peer's outbound HTTP surface. Implementations must
// apply their own bounded timeouts; every method may block and is
// always called without the game lock held.
type Sender interface {
	// SendBall delivers the ball to the next holder.
	SendBall(target string, ball *protocol.BallPayload) error
	// Broadcast posts body to path on every peer, best effort.
	Broadcast(path string, body interface{}, peers []string)
	// RegisterBack introduces this peer to target, best effort.
	RegisterBack(target string, reg *protocol.RegisterPayload)
	// HealthCheck probes a candidate next holder.
	HealthCheck(target string) error
}

// StateSink receives the full state snapshot after every mutation.
type StateSink interface {
	PublishState(*protocol.Snapshot)
}

// Error is a rule violation carrying the HTTP status it maps to.
type Error struct {
	Code   int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func errBadRequest(detail string) *Error {
	return &Error{Code: http.StatusBadRequest, Detail: detail}
}

// Game is one peer's entire view of the match.
type Game struct {
	sender Sender
	sink   StateSink
	stats  stats.Stats

	mu    sync.Mutex
	ownID string

	players    mapset.Set[string]
	ready      mapset.Set[string]
	turnCounts map[string]int
	history    []protocol.HistoryEntry
	archive    [][]protocol.HistoryEntry
	lastLoser  string

	currentWord   string    // "" means no ball in flight
	turnTimeoutMs int       // countdown of the current turn, 0 when idle
	turnStart     time.Time // zero when idle
	activePlayer  string

	vowelPowers  map[string]map[string]float64
	cursed       mapset.Set[string]
	dead         mapset.Set[string]
	pads         map[string]map[string]int
	letterCounts map[string]map[string]int
	maxTimeouts  map[string]int
	inabilities  map[string]mapset.Set[string]
	curseCounts  map[string]int

	activeMissions    []*missions.Mission
	completedMissions []*missions.Mission
	engine            *missions.Engine

	forcedLetter string
	scrambleFor  string
	speedMult    map[string]float64
	baseModifier float64
	attackCombo  string // who armed the "#" malus on themselves

	deadline    *time.Timer
	deadlineGen uint64

	rng           *rand.Rand
	computerDelay time.Duration
}

// New returns a peer's game keyed by its own "host:port" identity.
func New(ownID string, sender Sender, sink StateSink, st stats.Stats) *Game {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &Game{
		sender:        sender,
		sink:          sink,
		stats:         st,
		ownID:         ownID,
		engine:        missions.NewEngine(rng),
		rng:           rng,
		computerDelay: time.Second,
	}
	g.players = mapset.NewSet[string]()
	g.players.Add(ownID)
	g.ready = mapset.NewSet[string]()
	g.turnCounts = map[string]int{ownID: 0}
	g.history = []protocol.HistoryEntry{}
	g.archive = [][]protocol.HistoryEntry{}
	g.cursed = mapset.NewSet[string]()
	g.dead = mapset.NewSet[string]()
	g.vowelPowers = map[string]map[string]float64{}
	g.pads = map[string]map[string]int{}
	g.letterCounts = map[string]map[string]int{}
	g.maxTimeouts = map[string]int{}
	g.inabilities = map[string]mapset.Set[string]{}
	g.curseCounts = map[string]int{}
	g.speedMult = map[string]float64{}
	g.baseModifier = 1.0
	g.ensurePlayerLocked(ownID)
	log.Infof("game initialized, identity %s", ownID)
	return g
}

// OwnID returns this peer's identity.
func (g *Game) OwnID() string {
	return g.ownID
}

// CurrentWord returns the word in flight, false when no game is running.
func (g *Game) CurrentWord() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentWord, g.currentWord != ""
}

// KnowsPeer reports whether id is already a known player.
func (g *Game) KnowsPeer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players.Contains(id)
}

func newEmptySet() mapset.Set[string] {
	return mapset.NewSet[string]()
}

// freshVowels is a full-power vowel table.
func freshVowels() map[string]float64 {
	return map[string]float64{"a": 1.0, "e": 1.0, "i": 1.0, "o": 1.0, "u": 1.0, "y": 1.0}
}

// ensurePlayerLocked gives id an entry in every per-player map, without
// touching the players set.
func (g *Game) ensurePlayerLocked(id string) {
	if _, ok := g.vowelPowers[id]; !ok {
		g.vowelPowers[id] = freshVowels()
	}
	if _, ok := g.pads[id]; !ok {
		g.pads[id] = letters.NewPadCounts()
	}
	if _, ok := g.letterCounts[id]; !ok {
		g.letterCounts[id] = map[string]int{}
	}
	if _, ok := g.maxTimeouts[id]; !ok {
		g.maxTimeouts[id] = timeout.Base
	}
	if _, ok := g.inabilities[id]; !ok {
		g.inabilities[id] = mapset.NewSet[string]()
	}
	if _, ok := g.turnCounts[id]; !ok {
		g.turnCounts[id] = 0
	}
}

// otherPeersLocked lists every remote peer, excluding self and the
// computer, sorted. These are the broadcast targets.
func (g *Game) otherPeersLocked() []string {
	var out []string
	for _, p := range sortedSlice(g.players) {
		if p != g.ownID && p != ComputerID {
			out = append(out, p)
		}
	}
	return out
}

// firstOtherLocked returns the lowest-sorting player that is not id,
// "" when id is alone.
func (g *Game) firstOtherLocked(id string) string {
	for _, p := range sortedSlice(g.players) {
		if p != id {
			return p
		}
	}
	return ""
}

// maxTimeoutLocked is the player's ceiling, Base when unknown.
func (g *Game) maxTimeoutLocked(id string) int {
	if v, ok := g.maxTimeouts[id]; ok {
		return v
	}
	return timeout.Base
}

// turnTimeoutLocked is the countdown of the current turn, Base when idle.
func (g *Game) turnTimeoutLocked() int {
	if g.turnTimeoutMs > 0 {
		return g.turnTimeoutMs
	}
	return timeout.Base
}

// vowelPowerLocked is the player's vowel table, full power when unknown.
func (g *Game) vowelPowerLocked(id string) map[string]float64 {
	if v, ok := g.vowelPowers[id]; ok {
		return v
	}
	return freshVowels()
}

// publish pushes a snapshot to subscribers. Never called under the lock.
func (g *Game) publish(s *protocol.Snapshot) {
	if s == nil || g.sink == nil {
		return
	}
	g.sink.PublishState(s)
}
