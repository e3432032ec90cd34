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

package game

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/stats"
	"github.com/wordball/wordball/timeout"
)

type sentBall struct {
	target string
	ball   *protocol.BallPayload
}

type stubSender struct {
	mu         sync.Mutex
	sent       []sentBall
	sendErr    error
	healthErr  map[string]error
	broadcasts []string
	registered []string
}

func (s *stubSender) SendBall(target string, ball *protocol.BallPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentBall{target: target, ball: ball})
	return nil
}

func (s *stubSender) Broadcast(path string, _ interface{}, _ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasts = append(s.broadcasts, path)
}

func (s *stubSender) RegisterBack(target string, _ *protocol.RegisterPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, target)
}

func (s *stubSender) HealthCheck(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.healthErr == nil {
		return nil
	}
	return s.healthErr[target]
}

func (s *stubSender) lastSent() (sentBall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentBall{}, false
	}
	return s.sent[len(s.sent)-1], true
}

func (s *stubSender) sawBroadcast(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.broadcasts {
		if p == path {
			return true
		}
	}
	return false
}

func (s *stubSender) registeredWith(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registered {
		if r == target {
			return true
		}
	}
	return false
}

type stubSink struct {
	mu    sync.Mutex
	snaps []*protocol.Snapshot
}

func (s *stubSink) PublishState(snap *protocol.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *stubSink) last() *protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil
	}
	return s.snaps[len(s.snaps)-1]
}

func newTestGame(id string) (*Game, *stubSender, *stubSink) {
	sender := &stubSender{}
	sink := &stubSink{}
	g := New(id, sender, sink, stats.NewJSONStats())
	g.rng = rand.New(rand.NewSource(1))
	g.engine = missions.NewEngine(g.rng)
	g.computerDelay = 0
	return g, sender, sink
}

// testBall builds a minimal consistent ball for the given participants.
func testBall(word string, timeoutMs int, players ...string) *protocol.BallPayload {
	powers := map[string]map[string]float64{}
	pads := map[string]map[string]int{}
	counts := map[string]map[string]int{}
	maxTO := map[string]int{}
	inab := map[string][]string{}
	for _, p := range players {
		powers[p] = freshVowels()
		pads[p] = map[string]int{"2": 0, "3": 0, "4": 0, "5": 0, "6": 0, "7": 0, "8": 0, "9": 0}
		counts[p] = map[string]int{}
		maxTO[p] = timeout.Base
		inab[p] = []string{}
	}
	return &protocol.BallPayload{
		Word:                 word,
		TimeoutMs:            timeoutMs,
		PlayerVowelPowers:    powers,
		CursedLetters:        []string{},
		DeadLetters:          []string{},
		PlayerPhonePads:      pads,
		PlayerLetterCounts:   counts,
		PlayerMaxTimeouts:    maxTO,
		PlayerInabilities:    inab,
		LetterCurseCounts:    map[string]int{},
		IncomingPlayers:      players,
		IncomingTurnCounts:   map[string]int{},
		IncomingReadyPlayers: players,
		IncomingHistory:      []protocol.HistoryEntry{},
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func TestSoloReadyStartsGame(t *testing.T) {
	g, _, sink := newTestGame("localhost:5000")
	msg := g.Ready()
	require.Equal(t, "You are ready.", msg)
	require.True(t, g.KnowsPeer(ComputerID))

	require.Eventually(t, func() bool {
		w, ok := g.CurrentWord()
		return ok && len(w) >= 1 && w != gameStartingWord
	}, 2*time.Second, 10*time.Millisecond)

	snap := sink.last()
	require.NotNil(t, snap)
	require.Contains(t, snap.Players, ComputerID)
	require.Contains(t, snap.Players, "localhost:5000")
}

func TestReadyThenNotifyReadyStarts(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	require.Equal(t, "Registered", g.Register(&protocol.RegisterPayload{IP: "b:5000"}))

	g.Ready()
	require.True(t, sender.sawBroadcast("/api/notify-ready"))
	_, running := g.CurrentWord()
	require.False(t, running)

	g.NotifyReady("b:5000")
	// a:5000 is both initiator and first ready player, so the first
	// ball loops back locally.
	require.Eventually(t, func() bool {
		w, ok := g.CurrentWord()
		return ok && len(w) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGameOverIdempotent(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	require.Equal(t, "Game already over.", g.GameOver("a:5000", "timeout"))

	require.NoError(t, g.ReceiveBall(testBall("ab", 60000, "a:5000", "b:5000")))
	require.Equal(t, "OK", g.GameOver("b:5000", "timeout"))
	g.mu.Lock()
	loser := g.lastLoser
	g.mu.Unlock()
	require.Equal(t, "b:5000", loser)

	require.Equal(t, "Game already over.", g.GameOver("b:5000", "timeout"))
}

func TestRegisterMergesState(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	archive := [][]protocol.HistoryEntry{{{Player: "b:5000", Word: "x", ResponseTimeMs: 100}}}
	msg := g.Register(&protocol.RegisterPayload{
		IP:                   "b:5000",
		InitialPlayers:       []string{"b:5000", "c:5000"},
		InitialCursedLetters: []string{"q"},
		InitialDeadLetters:   []string{"z"},
		InitialArchive:       archive,
		InitialLetterCurseCounts: map[string]int{
			"q": 1, "z": 2,
		},
	})
	require.Equal(t, "Registered", msg)
	require.True(t, g.KnowsPeer("b:5000"))
	require.True(t, g.KnowsPeer("c:5000"))

	g.mu.Lock()
	cursed := g.cursed.Contains("q")
	dead := g.dead.Contains("z")
	archLen := len(g.archive)
	_, hasPads := g.pads["b:5000"]
	g.mu.Unlock()
	require.True(t, cursed)
	require.True(t, dead)
	require.Equal(t, 1, archLen)
	require.True(t, hasPads)

	require.Eventually(t, func() bool {
		return sender.registeredWith("b:5000")
	}, time.Second, 10*time.Millisecond)
}

func TestRegisterKeepsLongerArchive(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	g.mu.Lock()
	g.archive = [][]protocol.HistoryEntry{
		{{Player: "a:5000", Word: "x"}},
		{{Player: "a:5000", Word: "y"}},
	}
	g.mu.Unlock()

	g.Register(&protocol.RegisterPayload{
		IP:             "b:5000",
		InitialArchive: [][]protocol.HistoryEntry{{{Player: "b:5000", Word: "z"}}},
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	require.Len(t, g.archive, 2)
	require.Equal(t, "x", g.archive[0][0].Word)
}

func TestRegisterSecondTimeDoesNotRegisterBack(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	g.Register(&protocol.RegisterPayload{IP: "b:5000"})
	require.Eventually(t, func() bool {
		return sender.registeredWith("b:5000")
	}, time.Second, 10*time.Millisecond)

	g.Register(&protocol.RegisterPayload{IP: "b:5000"})
	time.Sleep(50 * time.Millisecond)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.registered, 1)
}

func TestRematchRearmsEverything(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	g.mu.Lock()
	g.history = []protocol.HistoryEntry{{Player: "a:5000", Word: "ab", ResponseTimeMs: 10}}
	g.cursed.Add("s")
	g.mu.Unlock()

	require.Equal(t, "Rematch proposed.", g.Rematch())
	require.True(t, sender.sawBroadcast("/api/rematch-broadcast"))

	g.mu.Lock()
	archLen := len(g.archive)
	cursed := g.cursed.Cardinality()
	readyAll := g.players.IsSubset(g.ready) && g.ready.IsSubset(g.players)
	activeMissions := len(g.activeMissions)
	g.mu.Unlock()
	require.Equal(t, 1, archLen)
	require.Equal(t, 0, cursed)
	require.True(t, readyAll)
	require.Equal(t, 3, activeMissions)

	// solo rematch restarts the game
	require.Eventually(t, func() bool {
		_, ok := g.CurrentWord()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeadlineExpiryLosesGame(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	require.NoError(t, g.ReceiveBall(testBall("ab", 30, "a:5000", "b:5000")))

	require.Eventually(t, func() bool {
		return sender.sawBroadcast("/api/game-over")
	}, 2*time.Second, 10*time.Millisecond)
	_, running := g.CurrentWord()
	require.False(t, running)
	g.mu.Lock()
	defer g.mu.Unlock()
	require.Equal(t, "a:5000", g.lastLoser)
	require.Len(t, g.archive, 0) // no moves were played
}

func TestReceiveBallRejectsIncompatibleVersion(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000")
	b.Version = "2.0.0"
	err := g.ReceiveBall(b)
	require.Error(t, err)
	gameErr := &Error{}
	require.True(t, errors.As(err, &gameErr))
	require.Equal(t, 400, gameErr.Code)
}

func TestPerPeerMapsCoverAllPlayers(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	g.Register(&protocol.RegisterPayload{IP: "b:5000"})
	g.Register(&protocol.RegisterPayload{IP: "c:5000", InitialPlayers: []string{"d:5000"}})

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range sortedSlice(g.players) {
		require.Contains(t, g.vowelPowers, id)
		require.Contains(t, g.pads, id)
		require.Contains(t, g.letterCounts, id)
		require.Contains(t, g.maxTimeouts, id)
		require.Contains(t, g.inabilities, id)
		require.Contains(t, g.turnCounts, id)
	}
}
