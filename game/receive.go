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
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
)

// gameStartingWord is a legacy placeholder some older peers parked in
// the word field while dealing the first ball. Never a losable turn.
const gameStartingWord = "game_starting"

// armDeadlineLocked arms the single turn deadline, replacing any timer
// already armed. The generation counter keeps a fired-but-not-yet-run
// timer of a previous turn from acting on this one.
func (g *Game) armDeadlineLocked(d time.Duration) {
	if g.deadline != nil {
		g.deadline.Stop()
	}
	g.deadlineGen++
	gen := g.deadlineGen
	g.deadline = time.AfterFunc(d, func() { g.deadlineFired(gen) })
}

// cancelDeadlineLocked stops the deadline. Idempotent.
func (g *Game) cancelDeadlineLocked() {
	if g.deadline != nil {
		g.deadline.Stop()
		g.deadline = nil
	}
	g.deadlineGen++
}

func (g *Game) deadlineFired(gen uint64) {
	g.mu.Lock()
	if gen != g.deadlineGen {
		g.mu.Unlock()
		return
	}
	g.deadline = nil
	peers, snap, ok := g.handleLossLocked()
	g.mu.Unlock()
	if ok {
		g.announceLoss(peers, snap)
	}
}

// HandleLoss declares this peer the loser of the turn in flight. No-op
// when no real word is in play.
func (g *Game) HandleLoss() {
	g.mu.Lock()
	peers, snap, ok := g.handleLossLocked()
	g.mu.Unlock()
	if ok {
		g.announceLoss(peers, snap)
	}
}

func (g *Game) handleLossLocked() ([]string, *protocol.Snapshot, bool) {
	if g.currentWord == "" || g.currentWord == gameStartingWord {
		return nil, nil, false
	}
	log.Infof("deadline missed, %s loses on word %q", g.ownID, g.currentWord)
	peers := g.otherPeersLocked()
	snap, _ := g.gameOverLocked(g.ownID, "timeout")
	return peers, snap, true
}

func (g *Game) announceLoss(peers []string, snap *protocol.Snapshot) {
	g.stats.IncTimeoutLosses()
	g.sender.Broadcast("/api/game-over", &protocol.GameOverPayload{Loser: g.ownID, Reason: "timeout"}, peers)
	g.publish(snap)
}

// GameOver ends the match, recording the loser and archiving the
// history. Repeat calls on an already reset peer report so.
func (g *Game) GameOver(loser, reason string) string {
	g.mu.Lock()
	snap, ok := g.gameOverLocked(loser, reason)
	g.mu.Unlock()
	if !ok {
		return "Game already over."
	}
	g.publish(snap)
	return "OK"
}

func (g *Game) gameOverLocked(loser, reason string) (*protocol.Snapshot, bool) {
	if g.currentWord == "" && len(g.history) == 0 {
		return nil, false
	}
	if reason == "" {
		reason = protocol.GameOverReasonUnknown
	}
	log.Infof("game over: %s lost (%s)", loser, reason)
	g.lastLoser = loser
	if len(g.history) > 0 {
		g.archive = append(g.archive, copyHistory(g.history))
	}
	g.resetMatchLocked()
	g.stats.IncGamesFinished()
	return g.snapshotLocked(), true
}

// ReceiveBall adopts the payload as this peer's state and starts the
// countdown. Players and ready sets are unioned, everything else is
// replaced; the sender's incomingTurnCounts are ignored on purpose,
// every peer keeps its own election counts.
func (g *Game) ReceiveBall(p *protocol.BallPayload) error {
	if err := protocol.CheckCompatible(p.Version); err != nil {
		log.Warningf("rejecting ball: %v", err)
		return errBadRequest(err.Error())
	}

	g.mu.Lock()
	g.resetTurnLocked()

	g.players = g.players.Union(mapset.NewSet(p.IncomingPlayers...))
	g.ready = g.ready.Union(mapset.NewSet(p.IncomingReadyPlayers...))
	g.vowelPowers = nestedFloatFromWire(p.PlayerVowelPowers)
	g.cursed = mapset.NewSet(p.CursedLetters...)
	g.dead = mapset.NewSet(p.DeadLetters...)
	g.pads = nestedIntFromWire(p.PlayerPhonePads)
	g.letterCounts = nestedIntFromWire(p.PlayerLetterCounts)
	g.maxTimeouts = intMapFromWire(p.PlayerMaxTimeouts)
	g.inabilities = inabilitiesFromWire(p.PlayerInabilities)
	g.activeMissions = missions.Reconstruct(p.ActiveMissions, true)
	g.completedMissions = missions.Reconstruct(p.CompletedMissions, false)
	g.curseCounts = intMapFromWire(p.LetterCurseCounts)
	g.history = copyHistory(p.IncomingHistory)

	g.currentWord = p.Word
	g.turnTimeoutMs = p.TimeoutMs
	g.turnStart = time.Now()
	g.activePlayer = g.ownID
	g.scrambleFor = p.ScrambleUIForPlayer
	g.forcedLetter = p.ForcedLetter

	g.armDeadlineLocked(time.Duration(p.TimeoutMs) * time.Millisecond)
	g.stats.SetPlayers(g.players.Cardinality())
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.stats.IncBallsReceived()
	log.Debugf("ball received, word %q, %d ms on the clock", p.Word, p.TimeoutMs)
	g.publish(snap)
	return nil
}

func intMapFromWire(in map[string]int) map[string]int {
	if in == nil {
		return map[string]int{}
	}
	return in
}

func nestedIntFromWire(in map[string]map[string]int) map[string]map[string]int {
	if in == nil {
		return map[string]map[string]int{}
	}
	for k, inner := range in {
		if inner == nil {
			in[k] = map[string]int{}
		}
	}
	return in
}

func nestedFloatFromWire(in map[string]map[string]float64) map[string]map[string]float64 {
	if in == nil {
		return map[string]map[string]float64{}
	}
	for k, inner := range in {
		if inner == nil {
			in[k] = map[string]float64{}
		}
	}
	return in
}

func inabilitiesFromWire(in map[string][]string) map[string]mapset.Set[string] {
	out := make(map[string]mapset.Set[string], len(in))
	for k, list := range in {
		out[k] = mapset.NewSet(list...)
	}
	return out
}
