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
	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/timeout"
)

// Ready marks this peer ready. A peer that is alone on the subnet gets
// the computer injected as its opponent; otherwise the readiness is
// broadcast. When everyone known is ready the initiator deals the
// first ball.
func (g *Game) Ready() string {
	g.mu.Lock()
	g.ready.Add(g.ownID)

	alone := g.players.Cardinality() == 1 && g.players.Contains(g.ownID)
	if alone {
		if !g.players.Contains(ComputerID) {
			g.players.Add(ComputerID)
			g.ensurePlayerLocked(ComputerID)
			log.Info("playing alone, computer opponent joins")
		}
		g.ready.Add(ComputerID)
	}

	var notifyPeers []string
	if !alone {
		notifyPeers = g.otherPeersLocked()
	}
	start := g.maybeStartLocked(true)
	g.stats.SetReadyPlayers(g.ready.Cardinality())
	g.stats.SetPlayers(g.players.Cardinality())
	snap := g.snapshotLocked()
	g.mu.Unlock()

	if len(notifyPeers) > 0 {
		g.sender.Broadcast("/api/notify-ready", &protocol.ReadyPayload{PlayerID: g.ownID}, notifyPeers)
	}
	if start != nil {
		g.dispatchStart(*start)
	}
	g.publish(snap)
	return "You are ready."
}

// NotifyReady records a remote peer's readiness. Only the initiator
// reacts when this completes the ready set.
func (g *Game) NotifyReady(playerID string) string {
	g.mu.Lock()
	g.ready.Add(playerID)
	start := g.maybeStartLocked(false)
	g.stats.SetReadyPlayers(g.ready.Cardinality())
	snap := g.snapshotLocked()
	g.mu.Unlock()

	if start != nil {
		g.dispatchStart(*start)
	}
	g.publish(snap)
	return "Notification received."
}

// maybeStartLocked starts the game when every known player is ready and
// no ball is in flight. Only the lexicographic minimum peer initiates;
// a peer playing the computer initiates on its behalf when asked to
// (the computer cannot).
func (g *Game) maybeStartLocked(forComputer bool) *handoff {
	if g.currentWord != "" {
		return nil
	}
	if g.ready.Cardinality() < 1 || !g.players.IsSubset(g.ready) {
		return nil
	}
	initiator := sortedSlice(g.players)[0]
	if g.ownID != initiator && !(forComputer && g.players.Contains(ComputerID)) {
		return nil
	}
	return g.startGameLocked()
}

// startGameLocked reinitializes the modifier stack over the ready
// players, deals the initial missions and builds the first ball for the
// least-sorting ready player.
func (g *Game) startGameLocked() *handoff {
	if g.currentWord != "" {
		return nil
	}
	readyIDs := sortedSlice(g.ready)
	if len(readyIDs) == 0 {
		return nil
	}
	g.initMatchLocked(readyIDs)
	g.activeMissions = g.engine.SelectInitial()
	g.completedMissions = nil

	first := readyIDs[0]
	startWord := letters.Random(g.rng)
	for _, id := range readyIDs {
		if _, ok := g.turnCounts[id]; !ok {
			g.turnCounts[id] = 0
		}
	}
	g.turnCounts[first]++
	g.activePlayer = first

	log.Infof("starting game, first letter %q, first player %s", startWord, first)
	g.stats.IncGamesStarted()
	ball := g.ballPayloadLocked(startWord, timeout.Base)
	ball.IncomingHistory = []protocol.HistoryEntry{}
	return &handoff{next: first, ball: ball}
}

// dispatchStart deals the first ball of a game.
func (g *Game) dispatchStart(h handoff) {
	switch h.next {
	case ComputerID:
		go g.playComputerTurn(h.ball)
	case g.ownID:
		go func() {
			if err := g.ReceiveBall(h.ball); err != nil {
				log.Errorf("local ball delivery refused: %v", err)
			}
		}()
	default:
		go func() {
			if err := g.sender.SendBall(h.next, h.ball); err != nil {
				log.Errorf("failed to deal first ball to %s: %v", h.next, err)
				g.stats.IncSendFailures()
				return
			}
			g.stats.IncBallsSent()
		}()
	}
}

// Register merges an incoming peer's identity and state view into ours.
// A peer we did not know triggers a register-back carrying our own view
// so both sides converge.
func (g *Game) Register(p *protocol.RegisterPayload) string {
	g.mu.Lock()

	newPeer := ""
	if p.IP != "" && !g.players.Contains(p.IP) {
		g.players.Add(p.IP)
		g.ensurePlayerLocked(p.IP)
		newPeer = p.IP
		log.Infof("new peer registered: %s", p.IP)
	}

	for _, id := range p.InitialPlayers {
		if !g.players.Contains(id) {
			g.players.Add(id)
			g.ensurePlayerLocked(id)
		}
	}
	for id, n := range p.InitialTurnCounts {
		g.turnCounts[id] = n
	}
	g.ready = g.ready.Union(mapset.NewSet(p.InitialReadyPlayers...))
	if len(p.InitialArchive) > len(g.archive) {
		g.archive = copyArchive(p.InitialArchive)
	}

	for id, powers := range p.InitialPlayerVowelPowers {
		g.vowelPowers[id] = powers
	}
	g.cursed = g.cursed.Union(mapset.NewSet(p.InitialCursedLetters...))
	g.dead = g.dead.Union(mapset.NewSet(p.InitialDeadLetters...))
	for id, pad := range p.InitialPlayerPhonePads {
		g.pads[id] = pad
	}
	for id, counts := range p.InitialPlayerLetterCounts {
		g.letterCounts[id] = counts
	}
	for id, t := range p.InitialPlayerMaxTimeouts {
		g.maxTimeouts[id] = t
	}
	for id, list := range p.InitialPlayerInabilities {
		g.inabilities[id] = mapset.NewSet(list...)
	}
	if len(p.InitialActiveMissions) > 0 {
		g.activeMissions = missions.Reconstruct(p.InitialActiveMissions, true)
	}
	if len(p.InitialCompletedMissions) > 0 {
		g.completedMissions = missions.Reconstruct(p.InitialCompletedMissions, false)
	}
	for l, n := range p.InitialLetterCurseCounts {
		g.curseCounts[l] = n
	}

	g.stats.SetPlayers(g.players.Cardinality())
	g.stats.SetReadyPlayers(g.ready.Cardinality())
	var reg *protocol.RegisterPayload
	if newPeer != "" {
		reg = g.registerPayloadLocked()
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.stats.IncRegisters()
	if newPeer != "" {
		go g.sender.RegisterBack(newPeer, reg)
	}
	g.publish(snap)
	return "Registered"
}

// Rematch archives the finished game, re-readies everybody and lets the
// initiator start over. The proposal is relayed to peers first so the
// whole group resets.
func (g *Game) Rematch() string {
	g.mu.Lock()
	peers := g.otherPeersLocked()
	g.mu.Unlock()
	g.sender.Broadcast("/api/rematch-broadcast", struct{}{}, peers)
	g.rematch()
	return "Rematch proposed."
}

// RematchBroadcast is the receiving side of a rematch proposal.
func (g *Game) RematchBroadcast() string {
	g.rematch()
	return "OK"
}

func (g *Game) rematch() {
	g.mu.Lock()
	if len(g.history) > 0 {
		g.archive = append(g.archive, copyHistory(g.history))
	}
	g.resetTurnLocked()
	g.history = []protocol.HistoryEntry{}
	g.lastLoser = ""
	g.attackCombo = ""
	g.ready = g.players.Clone()
	g.initMatchLocked(sortedSlice(g.players))
	g.activeMissions = g.engine.SelectInitial()
	g.completedMissions = nil

	var start *handoff
	initiator := sortedSlice(g.players)[0]
	if g.ownID == initiator || g.players.Contains(ComputerID) {
		start = g.startGameLocked()
	}
	g.stats.SetReadyPlayers(g.ready.Cardinality())
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info("rematch: game state rearmed")
	if start != nil {
		g.dispatchStart(*start)
	}
	g.publish(snap)
}

// RegisterPayload snapshots this peer's full state for a register-back.
func (g *Game) RegisterPayload() *protocol.RegisterPayload {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registerPayloadLocked()
}

// Snapshot captures the subscriber-facing state.
func (g *Game) Snapshot() *protocol.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// PublishState pushes the current state to subscribers.
func (g *Game) PublishState() {
	g.publish(g.Snapshot())
}
