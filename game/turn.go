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
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/timeout"
)

// election describes how the next holder is found. Either the holder
// was decided under the lock (mirror, ricochet, computer, self), or a
// candidate list still needs health-checking outside it.
type election struct {
	chosen     string
	candidates []string
	counts     map[string]int
}

// handoff is everything the dispatch needs once the lock is released.
type handoff struct {
	next string
	ball *protocol.BallPayload
	snap *protocol.Snapshot
}

// PassBall commits the local player's move: validate, apply the
// modifier stack, advance missions, compute the next countdown and hand
// the ball to the elected next holder. It returns the message for the
// HTTP caller; protocol violations come back as *Error with the status
// to serve.
func (g *Game) PassBall(p *protocol.PassBallPayload) (string, error) {
	g.mu.Lock()

	if g.currentWord == "" {
		g.mu.Unlock()
		return "", &Error{Code: http.StatusRequestTimeout, Detail: "Server-side timeout or not your turn."}
	}
	newLetter := ""
	if len(p.NewWord) == len(g.currentWord)+1 {
		newLetter = p.NewWord[len(p.NewWord)-1:]
	}
	if !strings.HasPrefix(p.NewWord, g.currentWord) || !letters.IsValid(newLetter) {
		g.mu.Unlock()
		return "", errBadRequest("Invalid word.")
	}
	if g.forcedLetter != "" && newLetter != g.forcedLetter {
		detail := fmt.Sprintf("Forced to play '%s'.", g.forcedLetter)
		g.mu.Unlock()
		return "", errBadRequest(detail)
	}
	g.forcedLetter = ""

	if g.dead.Contains(newLetter) {
		reason := fmt.Sprintf("Played dead letter %s", newLetter)
		log.Infof("player %s played dead letter %q and loses instantly", g.ownID, newLetter)
		peers := g.otherPeersLocked()
		snap, _ := g.gameOverLocked(g.ownID, reason)
		g.mu.Unlock()
		g.sender.Broadcast("/api/game-over", &protocol.GameOverPayload{Loser: g.ownID, Reason: reason}, peers)
		g.publish(snap)
		return "You played a dead letter and lost.", nil
	}
	if g.inabilities[g.ownID] != nil && g.inabilities[g.ownID].Contains(newLetter) {
		detail := fmt.Sprintf("Letter %s is blocked for you this turn.", newLetter)
		g.mu.Unlock()
		return "", &Error{Code: http.StatusForbidden, Detail: detail}
	}

	// Move committed from here on.
	g.cancelDeadlineLocked()
	gen := g.deadlineGen
	g.ensurePlayerLocked(g.ownID)
	g.inabilities[g.ownID] = newEmptySet()

	if g.turnStart.IsZero() {
		log.Warning("turn start time missing, assuming a full countdown elapsed")
		g.turnStart = time.Now().Add(-time.Duration(g.turnTimeoutLocked()) * time.Millisecond)
	}
	responseTimeMs := int(p.ClientTimestampMs - g.turnStart.UnixMilli())

	cursedMalus := g.cursed.Contains(newLetter)
	if cursedMalus {
		g.cursed.Remove(newLetter)
		g.pads[g.ownID] = letters.NewPadCounts()
		log.Infof("player %s played cursed letter %q, curse lifted, pad reset", g.ownID, newLetter)
		for id := range g.letterCounts {
			if _, ok := g.letterCounts[id][newLetter]; ok {
				g.letterCounts[id][newLetter] = 0
			}
		}
	}

	if pad, ok := letters.Pad(newLetter); ok {
		if g.pads[g.ownID][pad] < PadChargeThreshold {
			g.pads[g.ownID][pad]++
		}
	}

	padComboMalus := false
	if g.attackCombo == g.ownID {
		padComboMalus = true
		g.attackCombo = ""
		log.Infof("player %s consumes their attack combo malus", g.ownID)
	}

	nextTimeout, mods, newPower, calcLog := timeout.Next(responseTimeMs, p.NewWord, g.vowelPowerLocked(g.ownID), cursedMalus, padComboMalus)
	g.vowelPowers[g.ownID] = newPower
	g.history = append(g.history, protocol.HistoryEntry{
		Player:             g.ownID,
		Word:               p.NewWord,
		ResponseTimeMs:     responseTimeMs,
		AppliedMultipliers: mods,
		TimeoutLog:         &calcLog,
	})

	g.bumpLetterCountLocked(g.ownID, newLetter)

	ricochet, mirror := g.runMissionsLocked(newLetter, p.NewWord, responseTimeMs)

	if mult := g.speedMult[g.ownID]; mult > 0 {
		nextTimeout = int(float64(nextTimeout) / mult)
		delete(g.speedMult, g.ownID)
	}
	nextTimeout = int(float64(nextTimeout) * g.baseModifier)

	plan := g.planNextHolderLocked(g.ownID, ricochet, mirror)
	g.mu.Unlock()

	g.stats.IncBallsPassed()
	g.stats.AddResponseTime(responseTimeMs)

	next := g.elect(plan, g.ownID)
	ho, ok := g.finishTurn(g.ownID, next, nextTimeout, nil, nil, gen)
	if !ok {
		return "Ball passed successfully.", nil
	}
	g.dispatch(ho)
	return "Ball passed successfully.", nil
}

// bumpLetterCountLocked advances the play count of a letter and
// escalates the curse ladder when it crosses the threshold. Level 0
// curses the letter, level 1 kills it; the count resets either way.
func (g *Game) bumpLetterCountLocked(player, letter string) {
	counts := g.letterCounts[player]
	if counts == nil {
		counts = map[string]int{}
		g.letterCounts[player] = counts
	}
	counts[letter]++
	if counts[letter] < CurseThreshold {
		return
	}
	switch g.curseCounts[letter] {
	case 0:
		g.cursed.Add(letter)
		g.curseCounts[letter] = 1
		log.Infof("letter %q is now globally cursed", letter)
	case 1:
		g.cursed.Remove(letter)
		g.dead.Add(letter)
		g.curseCounts[letter] = 2
		log.Infof("letter %q is now dead", letter)
	}
	counts[letter] = 0
}

// runMissionsLocked advances every active mission, evaluates triggers
// and applies the effects of the ones that fire. Triggered missions
// move to the completed list and are replaced from the remaining deck.
// The returned flags redirect the handoff.
func (g *Game) runMissionsLocked(newLetter, newWord string, responseTimeMs int) (ricochet, mirror bool) {
	turn := missions.Turn{
		Player:         g.ownID,
		Letter:         newLetter,
		Word:           newWord,
		ResponseTimeMs: responseTimeMs,
		TimeoutMs:      g.turnTimeoutLocked(),
		MaxTimeoutMs:   g.maxTimeoutLocked(g.ownID),
		History:        g.history,
	}
	for _, m := range g.activeMissions {
		m.Progress(turn)
	}

	var triggered []*missions.Mission
	for _, m := range g.activeMissions {
		if m.Triggered(turn) {
			triggered = append(triggered, m)
		}
	}
	for _, m := range triggered {
		log.Infof("mission triggered: %s by %s", m.Name, g.ownID)
		fx := m.Effect()
		if fx.SpeedMultiplier > 0 {
			g.speedMult[g.ownID] = fx.SpeedMultiplier
		}
		if fx.RaiseMaxTimeout > 0 {
			g.maxTimeouts[g.ownID] = int(float64(g.maxTimeoutLocked(g.ownID)) * fx.RaiseMaxTimeout)
		}
		if fx.RestoreMaxTimeout {
			g.maxTimeouts[g.ownID] = timeout.Max
		}
		if fx.ScrambleOpponent {
			g.scrambleFor = g.firstOtherLocked(g.ownID)
		}
		if fx.ForcedLetter != "" {
			g.forcedLetter = fx.ForcedLetter
		}
		if fx.HalveBase {
			g.baseModifier = 0.5
		}
		if fx.Ricochet {
			ricochet = true
		}
		if fx.MirrorMove {
			mirror = true
		}
		g.replaceMissionLocked(m)
		if n := len(g.history); n > 0 {
			g.history[n-1].AppliedMultipliers = append(g.history[n-1].AppliedMultipliers, "mission:"+m.Name)
		}
		g.stats.IncMissionsTriggered()
	}
	return ricochet, mirror
}

// replaceMissionLocked retires a triggered mission and deals a fresh
// one from the templates not seen this game, if any remain.
func (g *Game) replaceMissionLocked(m *missions.Mission) {
	kept := g.activeMissions[:0]
	for _, a := range g.activeMissions {
		if a.ID != m.ID {
			kept = append(kept, a)
		}
	}
	g.activeMissions = kept
	g.completedMissions = append(g.completedMissions, m)
	if repl, ok := g.engine.Replacement(g.activeMissions, g.completedMissions); ok {
		g.activeMissions = append(g.activeMissions, repl)
	}
}

// planNextHolderLocked decides the next holder where it can, and
// otherwise returns the candidate pool for the out-of-lock election.
// A mirror move pops the last history entry and returns the ball to the
// player whose move now stands.
func (g *Game) planNextHolderLocked(current string, ricochet, mirror bool) election {
	if mirror {
		if len(g.history) > 1 {
			g.history = g.history[:len(g.history)-1]
			last := g.history[len(g.history)-1]
			g.currentWord = last.Word
			return election{chosen: last.Player}
		}
		return election{chosen: current}
	}
	if ricochet {
		if other := g.firstOtherLocked(current); other != "" {
			return election{chosen: other}
		}
		return election{chosen: current}
	}
	others := []string{}
	for _, p := range sortedSlice(g.players) {
		if p != current {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return election{chosen: current}
	}
	for _, p := range others {
		if p == ComputerID {
			return election{chosen: ComputerID}
		}
	}
	return election{candidates: others, counts: copyIntMap(g.turnCounts)}
}

// elect picks the next holder among remote candidates: least turns
// played, random tie-break, health-checked. Runs without the lock, the
// health probes block. Falls back to current when nobody answers.
func (g *Game) elect(plan election, current string) string {
	if plan.chosen != "" {
		return plan.chosen
	}
	candidates := append([]string{}, plan.candidates...)
	for len(candidates) > 0 {
		minTurns := plan.counts[candidates[0]]
		for _, c := range candidates[1:] {
			if plan.counts[c] < minTurns {
				minTurns = plan.counts[c]
			}
		}
		var eligible []string
		for _, c := range candidates {
			if plan.counts[c] == minTurns {
				eligible = append(eligible, c)
			}
		}
		g.mu.Lock()
		pick := eligible[g.rng.Intn(len(eligible))]
		g.mu.Unlock()
		if err := g.sender.HealthCheck(pick); err == nil {
			return pick
		}
		log.Warningf("candidate %s failed health check, removing", pick)
		next := candidates[:0]
		for _, c := range candidates {
			if c != pick {
				next = append(next, c)
			}
		}
		candidates = next
	}
	return current
}

// finishTurn commits the election and builds the outgoing ball. The gen
// guard aborts when the game was reset while the lock was released for
// the election; the caller then has nothing to dispatch.
func (g *Game) finishTurn(current, next string, nextTimeout int, lateTags, newInabilities []string, gen uint64) (handoff, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.deadlineGen {
		log.Warning("game state changed during next-holder election, dropping handoff")
		return handoff{}, false
	}

	g.ensurePlayerLocked(next)
	g.turnCounts[next]++
	g.maxTimeouts[next] = nextTimeout

	nextSet := g.inabilities[next]
	if nextSet == nil {
		nextSet = newEmptySet()
	}
	for _, l := range newInabilities {
		nextSet.Add(l)
	}
	g.inabilities[next] = nextSet
	g.inabilities[current] = newEmptySet()

	if len(lateTags) > 0 && len(g.history) > 0 {
		last := &g.history[len(g.history)-1]
		last.AppliedMultipliers = append(last.AppliedMultipliers, lateTags...)
	}

	word := g.currentWord
	if len(g.history) > 0 {
		word = g.history[len(g.history)-1].Word
	}
	ball := g.ballPayloadLocked(word, nextTimeout)
	g.resetTurnLocked()
	// the turn is over here but the ball is with next; surface that to
	// subscribers until its own receive path broadcasts
	g.activePlayer = next
	return handoff{next: next, ball: ball, snap: g.snapshotLocked()}, true
}

// dispatch hands the ball over. Local and computer deliveries loop back
// into ReceiveBall; a remote delivery that fails forfeits the game to
// the sender, the protocol has no way to recover the ball.
func (g *Game) dispatch(h handoff) {
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
				log.Errorf("failed to deliver ball to %s, forfeiting: %v", h.next, err)
				g.stats.IncSendFailures()
				reason := fmt.Sprintf("Failed to pass ball to %s", h.next)
				g.mu.Lock()
				peers := g.otherPeersLocked()
				snap, ok := g.gameOverLocked(g.ownID, reason)
				g.mu.Unlock()
				if ok {
					g.sender.Broadcast("/api/game-over", &protocol.GameOverPayload{Loser: g.ownID, Reason: reason}, peers)
					g.publish(snap)
				}
				return
			}
			g.stats.IncBallsSent()
		}()
	}
	g.publish(h.snap)
}
