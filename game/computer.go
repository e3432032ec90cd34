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

	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/timeout"
)

// playComputerTurn lets the built-in opponent play: think for a moment,
// append a random letter, compute the human's countdown the same way a
// real peer would, and loop the ball back into the local receive path.
// The computer never plays pads, curses or missions.
func (g *Game) playComputerTurn(ball *protocol.BallPayload) {
	time.Sleep(g.computerDelay)

	g.mu.Lock()
	newLetter := letters.Random(g.rng)
	newWord := ball.Word + newLetter
	responseTimeMs := 300 + g.rng.Intn(601)
	log.Infof("computer chose letter %q to form %q", newLetter, newWord)

	nextTimeout, mods, newPower, calcLog := timeout.Next(responseTimeMs, newWord, g.vowelPowerLocked(ComputerID), false, false)
	g.vowelPowers[ComputerID] = newPower
	g.maxTimeouts[g.ownID] = nextTimeout
	g.history = append(g.history, protocol.HistoryEntry{
		Player:             ComputerID,
		Word:               newWord,
		ResponseTimeMs:     responseTimeMs,
		AppliedMultipliers: mods,
		TimeoutLog:         &calcLog,
	})
	g.ensurePlayerLocked(ComputerID)
	g.turnCounts[ComputerID]++
	g.activePlayer = g.ownID
	forHuman := g.ballPayloadLocked(newWord, nextTimeout)
	g.mu.Unlock()

	if err := g.ReceiveBall(forHuman); err != nil {
		log.Errorf("computer ball refused locally: %v", err)
	}
}
