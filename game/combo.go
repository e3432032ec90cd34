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

	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/timeout"
)

// Combo spends the phone pad charge behind key and ends the turn with
// the base countdown. "*" purges the cursed letters, "0" refills the
// player's vowel powers, "#" blocks its columns' letters for the next
// holder and arms a self malus for the player's next move.
func (g *Game) Combo(key string) (string, error) {
	g.mu.Lock()

	cols, ok := letters.ComboColumns(key)
	if !ok {
		g.mu.Unlock()
		return "", errBadRequest("Invalid combo key.")
	}
	pad, ok := g.pads[g.ownID]
	if !ok {
		g.mu.Unlock()
		return "", &Error{Code: http.StatusNotFound, Detail: "Player pad not found."}
	}
	for _, c := range cols {
		if pad[c] < 1 {
			g.mu.Unlock()
			return "", errBadRequest("Combo not ready.")
		}
	}

	log.Infof("player %s triggered combo %q", g.ownID, key)
	var newInabilities []string
	switch key {
	case "*":
		g.cursed.Clear()
	case "0":
		for i := 0; i < len(letters.Vowels); i++ {
			g.vowelPowers[g.ownID][letters.Vowels[i:i+1]] = timeout.MaxVowelPower
		}
	case "#":
		for _, c := range cols {
			newInabilities = append(newInabilities, letters.PadLetters(c)...)
		}
		g.attackCombo = g.ownID
	}
	for _, c := range cols {
		pad[c] = 0
	}

	gen := g.deadlineGen
	plan := g.planNextHolderLocked(g.ownID, false, false)
	g.mu.Unlock()

	g.stats.IncCombos()
	next := g.elect(plan, g.ownID)
	if ho, ok := g.finishTurn(g.ownID, next, timeout.Base, []string{"combo " + key}, newInabilities, gen); ok {
		g.dispatch(ho)
	}
	return fmt.Sprintf("Combo %s activated and turn passed.", key), nil
}

// PowerUp requires a charge on every pad column, wipes every player's
// pad and ends the turn with the base countdown.
func (g *Game) PowerUp() (string, error) {
	g.mu.Lock()

	pad, ok := g.pads[g.ownID]
	if !ok {
		g.mu.Unlock()
		return "", &Error{Code: http.StatusNotFound, Detail: "Player pad not found."}
	}
	for d := '2'; d <= '9'; d++ {
		if pad[string(d)] < 1 {
			g.mu.Unlock()
			return "", errBadRequest("Power-up not ready.")
		}
	}

	log.Infof("player %s triggered power-up", g.ownID)
	for id := range g.pads {
		g.pads[id] = letters.NewPadCounts()
	}

	gen := g.deadlineGen
	plan := g.planNextHolderLocked(g.ownID, false, false)
	g.mu.Unlock()

	g.stats.IncPowerUps()
	next := g.elect(plan, g.ownID)
	if ho, ok := g.finishTurn(g.ownID, next, timeout.Base, []string{"power-up"}, nil, gen); ok {
		g.dispatch(ho)
	}
	return "Power-up activated and turn passed.", nil
}
