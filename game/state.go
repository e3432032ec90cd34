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
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/missions"
	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/timeout"
)

// Builders hand out deep copies: payloads and snapshots outlive the
// critical section they were taken in, so they must not alias live maps.

func sortedSlice(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func copyIntMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyNestedInt(in map[string]map[string]int) map[string]map[string]int {
	out := make(map[string]map[string]int, len(in))
	for k, inner := range in {
		out[k] = copyIntMap(inner)
	}
	return out
}

func copyNestedFloat(in map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(in))
	for k, inner := range in {
		m := make(map[string]float64, len(inner))
		for l, v := range inner {
			m[l] = v
		}
		out[k] = m
	}
	return out
}

func copyInabilities(in map[string]mapset.Set[string]) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, set := range in {
		out[k] = sortedSlice(set)
	}
	return out
}

func copyHistory(in []protocol.HistoryEntry) []protocol.HistoryEntry {
	out := make([]protocol.HistoryEntry, len(in))
	copy(out, in)
	return out
}

func copyArchive(in [][]protocol.HistoryEntry) [][]protocol.HistoryEntry {
	out := make([][]protocol.HistoryEntry, len(in))
	for i, h := range in {
		out[i] = copyHistory(h)
	}
	return out
}

// snapshotLocked builds the subscriber-facing state.
func (g *Game) snapshotLocked() *protocol.Snapshot {
	s := &protocol.Snapshot{
		Self:              g.ownID,
		Players:           sortedSlice(g.players),
		ReadyPlayers:      sortedSlice(g.ready),
		History:           copyHistory(g.history),
		Archive:           copyArchive(g.archive),
		PlayerVowelPowers: copyNestedFloat(g.vowelPowers),
		CursedLetters:     sortedSlice(g.cursed),
		DeadLetters:       sortedSlice(g.dead),
		PlayerPhonePads:   copyNestedInt(g.pads),
		PlayerMaxTimeouts: copyIntMap(g.maxTimeouts),
		PlayerInabilities: copyInabilities(g.inabilities),
		ActiveMissions:    missions.States(g.activeMissions),
		CompletedMissions: missions.States(g.completedMissions),
	}
	if g.currentWord != "" {
		w := g.currentWord
		s.Word = &w
	}
	if g.turnTimeoutMs > 0 {
		t := g.turnTimeoutMs
		s.TimeoutMs = &t
	}
	if g.activePlayer != "" {
		a := g.activePlayer
		s.ActivePlayer = &a
	}
	if g.scrambleFor != "" {
		sc := g.scrambleFor
		s.ScrambleUIForPlayer = &sc
	}
	if g.forcedLetter != "" {
		f := g.forcedLetter
		s.ForcedLetter = &f
	}
	return s
}

// ballPayloadLocked builds the ball handed to the next holder.
func (g *Game) ballPayloadLocked(word string, timeoutMs int) *protocol.BallPayload {
	return &protocol.BallPayload{
		Version:              protocol.Version,
		Word:                 word,
		TimeoutMs:            timeoutMs,
		PlayerVowelPowers:    copyNestedFloat(g.vowelPowers),
		CursedLetters:        sortedSlice(g.cursed),
		DeadLetters:          sortedSlice(g.dead),
		PlayerPhonePads:      copyNestedInt(g.pads),
		PlayerLetterCounts:   copyNestedInt(g.letterCounts),
		PlayerMaxTimeouts:    copyIntMap(g.maxTimeouts),
		PlayerInabilities:    copyInabilities(g.inabilities),
		ActiveMissions:       missions.States(g.activeMissions),
		CompletedMissions:    missions.States(g.completedMissions),
		LetterCurseCounts:    copyIntMap(g.curseCounts),
		IncomingPlayers:      sortedSlice(g.players),
		IncomingTurnCounts:   copyIntMap(g.turnCounts),
		IncomingReadyPlayers: sortedSlice(g.ready),
		IncomingHistory:      copyHistory(g.history),
		ScrambleUIForPlayer:  g.scrambleFor,
		ForcedLetter:         g.forcedLetter,
	}
}

// registerPayloadLocked builds the handshake body sent to a discovered
// or registering peer.
func (g *Game) registerPayloadLocked() *protocol.RegisterPayload {
	return &protocol.RegisterPayload{
		IP:                        g.ownID,
		InitialPlayers:            sortedSlice(g.players),
		InitialTurnCounts:         copyIntMap(g.turnCounts),
		InitialReadyPlayers:       sortedSlice(g.ready),
		InitialArchive:            copyArchive(g.archive),
		InitialPlayerVowelPowers:  copyNestedFloat(g.vowelPowers),
		InitialCursedLetters:      sortedSlice(g.cursed),
		InitialDeadLetters:        sortedSlice(g.dead),
		InitialPlayerPhonePads:    copyNestedInt(g.pads),
		InitialPlayerLetterCounts: copyNestedInt(g.letterCounts),
		InitialPlayerMaxTimeouts:  copyIntMap(g.maxTimeouts),
		InitialPlayerInabilities:  copyInabilities(g.inabilities),
		InitialActiveMissions:     missions.States(g.activeMissions),
		InitialCompletedMissions:  missions.States(g.completedMissions),
		InitialLetterCurseCounts:  copyIntMap(g.curseCounts),
	}
}

// resetTurnLocked clears everything scoped to the turn in flight,
// including the deadline timer and the one-shot modifiers.
func (g *Game) resetTurnLocked() {
	g.cancelDeadlineLocked()
	g.currentWord = ""
	g.turnTimeoutMs = 0
	g.turnStart = time.Time{}
	g.activePlayer = ""
	g.forcedLetter = ""
	g.scrambleFor = ""
	g.speedMult = map[string]float64{}
	g.baseModifier = 1.0
	log.Debug("turn state reset")
}

// initMatchLocked hands fresh modifier state to the given participants
// and clears the letter markers.
func (g *Game) initMatchLocked(ids []string) {
	g.vowelPowers = map[string]map[string]float64{}
	g.pads = map[string]map[string]int{}
	g.letterCounts = map[string]map[string]int{}
	g.maxTimeouts = map[string]int{}
	g.inabilities = map[string]mapset.Set[string]{}
	for _, id := range ids {
		g.vowelPowers[id] = freshVowels()
		g.pads[id] = letters.NewPadCounts()
		g.letterCounts[id] = map[string]int{}
		g.maxTimeouts[id] = timeout.Base
		g.inabilities[id] = mapset.NewSet[string]()
	}
	g.cursed = mapset.NewSet[string]()
	g.dead = mapset.NewSet[string]()
	g.curseCounts = map[string]int{}
}

// resetMatchLocked wipes the whole match: turn state, readiness,
// history, modifiers, missions. Players, turn counts and the archive
// survive.
func (g *Game) resetMatchLocked() {
	g.resetTurnLocked()
	g.ready = mapset.NewSet[string]()
	g.history = []protocol.HistoryEntry{}
	g.initMatchLocked(sortedSlice(g.players))
	g.activeMissions = nil
	g.completedMissions = nil
	g.attackCombo = ""
	log.Info("match state reset")
}
