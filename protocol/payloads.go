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

package protocol

import "github.com/wordball/wordball/timeout"

// HistoryEntry is one played move. AppliedMultipliers lists the tags of
// the modifiers that shaped the countdown handed to the next player.
type HistoryEntry struct {
	Player             string           `json:"player"`
	Word               string           `json:"word"`
	ResponseTimeMs     int              `json:"response_time_ms"`
	AppliedMultipliers []string         `json:"applied_multipliers"`
	TimeoutLog         *timeout.CalcLog `json:"timeout_log,omitempty"`
}

// MissionState is a mission as serialized between peers and to
// subscribers. Name, Description and Goal are informational; receivers
// reattach behavior by ID and keep only CurrentStep.
type MissionState struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Goal        int    `json:"goal"`
	CurrentStep int    `json:"current_step"`
}

// BallPayload carries the full shared game state from the player who
// just moved to the player whose turn starts now.
type BallPayload struct {
	Version              string                        `json:"version,omitempty"`
	Word                 string                        `json:"word"`
	TimeoutMs            int                           `json:"timeout_ms"`
	PlayerVowelPowers    map[string]map[string]float64 `json:"player_vowel_powers"`
	CursedLetters        []string                      `json:"cursed_letters"`
	DeadLetters          []string                      `json:"dead_letters"`
	PlayerPhonePads      map[string]map[string]int     `json:"player_phone_pads"`
	PlayerLetterCounts   map[string]map[string]int     `json:"player_letter_counts"`
	PlayerMaxTimeouts    map[string]int                `json:"player_max_timeouts"`
	PlayerInabilities    map[string][]string           `json:"player_inabilities"`
	ActiveMissions       []MissionState                `json:"active_missions"`
	CompletedMissions    []MissionState                `json:"completed_missions"`
	LetterCurseCounts    map[string]int                `json:"letter_curse_counts"`
	IncomingPlayers      []string                      `json:"incomingPlayers"`
	IncomingTurnCounts   map[string]int                `json:"incomingTurnCounts"`
	IncomingReadyPlayers []string                      `json:"incomingReadyPlayers"`
	IncomingHistory      []HistoryEntry                `json:"incomingHistory"`
	ScrambleUIForPlayer  string                        `json:"scramble_ui_for_player,omitempty"`
	ForcedLetter         string                        `json:"forced_letter,omitempty"`
}

// RegisterPayload introduces a peer and optionally seeds the receiver
// with the sender's view of the lobby and of a running game.
type RegisterPayload struct {
	IP                        string                        `json:"ip"`
	InitialPlayers            []string                      `json:"initialPlayers,omitempty"`
	InitialTurnCounts         map[string]int                `json:"initialTurnCounts,omitempty"`
	InitialReadyPlayers       []string                      `json:"initialReadyPlayers,omitempty"`
	InitialArchive            [][]HistoryEntry              `json:"initialArchive,omitempty"`
	InitialPlayerVowelPowers  map[string]map[string]float64 `json:"initialPlayerVowelPowers,omitempty"`
	InitialCursedLetters      []string                      `json:"initialCursedLetters,omitempty"`
	InitialDeadLetters        []string                      `json:"initialDeadLetters,omitempty"`
	InitialPlayerPhonePads    map[string]map[string]int     `json:"initialPlayerPhonePads,omitempty"`
	InitialPlayerLetterCounts map[string]map[string]int     `json:"initialPlayerLetterCounts,omitempty"`
	InitialPlayerMaxTimeouts  map[string]int                `json:"initialPlayerMaxTimeouts,omitempty"`
	InitialPlayerInabilities  map[string][]string           `json:"initialPlayerInabilities,omitempty"`
	InitialActiveMissions     []MissionState                `json:"initialActiveMissions,omitempty"`
	InitialCompletedMissions  []MissionState                `json:"initialCompletedMissions,omitempty"`
	InitialLetterCurseCounts  map[string]int                `json:"initialLetterCurseCounts,omitempty"`
}

// ReadyPayload marks a player ready, or relays that mark between peers.
type ReadyPayload struct {
	PlayerID string `json:"player_id"`
}

// ComboPayload names the combo key a player spends.
type ComboPayload struct {
	ComboKey string `json:"combo_key"`
}

// PassBallPayload is a local client playing its letter. The client
// timestamp, when set, is what response time is measured against.
type PassBallPayload struct {
	NewWord           string `json:"newWord"`
	ClientTimestampMs int64  `json:"client_timestamp_ms"`
}

// GameOverReasonUnknown is used when a peer announces a loss without
// saying why.
const GameOverReasonUnknown = "Raison inconnue"

// GameOverPayload announces the end of the game and who lost it.
type GameOverPayload struct {
	Loser  string `json:"loser"`
	Reason string `json:"reason,omitempty"`
}

// Snapshot is the full state pushed to websocket subscribers after
// every mutation. Nil pointers serialize as null, which subscribers
// read as "no running game".
type Snapshot struct {
	Self                string                        `json:"self"`
	Players             []string                      `json:"players"`
	ReadyPlayers        []string                      `json:"ready_players"`
	History             []HistoryEntry                `json:"history"`
	Archive             [][]HistoryEntry              `json:"archive"`
	Word                *string                       `json:"word"`
	TimeoutMs           *int                          `json:"timeout_ms"`
	PlayerVowelPowers   map[string]map[string]float64 `json:"player_vowel_powers"`
	CursedLetters       []string                      `json:"cursed_letters"`
	DeadLetters         []string                      `json:"dead_letters"`
	PlayerPhonePads     map[string]map[string]int     `json:"player_phone_pads"`
	PlayerMaxTimeouts   map[string]int                `json:"player_max_timeouts"`
	PlayerInabilities   map[string][]string           `json:"player_inabilities"`
	ActivePlayer        *string                       `json:"active_player"`
	ActiveMissions      []MissionState                `json:"active_missions"`
	CompletedMissions   []MissionState                `json:"completed_missions"`
	ScrambleUIForPlayer *string                       `json:"scramble_ui_for_player"`
	ForcedLetter        *string                       `json:"forced_letter"`
}

// Message is the typical success envelope of the HTTP API.
type Message struct {
	Message string `json:"message"`
}

// Error is the error envelope of the HTTP API.
type Error struct {
	Detail string `json:"detail"`
}

// PingResponse identifies a peer during discovery.
type PingResponse struct {
	Message  string `json:"message"`
	Identity string `json:"identity"`
}

// HealthResponse answers liveness probes.
type HealthResponse struct {
	Status string `json:"status"`
}

// WordResponse reports the word currently in play, null when no game
// is running.
type WordResponse struct {
	Word *string `json:"word"`
}
