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

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCompatible(t *testing.T) {
	require.NoError(t, CheckCompatible(""))
	require.NoError(t, CheckCompatible("1.0.0"))
	require.NoError(t, CheckCompatible("1.2.3"))
	require.Error(t, CheckCompatible("2.0.0"))
	require.Error(t, CheckCompatible("0.9.0"))
	require.Error(t, CheckCompatible("not-a-version"))
}

// The ball payload mixes snake_case and camelCase keys. Peers in the
// field depend on the exact spelling, so pin it down.
func TestBallPayloadKeys(t *testing.T) {
	b := BallPayload{
		Word:                 "go",
		TimeoutMs:            15000,
		PlayerVowelPowers:    map[string]map[string]float64{"p1": {"a": 1.0}},
		CursedLetters:        []string{},
		DeadLetters:          []string{},
		PlayerPhonePads:      map[string]map[string]int{},
		PlayerLetterCounts:   map[string]map[string]int{},
		PlayerMaxTimeouts:    map[string]int{"p1": 15000},
		PlayerInabilities:    map[string][]string{},
		ActiveMissions:       []MissionState{},
		CompletedMissions:    []MissionState{},
		LetterCurseCounts:    map[string]int{},
		IncomingPlayers:      []string{"p1", "p2"},
		IncomingTurnCounts:   map[string]int{"p1": 1},
		IncomingReadyPlayers: []string{"p1"},
		IncomingHistory:      []HistoryEntry{},
	}
	raw, err := json.Marshal(&b)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	for _, k := range []string{
		"word", "timeout_ms", "player_vowel_powers", "cursed_letters",
		"dead_letters", "player_phone_pads", "player_letter_counts",
		"player_max_timeouts", "player_inabilities", "active_missions",
		"completed_missions", "letter_curse_counts", "incomingPlayers",
		"incomingTurnCounts", "incomingReadyPlayers", "incomingHistory",
	} {
		require.Contains(t, keys, k)
	}
	// optional fields stay off the wire until set
	require.NotContains(t, keys, "version")
	require.NotContains(t, keys, "scramble_ui_for_player")
	require.NotContains(t, keys, "forced_letter")

	b.Version = Version
	b.ForcedLetter = "u"
	raw, err = json.Marshal(&b)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &keys))
	require.Contains(t, keys, "version")
	require.Contains(t, keys, "forced_letter")
}

func TestSnapshotNullsWhenIdle(t *testing.T) {
	s := Snapshot{
		Self:         "10.0.0.1:5000",
		Players:      []string{"10.0.0.1:5000"},
		ReadyPlayers: []string{},
		History:      []HistoryEntry{},
		Archive:      [][]HistoryEntry{},
	}
	raw, err := json.Marshal(&s)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	require.Equal(t, "null", string(keys["word"]))
	require.Equal(t, "null", string(keys["timeout_ms"]))
	require.Equal(t, "null", string(keys["active_player"]))
	require.Equal(t, "null", string(keys["forced_letter"]))
}

func TestGameOverReasonOmitted(t *testing.T) {
	raw, err := json.Marshal(&GameOverPayload{Loser: "p1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"loser":"p1"}`, string(raw))

	var p GameOverPayload
	require.NoError(t, json.Unmarshal([]byte(`{"loser":"p2","reason":"temps écoulé"}`), &p))
	require.Equal(t, "p2", p.Loser)
	require.Equal(t, "temps écoulé", p.Reason)
}
