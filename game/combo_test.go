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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wordball/wordball/protocol"
	"github.com/wordball/wordball/timeout"
)

func TestComboInvalidKey(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	_, err := g.Combo("9")
	requireGameErr(t, err, 400)
}

func TestComboPadMissing(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	g.mu.Lock()
	delete(g.pads, "a:5000")
	g.mu.Unlock()
	_, err := g.Combo("*")
	requireGameErr(t, err, 404)
}

func TestComboNotReady(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	_, err := g.Combo("*")
	requireGameErr(t, err, 400)
}

func TestComboPurgeClearsCurses(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000")
	b.CursedLetters = []string{"s", "t"}
	b.PlayerPhonePads["a:5000"]["7"] = 1
	b.PlayerPhonePads["a:5000"]["4"] = 2
	require.NoError(t, g.ReceiveBall(b))

	msg, err := g.Combo("*")
	require.NoError(t, err)
	require.Equal(t, "Combo * activated and turn passed.", msg)

	g.mu.Lock()
	defer g.mu.Unlock()
	require.Equal(t, 0, g.cursed.Cardinality())
	require.Equal(t, 0, g.pads["a:5000"]["7"])
	require.Equal(t, 0, g.pads["a:5000"]["4"])
}

func TestComboRechargeRefillsVowels(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000")
	b.PlayerVowelPowers["a:5000"] = map[string]float64{"a": 0.25, "e": 0.5, "i": 1, "o": 1, "u": 1, "y": 1}
	b.PlayerPhonePads["a:5000"]["2"] = 1
	b.PlayerPhonePads["a:5000"]["5"] = 1
	b.PlayerPhonePads["a:5000"]["8"] = 1
	require.NoError(t, g.ReceiveBall(b))

	_, err := g.Combo("0")
	require.NoError(t, err)

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range []string{"a", "e", "i", "o", "u", "y"} {
		require.Equal(t, timeout.MaxVowelPower, g.vowelPowers["a:5000"][v])
	}
}

func TestComboAttackBlocksColumnsForNextHolder(t *testing.T) {
	g, sender, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000", "b:5000")
	b.PlayerPhonePads["a:5000"]["3"] = 1
	b.PlayerPhonePads["a:5000"]["6"] = 2
	b.PlayerPhonePads["a:5000"]["9"] = 3
	b.IncomingHistory = []protocol.HistoryEntry{{Player: "b:5000", Word: "ab", ResponseTimeMs: 50}}
	require.NoError(t, g.ReceiveBall(b))

	_, err := g.Combo("#")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := sender.lastSent()
		return ok
	}, time.Second, 10*time.Millisecond)
	sent, _ := sender.lastSent()
	require.Equal(t, "b:5000", sent.target)
	require.Equal(t, timeout.Base, sent.ball.TimeoutMs)
	// columns 3, 6 and 9 spell def, mno, wxyz
	blocked := sent.ball.PlayerInabilities["b:5000"]
	for _, l := range []string{"d", "e", "f", "m", "n", "o", "w", "x", "y", "z"} {
		require.Contains(t, blocked, l)
	}
	require.Contains(t, sent.ball.IncomingHistory[0].AppliedMultipliers, "combo #")

	g.mu.Lock()
	defer g.mu.Unlock()
	require.Equal(t, "a:5000", g.attackCombo)
	require.Equal(t, 0, g.pads["a:5000"]["3"])
	require.Equal(t, 0, g.pads["a:5000"]["9"])
}

func TestPowerUpRequiresFullPad(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000")
	b.PlayerPhonePads["a:5000"]["2"] = 1
	require.NoError(t, g.ReceiveBall(b))

	_, err := g.PowerUp()
	requireGameErr(t, err, 400)
}

func TestPowerUpResetsAllPads(t *testing.T) {
	g, _, _ := newTestGame("a:5000")
	b := testBall("ab", 60000, "a:5000", "b:5000")
	for d := '2'; d <= '9'; d++ {
		b.PlayerPhonePads["a:5000"][string(d)] = 2
		b.PlayerPhonePads["b:5000"][string(d)] = 1
	}
	require.NoError(t, g.ReceiveBall(b))

	msg, err := g.PowerUp()
	require.NoError(t, err)
	require.Equal(t, "Power-up activated and turn passed.", msg)

	g.mu.Lock()
	defer g.mu.Unlock()
	for d := '2'; d <= '9'; d++ {
		require.Equal(t, 0, g.pads["a:5000"][string(d)])
		require.Equal(t, 0, g.pads["b:5000"][string(d)])
	}
}
