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

package missions

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordball/wordball/protocol"
)

func mission(t *testing.T, id string) *Mission {
	tpl, ok := TemplateByID(id)
	require.True(t, ok, "unknown template %q", id)
	return &Mission{Template: tpl}
}

func TestTemplates(t *testing.T) {
	all := Templates()
	require.Len(t, all, 10)
	seen := map[string]bool{}
	for _, tpl := range all {
		require.False(t, seen[tpl.ID], "duplicate template id %q", tpl.ID)
		seen[tpl.ID] = true
		require.NotEmpty(t, tpl.Name)
		require.NotEmpty(t, tpl.Description)
		require.GreaterOrEqual(t, tpl.Goal, 1)
	}
	_, ok := TemplateByID("does_not_exist")
	require.False(t, ok)
}

func TestVowelStreakProgress(t *testing.T) {
	m := mission(t, "suite_harmonique")
	for _, l := range []string{"a", "e", "i"} {
		m.Progress(Turn{Letter: l})
	}
	require.Equal(t, 3, m.CurrentStep)
	require.True(t, m.Triggered(Turn{}))

	m.Progress(Turn{Letter: "t"})
	require.Equal(t, 0, m.CurrentStep)
	require.False(t, m.Triggered(Turn{}))
}

func TestConsonantStreakProgress(t *testing.T) {
	m := mission(t, "mur_de_consonnes")
	for _, l := range []string{"b", "c", "d", "f"} {
		m.Progress(Turn{Letter: l})
	}
	require.True(t, m.Triggered(Turn{}))

	m.CurrentStep = 3
	m.Progress(Turn{Letter: "a"})
	require.Equal(t, 0, m.CurrentStep)
}

func TestFastPlayStreakProgress(t *testing.T) {
	m := mission(t, "frappe_eclair")
	fast := Turn{ResponseTimeMs: 3000, MaxTimeoutMs: 15000} // under 25%
	slow := Turn{ResponseTimeMs: 4000, MaxTimeoutMs: 15000}

	m.Progress(fast)
	m.Progress(fast)
	require.False(t, m.Triggered(fast))
	m.Progress(fast)
	require.True(t, m.Triggered(fast))

	m.Progress(slow)
	require.Equal(t, 0, m.CurrentStep)
}

func TestEchoTrigger(t *testing.T) {
	m := mission(t, "echo_parfait")
	require.False(t, m.Triggered(Turn{History: []protocol.HistoryEntry{{Word: "ab"}}}))
	require.True(t, m.Triggered(Turn{History: []protocol.HistoryEntry{
		{Word: "ab"},
		{Word: "abb"},
	}}))
	require.False(t, m.Triggered(Turn{History: []protocol.HistoryEntry{
		{Word: "ab"},
		{Word: "abc"},
	}}))
}

func TestAlphabetProgressionTrigger(t *testing.T) {
	m := mission(t, "progression_alphabetique")
	require.True(t, m.Triggered(Turn{Word: "ab"}))
	require.True(t, m.Triggered(Turn{Word: "xyz"}))
	require.False(t, m.Triggered(Turn{Word: "ba"}))
	require.False(t, m.Triggered(Turn{Word: "a"}))
}

func TestPalindromeTrigger(t *testing.T) {
	m := mission(t, "symetrie_inversee")
	require.True(t, m.Triggered(Turn{Word: "kayak"}))
	require.True(t, m.Triggered(Turn{Word: "aa"}))
	require.False(t, m.Triggered(Turn{Word: "a"}))
	require.False(t, m.Triggered(Turn{Word: "kayaks"}))
}

func TestCloseCallTrigger(t *testing.T) {
	m := mission(t, "au_bord_du_precipice")
	require.True(t, m.Triggered(Turn{ResponseTimeMs: 14000, TimeoutMs: 15000}))
	require.False(t, m.Triggered(Turn{ResponseTimeMs: 13000, TimeoutMs: 15000}))
}

func TestRallyTrigger(t *testing.T) {
	m := mission(t, "pression_constante")
	h := make([]protocol.HistoryEntry, 10)
	require.True(t, m.Triggered(Turn{History: h}))
	require.False(t, m.Triggered(Turn{History: h[:9]}))
}

func TestRareLetterTrigger(t *testing.T) {
	m := mission(t, "coup_du_dictionnaire")
	for _, l := range []string{"k", "w", "x", "y", "z"} {
		require.True(t, m.Triggered(Turn{Letter: l}))
	}
	require.False(t, m.Triggered(Turn{Letter: "a"}))
}

func TestForcedUnionTrigger(t *testing.T) {
	m := mission(t, "union_forcee")
	require.True(t, m.Triggered(Turn{Letter: "q"}))
	require.False(t, m.Triggered(Turn{Letter: "u"}))
}

func TestEffects(t *testing.T) {
	require.Equal(t, Effect{SpeedMultiplier: 1.3}, mission(t, "suite_harmonique").Effect())
	require.Equal(t, Effect{RaiseMaxTimeout: 1.5}, mission(t, "mur_de_consonnes").Effect())
	require.Equal(t, Effect{Ricochet: true}, mission(t, "echo_parfait").Effect())
	require.Equal(t, Effect{ScrambleOpponent: true}, mission(t, "progression_alphabetique").Effect())
	require.Equal(t, Effect{MirrorMove: true}, mission(t, "symetrie_inversee").Effect())
	require.Equal(t, Effect{SpeedMultiplier: 1.2}, mission(t, "frappe_eclair").Effect())
	require.Equal(t, Effect{RestoreMaxTimeout: true}, mission(t, "au_bord_du_precipice").Effect())
	require.Equal(t, Effect{HalveBase: true}, mission(t, "pression_constante").Effect())
	require.Equal(t, Effect{}, mission(t, "coup_du_dictionnaire").Effect())
	require.Equal(t, Effect{ForcedLetter: "u"}, mission(t, "union_forcee").Effect())
}

func TestStateReconstruct(t *testing.T) {
	m := mission(t, "suite_harmonique")
	m.CurrentStep = 2
	states := States([]*Mission{m})
	require.Len(t, states, 1)
	require.Equal(t, "suite_harmonique", states[0].ID)
	require.Equal(t, "Suite Harmonique", states[0].Name)
	require.Equal(t, 3, states[0].Goal)
	require.Equal(t, 2, states[0].CurrentStep)

	restored := Reconstruct(states, true)
	require.Len(t, restored, 1)
	require.Equal(t, 2, restored[0].CurrentStep)
	require.Equal(t, KindSuiteHarmonique, restored[0].Kind)

	fresh := Reconstruct(states, false)
	require.Equal(t, 0, fresh[0].CurrentStep)
}

func TestReconstructDropsUnknown(t *testing.T) {
	states := []protocol.MissionState{
		{ID: "union_forcee", CurrentStep: 1},
		{ID: "from_the_future", CurrentStep: 7},
	}
	restored := Reconstruct(states, true)
	require.Len(t, restored, 1)
	require.Equal(t, "union_forcee", restored[0].ID)
}

func TestSelectInitial(t *testing.T) {
	e := NewEngine(rand.New(rand.NewSource(1)))
	picked := e.SelectInitial()
	require.Len(t, picked, InitialCount)
	seen := map[string]bool{}
	for _, m := range picked {
		require.False(t, seen[m.ID])
		seen[m.ID] = true
		require.Equal(t, 0, m.CurrentStep)
	}
}

func TestReplacementAvoidsUsed(t *testing.T) {
	e := NewEngine(rand.New(rand.NewSource(1)))
	var active, completed []*Mission
	for i := 0; i < len(Templates()); i++ {
		m, ok := e.Replacement(active, completed)
		require.True(t, ok)
		for _, used := range completed {
			require.NotEqual(t, used.ID, m.ID)
		}
		completed = append(completed, m)
	}
	_, ok := e.Replacement(active, completed)
	require.False(t, ok, "deck should be exhausted")
}
