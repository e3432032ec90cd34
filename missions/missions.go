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

// Package missions implements the side objectives running next to the
// main game. A mission is a template (what to watch for) plus a step
// counter. Behavior hangs off a Kind tag so templates stay data and the
// whole rule set lives in three switches: Progress, Triggered, Effect.
// What a trigger does to shared game state is described by an Effect
// value and applied by the turn controller, never here.
package missions

import (
	"github.com/wordball/wordball/letters"
	"github.com/wordball/wordball/protocol"
)

// Kind selects the behavior of a mission template.
type Kind int

const (
	KindSuiteHarmonique Kind = iota
	KindMurDeConsonnes
	KindEchoParfait
	KindProgressionAlphabetique
	KindSymetrieInversee
	KindFrappeEclair
	KindAuBordDuPrecipice
	KindPressionConstante
	KindCoupDuDictionnaire
	KindUnionForcee
)

// Template is the immutable description of a mission. Name and
// Description are shown to players and stay in French, as shipped.
type Template struct {
	ID          string
	Name        string
	Description string
	Goal        int
	Kind        Kind
}

var templates = []Template{
	{"suite_harmonique", "Suite Harmonique", "Jouer 3 voyelles consécutives. Réduit le temps du prochain adversaire de 30%.", 3, KindSuiteHarmonique},
	{"mur_de_consonnes", "Mur de Consonnes", "Jouer 4 consonnes consécutives. Augmente votre temps pour le prochain tour de 50%.", 4, KindMurDeConsonnes},
	{"echo_parfait", "Écho Parfait", "Jouer la même lettre que l'adversaire. Renvoie la balle instantanément.", 1, KindEchoParfait},
	{"progression_alphabetique", "Progression Alphabétique", "Jouer une lettre qui suit la précédente dans l'alphabet. Brouille le clavier de l'adversaire.", 1, KindProgressionAlphabetique},
	{"symetrie_inversee", "Symétrie Inversée", "Compléter un palindrome. Annule le dernier coup de l'adversaire.", 1, KindSymetrieInversee},
	{"frappe_eclair", "Frappe Éclair", "Jouer 3 fois de suite en moins de 25% du temps. Accélère le temps de l'adversaire.", 3, KindFrappeEclair},
	{"au_bord_du_precipice", "Au Bord du Précipice", "Jouer avec moins de 10% de temps restant. Récupère tout votre temps.", 1, KindAuBordDuPrecipice},
	{"pression_constante", "Pression Constante", "Échanger la balle 10 fois. Réduit le temps de base de 50%.", 1, KindPressionConstante},
	{"coup_du_dictionnaire", "Le Coup du Dictionnaire", "Jouer une lettre rare (K, W, X, Y, Z). Pénalise l'adversaire s'il ne joue pas une voyelle.", 1, KindCoupDuDictionnaire},
	{"union_forcee", "Union Forcée", "Jouer la lettre 'Q'. Force l'adversaire à jouer 'U'.", 1, KindUnionForcee},
}

// Templates returns a copy of all known templates in their stable order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateByID finds a template, false for ids from newer or older peers.
func TemplateByID(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Mission is a template in play with its progress.
type Mission struct {
	Template
	CurrentStep int
}

// Turn is everything mission rules may look at about the move that was
// just committed. History already contains the move. MaxTimeoutMs is the
// mover's ceiling, TimeoutMs the countdown the move was played under.
type Turn struct {
	Player         string
	Letter         string
	Word           string
	ResponseTimeMs int
	TimeoutMs      int
	MaxTimeoutMs   int
	History        []protocol.HistoryEntry
}

// Progress advances or resets the step counter. Only streak missions
// keep a counter; the rest trigger directly.
func (m *Mission) Progress(t Turn) {
	switch m.Kind {
	case KindSuiteHarmonique:
		if letters.IsVowel(t.Letter) {
			m.CurrentStep++
		} else {
			m.CurrentStep = 0
		}
	case KindMurDeConsonnes:
		if !letters.IsVowel(t.Letter) {
			m.CurrentStep++
		} else {
			m.CurrentStep = 0
		}
	case KindFrappeEclair:
		if float64(t.ResponseTimeMs) < float64(t.MaxTimeoutMs)*0.25 {
			m.CurrentStep++
		} else {
			m.CurrentStep = 0
		}
	}
}

// Triggered reports whether the mission completes on this turn.
func (m *Mission) Triggered(t Turn) bool {
	switch m.Kind {
	case KindSuiteHarmonique, KindMurDeConsonnes, KindFrappeEclair:
		return m.CurrentStep >= m.Goal
	case KindEchoParfait:
		if len(t.History) < 2 {
			return false
		}
		mine := t.History[len(t.History)-1].Word
		theirs := t.History[len(t.History)-2].Word
		return mine != "" && theirs != "" && mine[len(mine)-1] == theirs[len(theirs)-1]
	case KindProgressionAlphabetique:
		if len(t.Word) < 2 {
			return false
		}
		return letters.Consecutive(t.Word[len(t.Word)-2:len(t.Word)-1], t.Word[len(t.Word)-1:])
	case KindSymetrieInversee:
		return len(t.Word) > 1 && isPalindrome(t.Word)
	case KindAuBordDuPrecipice:
		return float64(t.ResponseTimeMs) > float64(t.TimeoutMs)*0.9
	case KindPressionConstante:
		return len(t.History)%10 == 0
	case KindCoupDuDictionnaire:
		return letters.IsRare(t.Letter)
	case KindUnionForcee:
		return t.Letter == "q"
	}
	return false
}

// Effect is what a completed mission does to the game. The turn
// controller owns shared state, so it reads this and applies it.
type Effect struct {
	// SpeedMultiplier > 0 divides the countdown granted to the opponent.
	SpeedMultiplier float64
	// RaiseMaxTimeout > 0 multiplies the player's timeout ceiling.
	RaiseMaxTimeout float64
	// RestoreMaxTimeout resets the player's ceiling to the maximum.
	RestoreMaxTimeout bool
	// ScrambleOpponent garbles the opponent's keyboard for one turn.
	ScrambleOpponent bool
	// Ricochet returns the ball to the opponent immediately.
	Ricochet bool
	// MirrorMove reverts the opponent's last move.
	MirrorMove bool
	// ForcedLetter is the only letter the next player may play.
	ForcedLetter string
	// HalveBase halves the base countdown for this turn's handoff.
	HalveBase bool
}

// Effect returns the state changes this mission causes when triggered.
// Le Coup du Dictionnaire intentionally maps to nothing: its penalty
// never shipped.
func (m *Mission) Effect() Effect {
	switch m.Kind {
	case KindSuiteHarmonique:
		return Effect{SpeedMultiplier: 1.3}
	case KindMurDeConsonnes:
		return Effect{RaiseMaxTimeout: 1.5}
	case KindEchoParfait:
		return Effect{Ricochet: true}
	case KindProgressionAlphabetique:
		return Effect{ScrambleOpponent: true}
	case KindSymetrieInversee:
		return Effect{MirrorMove: true}
	case KindFrappeEclair:
		return Effect{SpeedMultiplier: 1.2}
	case KindAuBordDuPrecipice:
		return Effect{RestoreMaxTimeout: true}
	case KindPressionConstante:
		return Effect{HalveBase: true}
	case KindUnionForcee:
		return Effect{ForcedLetter: "u"}
	}
	return Effect{}
}

// State serializes the mission for the wire and for subscribers.
func (m *Mission) State() protocol.MissionState {
	return protocol.MissionState{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Goal:        m.Goal,
		CurrentStep: m.CurrentStep,
	}
}

// States serializes a mission list, keeping order.
func States(ms []*Mission) []protocol.MissionState {
	out := make([]protocol.MissionState, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.State())
	}
	return out
}

// Reconstruct rebuilds missions from serialized states, reattaching
// behavior by template id. States with unknown ids are dropped.
// restoreStep keeps the serialized progress; completed missions are
// rebuilt without it.
func Reconstruct(states []protocol.MissionState, restoreStep bool) []*Mission {
	out := make([]*Mission, 0, len(states))
	for _, s := range states {
		t, ok := TemplateByID(s.ID)
		if !ok {
			continue
		}
		m := &Mission{Template: t}
		if restoreStep {
			m.CurrentStep = s.CurrentStep
		}
		out = append(out, m)
	}
	return out
}

func isPalindrome(w string) bool {
	for i, j := 0, len(w)-1; i < j; i, j = i+1, j-1 {
		if w[i] != w[j] {
			return false
		}
	}
	return true
}
