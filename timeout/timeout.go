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

// Package timeout computes how long the next player gets to answer.
// The calculation is pure: it never touches shared state, and it returns
// a copy of the vowel power table instead of mutating the caller's.
package timeout

import (
	"fmt"

	"github.com/wordball/wordball/letters"
)

// Bounds and modifiers of the countdown, in milliseconds unless noted.
const (
	Base = 15000
	Min  = 3000
	Max  = 60000

	// SpeedPivot is the response time below which playing fast earns
	// the opponent less time.
	SpeedPivot   = 5000
	SpeedFactor  = 1.5
	VowelPenalty = 7500

	MaxVowelPower = 2.0
	RechargeRate  = 0.25
)

// CalcLog keeps every intermediate value of one calculation so clients
// can show how a countdown came to be.
type CalcLog struct {
	BaseTimeout   int     `json:"base_timeout"`
	SpeedBonus    float64 `json:"speed_bonus"`
	VowelBonus    float64 `json:"vowel_bonus"`
	CursedMalus   bool    `json:"cursed_malus"`
	PadComboMalus bool    `json:"pad_combo_malus"`
	FinalTimeout  int     `json:"final_timeout"`
}

// Next computes the countdown granted to the opponent after a move.
//
// responseTimeMs is how long the mover took, newWord the word including
// the letter just played, and vowelPower the mover's current vowel table
// (missing vowels count as 1.0). cursedMalus quarters the result when the
// letter played is cursed, padComboMalus halves it after a "#" combo.
//
// It returns the clamped countdown in milliseconds, the tags describing
// which modifiers applied (in application order), the mover's updated
// vowel table and the full calculation log.
func Next(responseTimeMs int, newWord string, vowelPower map[string]float64, cursedMalus, padComboMalus bool) (int, []string, map[string]float64, CalcLog) {
	speedBonus := float64(SpeedPivot-responseTimeMs) * SpeedFactor
	newLetter := newWord[len(newWord)-1:]
	vowelBonus := 0.0
	tags := []string{}

	newPower := make(map[string]float64, len(vowelPower))
	for k, v := range vowelPower {
		newPower[k] = v
	}

	if letters.IsVowel(newLetter) {
		power, ok := newPower[newLetter]
		if !ok {
			power = 1.0
		}
		vowelBonus = -VowelPenalty * power
		newPower[newLetter] = power / 2
		if vowelBonus < 0 {
			tags = append(tags, fmt.Sprintf("voyelle (%.0f%%)", power*100))
		}
	} else {
		recharged := false
		for i := 0; i < len(letters.Vowels); i++ {
			v := letters.Vowels[i : i+1]
			power, ok := newPower[v]
			if !ok {
				power = 1.0
			}
			if power < MaxVowelPower {
				recharged = true
				power += RechargeRate
				if power > MaxVowelPower {
					power = MaxVowelPower
				}
				newPower[v] = power
			}
		}
		if recharged {
			tags = append(tags, "recharge")
		}
	}

	final := float64(Base) + speedBonus + vowelBonus
	if cursedMalus {
		final *= 0.25
		tags = append(tags, "maudite")
	}
	if padComboMalus {
		final *= 0.5
		tags = append(tags, "combo #")
	}
	if speedBonus > 0 {
		tags = append(tags, "vitesse")
	}

	if final < Min {
		final = Min
	}
	if final > Max {
		final = Max
	}

	clamped := int(final)
	log := CalcLog{
		BaseTimeout:   Base,
		SpeedBonus:    speedBonus,
		VowelBonus:    vowelBonus,
		CursedMalus:   cursedMalus,
		PadComboMalus: padComboMalus,
		FinalTimeout:  clamped,
	}
	return clamped, tags, newPower, log
}
