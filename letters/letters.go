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

// Package letters holds the alphabet tables every other package agrees on:
// which letters count as vowels, which are rare, and how letters map onto
// a classic phone keypad. Letters are single lowercase ASCII characters
// carried around as one-character strings, same as on the wire.
package letters

import (
	"math/rand"
	"strings"
)

// Alphabet is every letter a word may be built from.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// Vowels cost power to play. "y" counts as a vowel here and as a rare
// letter below; both rules apply to it.
const Vowels = "aeiouy"

// Rare letters score the dictionary mission.
const Rare = "kwxyz"

// padOf maps every letter to its keypad digit ("2".."9").
var padOf = map[string]string{
	"a": "2", "b": "2", "c": "2",
	"d": "3", "e": "3", "f": "3",
	"g": "4", "h": "4", "i": "4",
	"j": "5", "k": "5", "l": "5",
	"m": "6", "n": "6", "o": "6",
	"p": "7", "q": "7", "r": "7", "s": "7",
	"t": "8", "u": "8", "v": "8",
	"w": "9", "x": "9", "y": "9", "z": "9",
}

// comboColumns maps a combo key to the keypad digits it drains.
// "*" clears two columns, the others one row of three.
var comboColumns = map[string][]string{
	"*": {"7", "4"},
	"0": {"2", "5", "8"},
	"#": {"3", "6", "9"},
}

// IsValid reports whether l is a single lowercase ASCII letter.
func IsValid(l string) bool {
	return len(l) == 1 && l[0] >= 'a' && l[0] <= 'z'
}

// IsVowel reports whether l spends vowel power when played.
func IsVowel(l string) bool {
	return len(l) == 1 && strings.Contains(Vowels, l)
}

// IsRare reports whether l is one of the rare letters.
func IsRare(l string) bool {
	return len(l) == 1 && strings.Contains(Rare, l)
}

// Pad returns the keypad digit for l, or false for anything that is not
// a lowercase letter.
func Pad(l string) (string, bool) {
	d, ok := padOf[l]
	return d, ok
}

// PadLetters returns the letters printed on keypad digit d, in alphabet
// order. Unknown digits yield nil.
func PadLetters(d string) []string {
	var out []string
	for _, l := range strings.Split(Alphabet, "") {
		if padOf[l] == d {
			out = append(out, l)
		}
	}
	return out
}

// ComboColumns returns the keypad digits drained by combo key k,
// or false for an unknown key.
func ComboColumns(k string) ([]string, bool) {
	cols, ok := comboColumns[k]
	return cols, ok
}

// ComboKeys returns the recognized combo keys.
func ComboKeys() []string {
	return []string{"*", "0", "#"}
}

// NewPadCounts returns a fresh per-digit tally, one zero entry per
// keypad digit "2".."9".
func NewPadCounts() map[string]int {
	pad := make(map[string]int, 8)
	for d := '2'; d <= '9'; d++ {
		pad[string(d)] = 0
	}
	return pad
}

// Random picks a letter uniformly from the alphabet using rng.
func Random(rng *rand.Rand) string {
	return string(Alphabet[rng.Intn(len(Alphabet))])
}

// Consecutive reports whether b directly follows a in the alphabet.
func Consecutive(a, b string) bool {
	return len(a) == 1 && len(b) == 1 && b[0] == a[0]+1
}
