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
	"time"
)

// InitialCount is how many missions run at a time.
const InitialCount = 3

// Engine deals missions in and out of play. Callers serialize access;
// the game store invokes it under its own lock.
type Engine struct {
	rng *rand.Rand
}

// NewEngine returns an engine drawing from rng, or from a time-seeded
// source when rng is nil.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// SelectInitial samples the starting mission set without replacement.
func (e *Engine) SelectInitial() []*Mission {
	n := InitialCount
	if n > len(templates) {
		n = len(templates)
	}
	out := make([]*Mission, 0, n)
	for _, i := range e.rng.Perm(len(templates))[:n] {
		out = append(out, &Mission{Template: templates[i]})
	}
	return out
}

// Replacement draws a mission whose template is in neither list, false
// when the deck is exhausted.
func (e *Engine) Replacement(active, completed []*Mission) (*Mission, bool) {
	used := make(map[string]bool, len(active)+len(completed))
	for _, m := range active {
		used[m.ID] = true
	}
	for _, m := range completed {
		used[m.ID] = true
	}
	var avail []Template
	for _, t := range templates {
		if !used[t.ID] {
			avail = append(avail, t)
		}
	}
	if len(avail) == 0 {
		return nil, false
	}
	return &Mission{Template: avail[e.rng.Intn(len(avail))]}, true
}
