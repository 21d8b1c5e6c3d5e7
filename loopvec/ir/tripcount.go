// Copyright 2026 go-loopvec Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import "math"

// IndVar describes a recognized counting induction variable:
//
//	iv = Phi(init, next)    in the loop header
//	next = Add(iv, step)    inside the loop, step a nonzero constant
//
// Bound is the (loop-invariant) right operand of the CmpLT exit test when
// the exiting block is the header; nil otherwise.
type IndVar struct {
	Phi   *Value
	Init  *Value
	Next  *Value
	Step  int64
	Bound *Value
}

// ParseIndVar matches phi against the canonical induction pattern within l.
// It returns nil when phi is not a recognized counting induction.
func ParseIndVar(l *Loop, phi *Value) *IndVar {
	if phi.Op != OpPhi || phi.Block != l.Header || len(phi.Args) != 2 {
		return nil
	}
	pre := l.Preheader()
	if pre == nil {
		return nil
	}
	preIdx := l.Header.PredIndex(pre)
	latchIdx := l.Header.PredIndex(l.Latch)
	if preIdx < 0 || latchIdx < 0 {
		return nil
	}
	init := phi.Args[preIdx]
	next := phi.Args[latchIdx]

	if next.Op != OpAdd || !l.Contains(next.Block) {
		return nil
	}
	var stepVal *Value
	if next.Args[0] == phi {
		stepVal = next.Args[1]
	} else if next.Args[1] == phi {
		stepVal = next.Args[0]
	} else {
		return nil
	}
	if stepVal.Op != OpConst || stepVal.AuxInt == 0 {
		return nil
	}

	iv := &IndVar{Phi: phi, Init: init, Next: next, Step: stepVal.AuxInt}

	if l.ExitingBlock() == l.Header && l.Header.Kind == BlockIf {
		if cond := l.Header.Control; cond != nil && cond.Op == OpCmpLT && cond.Args[0] == phi {
			iv.Bound = cond.Args[1]
		}
	}
	return iv
}

// TripCount evaluates the closed-form trip count of l. It reports ok only
// when the exit test is the canonical CmpLT(iv, bound) with constant init,
// step and bound, the backward-edge count is a constant strictly greater
// than one, and the total fits a 32-bit signed integer. Everything else is
// "unknown" and the caller must treat the count as dynamic.
func TripCount(l *Loop) (int64, bool) {
	iv := headerIndVar(l)
	if iv == nil || iv.Bound == nil {
		return 0, false
	}
	if iv.Init.Op != OpConst || iv.Bound.Op != OpConst || iv.Step <= 0 {
		return 0, false
	}
	diff := iv.Bound.AuxInt - iv.Init.AuxInt
	if diff <= 0 {
		return 0, false
	}
	trips := (diff + iv.Step - 1) / iv.Step
	// The loop takes the back edge trips-1 times; a count this small is
	// not worth splitting and reads as unknown.
	if trips-1 <= 1 || trips > math.MaxInt32 {
		return 0, false
	}
	return trips, true
}

func headerIndVar(l *Loop) *IndVar {
	for _, phi := range l.Header.Phis() {
		if iv := ParseIndVar(l, phi); iv != nil {
			return iv
		}
	}
	return nil
}
