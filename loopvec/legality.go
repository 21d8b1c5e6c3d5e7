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

package loopvec

import "github.com/ajroetker/go-loopvec/loopvec/ir"

// canVectorizeLoop gates an attempt on structure: the loop must carry no
// hazards beyond its dependence-distance annotation (checked by the caller
// via the annotation gates) and must have exactly one exiting block ending
// in a two-way conditional branch. Failure is a local bail-out; sub-loops
// are still tried.
func canVectorizeLoop(l *ir.Loop) bool {
	exiting := l.ExitingBlock()
	if exiting == nil {
		return false
	}
	if exiting.Kind != ir.BlockIf {
		return false
	}
	return true
}

// getTripCount returns the loop's closed-form trip count, or -1 when it is
// unknown or not representable.
func getTripCount(l *ir.Loop) int64 {
	trips, ok := ir.TripCount(l)
	if !ok {
		return -1
	}
	return trips
}

// getTripAlignment returns the strongest static divisibility guarantee for
// the loop's trip count: the count itself when known, otherwise 1.
func getTripAlignment(l *ir.Loop) int64 {
	if tc := getTripCount(l); tc > 0 {
		return tc
	}
	return 1
}
