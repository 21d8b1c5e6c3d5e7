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

// LoopRegion wraps one loop as the unit of analysis, so the shape
// propagation and cost model reason about the loop body independently of
// the surrounding function.
type LoopRegion struct {
	Loop *ir.Loop
}

// NewLoopRegion wraps l.
func NewLoopRegion(l *ir.Loop) *LoopRegion { return &LoopRegion{Loop: l} }

// Contains reports whether b belongs to the region.
func (r *LoopRegion) Contains(b *ir.Block) bool { return r.Loop.Contains(b) }

// Entry returns the region entry block, the loop header.
func (r *LoopRegion) Entry() *ir.Block { return r.Loop.Header }

// Blocks returns the region blocks in the function's layout order, which
// is deterministic across runs.
func (r *LoopRegion) Blocks() []*ir.Block {
	var blocks []*ir.Block
	for _, b := range r.Loop.Header.Func.Blocks {
		if r.Loop.Contains(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
