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

// CostModel picks a vector width for a loop region. The search is a
// bounded downward walk over power-of-two candidates and depends only on
// the region and the platform, so identical inputs always produce the same
// verdict.
type CostModel struct {
	plat   *PlatformInfo
	config Config
}

// NewCostModel builds a cost model over the given platform.
func NewCostModel(plat *PlatformInfo, config Config) *CostModel {
	return &CostModel{plat: plat, config: config}
}

// Per-instruction cost weights, in abstract cycles.
const (
	costArith    = 1
	costMem      = 2
	costCall     = 8
	costMaskOver = 2 // per divergent branch: mask materialization
	costLoopOver = 2 // per vector step: induction update and exit test
)

// PickWidthForRegion searches downward from initialWidth for a profitable
// width. It returns 1 when no width larger than one is judged beneficial.
func (cm *CostModel) PickWidthForRegion(region *LoopRegion, initialWidth int) int {
	w := initialWidth
	if max := cm.plat.MaxVectorWidth(); w > max {
		w = max
	}
	w = floorPow2(w)
	for ; w > 1; w >>= 1 {
		if cm.profitable(region, w) {
			return w
		}
	}
	return 1
}

// profitable compares the estimated cost of one vector step at width w
// against w scalar iterations.
func (cm *CostModel) profitable(region *LoopRegion, w int) bool {
	scalarCost := 0
	vectorCost := costLoopOver

	for _, b := range region.Blocks() {
		if b.Kind == ir.BlockIf && region.Contains(b.Succs[0]) && region.Contains(b.Succs[1]) {
			// A body branch may diverge; budget for predication.
			vectorCost += costMaskOver
		}
		for _, v := range b.Values {
			c := cm.scalarOpCost(v)
			scalarCost += c
			vc, ok := cm.vectorOpCost(v, w)
			if !ok {
				return false
			}
			vectorCost += vc
		}
	}

	return vectorCost < scalarCost*w
}

func (cm *CostModel) scalarOpCost(v *ir.Value) int {
	switch v.Op {
	case ir.OpPhi, ir.OpConst, ir.OpArg:
		return 0
	case ir.OpLoad, ir.OpStore, ir.OpMaskedStore:
		return costMem
	case ir.OpCall:
		return costCall
	default:
		return costArith
	}
}

// vectorOpCost estimates the cost of v's widened form at width w. It
// reports no cost for calls without a resolvable vector variant: such a
// width is infeasible, not merely expensive.
func (cm *CostModel) vectorOpCost(v *ir.Value, w int) (int, bool) {
	switch v.Op {
	case ir.OpPhi, ir.OpConst, ir.OpArg:
		return 0, true
	case ir.OpLoad, ir.OpStore, ir.OpMaskedStore:
		return costMem, true
	case ir.OpCall:
		if _, ok := cm.plat.Resolve(v.Aux, w); !ok {
			return 0, false
		}
		return costCall, true
	default:
		return costArith, true
	}
}

// floorPow2 rounds n down to a power of two, minimum 1.
func floorPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
