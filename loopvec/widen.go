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

import (
	"fmt"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// Widening maps every scalar instruction of the prepared, linearized loop
// to its vector counterpart, in place:
//
//   - uniform values pass through unchanged;
//   - strided values stay scalar holding their lane-0 meaning, with
//     induction steps scaled by the width and Ramp materialization at
//     consumers that need the full per-lane vector;
//   - varying values become one widened instruction each;
//   - reduction accumulators become vector phis seeded with the operator's
//     neutral element off lane 0, folded back to a scalar after the loop.
//
// checkCallsResolvable is the read-only planning half; widenLoop mutates
// and must only run after planning approved the region.

// checkCallsResolvable verifies during planning that every call the
// widening would have to vectorize has a vector variant. A missing variant
// fails the whole attempt; there is no scalarization fallback.
func checkCallsResolvable(vi *VectorizationInfo, plat *PlatformInfo) error {
	for _, b := range vi.Region.Blocks() {
		for _, v := range b.Values {
			if v.Op != ir.OpCall || vi.Shape(v).IsUniform() {
				continue
			}
			if _, ok := plat.Resolve(v.Aux, vi.Width); !ok {
				return fmt.Errorf("no vector variant of %q at width %d", v.Aux, vi.Width)
			}
		}
	}
	return nil
}

// widenLoop vectorizes the prepared loop and returns the block side table
// mapping every original region block to its vectorized counterpart.
// Failures past this point are implementation defects and panic.
func widenLoop(vi *VectorizationInfo, plat *PlatformInfo, bridge *ir.Block) map[*ir.Block]*ir.Block {
	w := vi.Width
	region := vi.Region
	loop := region.Loop
	pre := loop.Preheader()
	vecTy := ir.VecType(w)

	// Scale every induction step: one vector step covers w iterations.
	// Header phi order keeps the inserted values deterministic.
	for _, phi := range loop.Header.Phis() {
		pat := vi.Strides[phi]
		if pat == nil {
			continue
		}
		next := pat.Next
		pos := valueIndex(next.Block, next)
		scaled := next.Block.NewValueAt(pos, ir.OpConst, ir.Scalar)
		scaled.AuxInt = pat.Stride * int64(w)
		vi.SetShape(scaled, UniformShape())

		// The increment may feed more than the back edge. Scaling it in
		// place would hand every other user the next vector's base, so a
		// shared increment keeps its per-iteration meaning and the back
		// edge gets its own scaled add.
		if incrementShared(vi.Func, next, phi) {
			vecNext := next.Block.NewValueAt(pos+2, ir.OpAdd, ir.Scalar, phi, scaled)
			vi.SetShape(vecNext, StridedShape(pat.Stride))
			for i, a := range phi.Args {
				if a == next {
					phi.Args[i] = vecNext
				}
			}
			continue
		}
		for i, a := range next.Args {
			if a != pat.Phi {
				next.Args[i] = scaled
			}
		}
	}

	// Rebuild reduction accumulators as vector phis: lane 0 carries the
	// incoming value, the other lanes start at the operator's neutral
	// element, and the bridge folds the lanes back together for the
	// remainder loop.
	preIdx := loop.Header.PredIndex(pre)
	nFolded := 0
	for _, phi := range loop.Header.Phis() {
		red := vi.Reductions[phi]
		if red == nil {
			continue
		}
		neutral := pre.Const(red.Kind.Neutral())
		splat := pre.NewValue(ir.OpBroadcast, vecTy, neutral)
		seeded := pre.NewValue(ir.OpInsertLane, vecTy, splat, phi.Args[preIdx])
		seeded.AuxInt = 0
		phi.Type = vecTy
		phi.Args[preIdx] = seeded
		vi.SetShape(neutral, UniformShape())
		vi.SetShape(splat, VaryingShape())
		vi.SetShape(seeded, VaryingShape())

		folded := bridge.NewValueAt(nFolded, red.Kind.ReduceOp(), ir.Scalar, phi)
		nFolded++
		replaceUsesOutside(region, phi, folded)
	}

	// Widen the body.
	for _, b := range region.Blocks() {
		for i := 0; i < len(b.Values); i++ {
			v := b.Values[i]
			switch v.Op {
			case ir.OpPhi, ir.OpConst, ir.OpArg:
				continue
			case ir.OpStore, ir.OpMaskedStore:
				i += widenStore(vi, v)
				continue
			}
			if !vi.Shape(v).IsVarying() {
				continue
			}
			i += widenValue(vi, plat, v)
		}
	}

	// In-place rewrite: each region block is its own vector counterpart.
	table := make(map[*ir.Block]*ir.Block, len(loop.Blocks))
	for b := range loop.Blocks {
		table[b] = b
	}
	return table
}

// widenValue turns one varying instruction into its vector form, adapting
// scalar operands in front of it. Returns how many values were inserted
// before v.
func widenValue(vi *VectorizationInfo, plat *PlatformInfo, v *ir.Value) int {
	w := vi.Width
	inserted := 0
	for ai, a := range v.Args {
		adapter, n := vectorOperand(vi, v, a)
		v.Args[ai] = adapter
		inserted += n
	}
	v.Type = ir.VecType(w)

	if v.Op == ir.OpCall {
		vecName, ok := plat.Resolve(v.Aux, w)
		if !ok {
			panic(fmt.Sprintf("loopvec: call %q lost its vector variant after planning", v.Aux))
		}
		v.Aux = vecName
	}
	return inserted
}

// widenStore vectorizes a store: address, value and mask all become full
// per-lane vectors, a scatter in the general case. Returns how many values
// were inserted before v.
func widenStore(vi *VectorizationInfo, v *ir.Value) int {
	if v.Op == ir.OpStore && operandShape(vi, v.Args[0]).IsUniform() {
		if operandShape(vi, v.Args[1]).IsUniform() {
			// Same address, same value on every lane: one scalar write
			// per vector step leaves memory identical.
			return 0
		}
		// Same address, different values: every lane writes the same
		// cell, so only the last lane survives, exactly as the last
		// scalar iteration of the step would. Store that lane alone.
		vec, n := vectorOperand(vi, v, v.Args[1])
		last := v.Block.NewValueAt(valueIndex(v.Block, v), ir.OpExtractLane, ir.Scalar, vec)
		last.AuxInt = int64(vi.Width - 1)
		vi.SetShape(last, UniformShape())
		v.Args[1] = last
		return n + 1
	}
	inserted := 0
	for ai, a := range v.Args {
		adapter, n := vectorOperand(vi, v, a)
		v.Args[ai] = adapter
		inserted += n
	}
	return inserted
}

// vectorOperand returns a vector-typed operand for a's use in v, inserting
// a Broadcast or Ramp adapter directly before v when a stays scalar.
func vectorOperand(vi *VectorizationInfo, v *ir.Value, a *ir.Value) (*ir.Value, int) {
	if a.Type.IsVector() {
		return a, 0
	}
	w := vi.Width
	b := v.Block
	pos := valueIndex(b, v)
	s := operandShape(vi, a)
	if s.IsStrided() && s.Stride() != 0 {
		ramp := b.NewValueAt(pos, ir.OpRamp, ir.VecType(w), a)
		ramp.AuxInt = s.Stride()
		vi.SetShape(ramp, VaryingShape())
		return ramp, 1
	}
	splat := b.NewValueAt(pos, ir.OpBroadcast, ir.VecType(w), a)
	vi.SetShape(splat, VaryingShape())
	return splat, 1
}

// incrementShared reports whether next has any user or control use beyond
// the induction phi's back edge.
func incrementShared(f *ir.Func, next, phi *ir.Value) bool {
	for _, u := range f.Users(next) {
		if u != phi {
			return true
		}
	}
	for _, b := range f.Blocks {
		if b.Control == next {
			return true
		}
	}
	return false
}

func valueIndex(b *ir.Block, v *ir.Value) int {
	for i, u := range b.Values {
		if u == v {
			return i
		}
	}
	panic("loopvec: value not in its block")
}

// replaceUsesOutside rewrites uses of old with repl in every block outside
// the region.
func replaceUsesOutside(region *LoopRegion, old, repl *ir.Value) {
	f := region.Entry().Func
	for _, b := range f.Blocks {
		if region.Contains(b) {
			continue
		}
		for _, u := range b.Values {
			if u == repl {
				continue
			}
			for i, a := range u.Args {
				if a == old {
					u.Args[i] = repl
				}
			}
		}
		if b.Control == old {
			b.Control = repl
		}
	}
}
