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

// analyzeShapes propagates vector shapes from the pinned header and
// override set through the region body. The transfer functions are
// monotone over the shape lattice and the walk iterates to a fixed point;
// shapes only ever move upward (toward varying), never below what the
// operands justify.
func analyzeShapes(vi *VectorizationInfo) {
	region := vi.Region
	blocks := regionRPO(region)

	for changed := true; changed; {
		changed = false
		divergent := hasDivergentBranch(vi)
		for _, b := range blocks {
			for _, v := range b.Values {
				if vi.IsPinned(v) || v.Op.HasSideEffects() {
					continue
				}
				ns := transferShape(vi, v, divergent)
				if !ns.IsDefined() {
					continue
				}
				joined := vi.Shape(v).Join(ns)
				if joined != vi.Shape(v) {
					vi.SetShape(v, joined)
					changed = true
				}
			}
		}
	}
}

// regionRPO returns the region blocks in reverse postorder restricted to
// the region.
func regionRPO(region *LoopRegion) []*ir.Block {
	var blocks []*ir.Block
	for _, b := range region.Entry().Func.ReversePostorder() {
		if region.Contains(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// operandShape resolves the shape of an operand: values defined outside
// the region are loop invariant and read as uniform.
func operandShape(vi *VectorizationInfo, a *ir.Value) VectorShape {
	if a.Op == ir.OpConst || a.Op == ir.OpArg {
		return UniformShape()
	}
	if !vi.Region.Contains(a.Block) {
		return UniformShape()
	}
	return vi.Shape(a)
}

// hasDivergentBranch reports whether any branch inside the region is
// currently known non-uniform. Merges under divergent control cannot stay
// uniform regardless of their operands.
func hasDivergentBranch(vi *VectorizationInfo) bool {
	for _, b := range vi.Region.Blocks() {
		if b.Kind != ir.BlockIf {
			continue
		}
		s := operandShape(vi, b.Control)
		if s.IsDefined() && !s.IsUniform() {
			return true
		}
	}
	return false
}

// transferShape computes v's shape from its operands. An undefined result
// means the operands are not yet known and the value is left for a later
// pass.
func transferShape(vi *VectorizationInfo, v *ir.Value, divergent bool) VectorShape {
	switch v.Op {
	case ir.OpConst, ir.OpArg:
		return UniformShape()

	case ir.OpPhi:
		// Merge point inside the body: the join of the incomings, forced
		// to varying when the region has divergent control.
		var s VectorShape
		for _, a := range v.Args {
			s = s.Join(operandShape(vi, a))
		}
		if !s.IsDefined() {
			return UndefShape()
		}
		if divergent {
			return VaryingShape()
		}
		return s

	case ir.OpAdd, ir.OpSub:
		a := operandShape(vi, v.Args[0])
		b := operandShape(vi, v.Args[1])
		if !a.IsDefined() || !b.IsDefined() {
			return UndefShape()
		}
		if a.IsStrided() && b.IsStrided() {
			if v.Op == ir.OpAdd {
				return StridedShape(a.Stride() + b.Stride())
			}
			return StridedShape(a.Stride() - b.Stride())
		}
		return VaryingShape()

	case ir.OpMul:
		a := operandShape(vi, v.Args[0])
		b := operandShape(vi, v.Args[1])
		if !a.IsDefined() || !b.IsDefined() {
			return UndefShape()
		}
		if a.IsUniform() && b.IsUniform() {
			return UniformShape()
		}
		// Scaling a strided value by a known constant composes strides.
		if a.IsStrided() && b.IsUniform() && v.Args[1].Op == ir.OpConst {
			return StridedShape(a.Stride() * v.Args[1].AuxInt)
		}
		if b.IsStrided() && a.IsUniform() && v.Args[0].Op == ir.OpConst {
			return StridedShape(b.Stride() * v.Args[0].AuxInt)
		}
		return VaryingShape()

	case ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpMin, ir.OpMax, ir.OpCmpLT, ir.OpCmpEQ:
		return uniformOrVarying(vi, v)

	case ir.OpSelect:
		cond := operandShape(vi, v.Args[0])
		if !cond.IsDefined() {
			return UndefShape()
		}
		if !cond.IsUniform() {
			return VaryingShape()
		}
		a := operandShape(vi, v.Args[1])
		b := operandShape(vi, v.Args[2])
		if !a.IsDefined() || !b.IsDefined() {
			return UndefShape()
		}
		return a.Join(b)

	case ir.OpLoad:
		addr := operandShape(vi, v.Args[0])
		if !addr.IsDefined() {
			return UndefShape()
		}
		// The region is hazard free per its annotation, so a load from a
		// loop-invariant address reads the same value in every lane.
		if addr.IsUniform() {
			return UniformShape()
		}
		return VaryingShape()

	case ir.OpCall:
		return uniformOrVarying(vi, v)
	}

	// Vector-construction ops do not occur before widening.
	return VaryingShape()
}

func uniformOrVarying(vi *VectorizationInfo, v *ir.Value) VectorShape {
	uniform := true
	for _, a := range v.Args {
		s := operandShape(vi, a)
		if !s.IsDefined() {
			return UndefShape()
		}
		if !s.IsUniform() {
			uniform = false
		}
	}
	if uniform {
		return UniformShape()
	}
	return VaryingShape()
}
