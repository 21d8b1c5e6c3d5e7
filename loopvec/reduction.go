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
	"math"

	"github.com/ajroetker/go-loopvec/loopvec/ir"
)

// RedKind classifies a loop-carried recurrence. Bot marks a non-affine
// recurrence the widening step cannot express; Top marks a non-trivial
// strongly connected component (mixed operators or chained phis). Both are
// permanent rejections for the attempt.
type RedKind uint8

const (
	RedBot RedKind = iota
	RedAdd
	RedMul
	RedAnd
	RedOr
	RedMin
	RedMax
	RedTop
)

func (k RedKind) String() string {
	switch k {
	case RedBot:
		return "Bot"
	case RedAdd:
		return "Add"
	case RedMul:
		return "Mul"
	case RedAnd:
		return "And"
	case RedOr:
		return "Or"
	case RedMin:
		return "Min"
	case RedMax:
		return "Max"
	case RedTop:
		return "Top"
	}
	panic("unreachable")
}

// Neutral returns the identity element of the reduction operator, used to
// seed the non-leading lanes of the widened accumulator.
func (k RedKind) Neutral() int64 {
	switch k {
	case RedAdd, RedOr:
		return 0
	case RedMul:
		return 1
	case RedAnd:
		return -1
	case RedMin:
		return math.MaxInt64
	case RedMax:
		return math.MinInt64
	}
	panic(fmt.Sprintf("loopvec: no neutral element for reduction kind %s", k))
}

// CombineOp returns the lane-wise IR opcode of the reduction operator.
func (k RedKind) CombineOp() ir.Op {
	switch k {
	case RedAdd:
		return ir.OpAdd
	case RedMul:
		return ir.OpMul
	case RedAnd:
		return ir.OpAnd
	case RedOr:
		return ir.OpOr
	case RedMin:
		return ir.OpMin
	case RedMax:
		return ir.OpMax
	}
	panic(fmt.Sprintf("loopvec: no combine op for reduction kind %s", k))
}

// ReduceOp returns the horizontal reduction opcode folding the widened
// accumulator back to a scalar after the loop.
func (k RedKind) ReduceOp() ir.Op {
	switch k {
	case RedAdd:
		return ir.OpReduceAdd
	case RedMul:
		return ir.OpReduceMul
	case RedAnd:
		return ir.OpReduceAnd
	case RedOr:
		return ir.OpReduceOr
	case RedMin:
		return ir.OpReduceMin
	case RedMax:
		return ir.OpReduceMax
	}
	panic(fmt.Sprintf("loopvec: no reduce op for reduction kind %s", k))
}

func redKindForOp(op ir.Op) (RedKind, bool) {
	switch op {
	case ir.OpAdd:
		return RedAdd, true
	case ir.OpMul:
		return RedMul, true
	case ir.OpAnd:
		return RedAnd, true
	case ir.OpOr:
		return RedOr, true
	case ir.OpMin:
		return RedMin, true
	case ir.OpMax:
		return RedMax, true
	}
	return RedBot, false
}

// Reduction describes one recurrence rooted at a header phi: its operator
// kind and the instructions forming the recurrence's strongly connected
// component.
type Reduction struct {
	Kind     RedKind
	Phi      *ir.Value
	Init     *ir.Value // incoming value on the preheader edge
	Elements map[*ir.Value]bool
}

// Shape derives the accumulator's per-lane shape: the widened accumulator
// holds independent partial results per lane, so it is always varying.
func (r *Reduction) Shape(width int) VectorShape { return VaryingShape() }

func (r *Reduction) String() string {
	return fmt.Sprintf("reduction{%s, phi v%d, %d elements}", r.Kind, r.Phi.ID, len(r.Elements))
}

// StridePattern describes a recognized strided induction variable.
type StridePattern struct {
	Phi    *ir.Value
	Init   *ir.Value
	Next   *ir.Value
	Stride int64
}

// Shape derives the induction's per-lane shape at the given width.
func (p *StridePattern) Shape(width int) VectorShape { return StridedShape(p.Stride) }

func (p *StridePattern) String() string {
	return fmt.Sprintf("stride{phi v%d, +%d}", p.Phi.ID, p.Stride)
}

// ReductionAnalysis classifies every header phi of a loop as a strided
// induction, a reduction descriptor, or nothing (unrecognized). Records
// are computed fresh per attempt.
type ReductionAnalysis struct {
	f          *ir.Func
	strides    map[*ir.Value]*StridePattern
	reductions map[*ir.Value]*Reduction
}

// NewReductionAnalysis returns an empty analysis for f.
func NewReductionAnalysis(f *ir.Func) *ReductionAnalysis {
	return &ReductionAnalysis{
		f:          f,
		strides:    map[*ir.Value]*StridePattern{},
		reductions: map[*ir.Value]*Reduction{},
	}
}

// Analyze classifies the header phis of l in header value order.
func (ra *ReductionAnalysis) Analyze(l *ir.Loop) {
	for _, phi := range l.Header.Phis() {
		if iv := ir.ParseIndVar(l, phi); iv != nil {
			ra.strides[phi] = &StridePattern{Phi: phi, Init: iv.Init, Next: iv.Next, Stride: iv.Step}
			continue
		}
		if red := ra.classifyReduction(l, phi); red != nil {
			ra.reductions[phi] = red
		}
	}
}

// StrideInfo returns the induction pattern of phi, nil if not one.
func (ra *ReductionAnalysis) StrideInfo(phi *ir.Value) *StridePattern { return ra.strides[phi] }

// ReductionInfo returns the reduction descriptor of phi, nil if none was
// derived.
func (ra *ReductionAnalysis) ReductionInfo(phi *ir.Value) *Reduction { return ra.reductions[phi] }

// classifyReduction derives a reduction descriptor for a non-induction
// header phi by walking the recurrence cycle from the phi through the back
// edge and back.
func (ra *ReductionAnalysis) classifyReduction(l *ir.Loop, phi *ir.Value) *Reduction {
	pre := l.Preheader()
	if pre == nil {
		return nil
	}
	preIdx := l.Header.PredIndex(pre)
	latchIdx := l.Header.PredIndex(l.Latch)
	if preIdx < 0 || latchIdx < 0 || len(phi.Args) != 2 {
		return nil
	}
	init := phi.Args[preIdx]
	backArg := phi.Args[latchIdx]

	red := &Reduction{Phi: phi, Init: init, Elements: map[*ir.Value]bool{phi: true}}

	// The accumulator must actually recur: a loop-invariant back-edge
	// value is a plain overwrite, a non-affine degenerate case.
	if !l.Contains(backArg.Block) || backArg == phi {
		red.Kind = RedBot
		return red
	}

	// The SCC is the set of in-loop values both reachable from the phi
	// through uses and reaching the back-edge input through operands.
	fwd := reachableUsers(ra.f, l, phi)
	bwd := reachableDefs(l, backArg)
	for v := range fwd {
		if bwd[v] {
			red.Elements[v] = true
		}
	}
	red.Elements[backArg] = true

	// Derive the operator kind from the non-phi elements.
	kind := RedBot
	kindSet := false
	for v := range red.Elements {
		if v == phi {
			continue
		}
		if v.Op == ir.OpPhi {
			// A second phi in the cycle is a non-trivial SCC.
			red.Kind = RedTop
			return red
		}
		k, ok := redKindForOp(v.Op)
		if !ok {
			red.Kind = RedBot
			return red
		}
		if kindSet && k != kind {
			red.Kind = RedTop
			return red
		}
		kind, kindSet = k, true
	}
	if !kindSet {
		red.Kind = RedBot
		return red
	}
	red.Kind = kind
	return red
}

// reachableUsers collects the in-loop values transitively using root.
func reachableUsers(f *ir.Func, l *ir.Loop, root *ir.Value) map[*ir.Value]bool {
	seen := map[*ir.Value]bool{}
	stack := []*ir.Value{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range f.Users(v) {
			if seen[u] || !l.Contains(u.Block) {
				continue
			}
			seen[u] = true
			stack = append(stack, u)
		}
	}
	return seen
}

// reachableDefs collects root and the in-loop values root transitively
// reads, stopping at header phis so the walk does not cross iterations.
func reachableDefs(l *ir.Loop, root *ir.Value) map[*ir.Value]bool {
	seen := map[*ir.Value]bool{root: true}
	stack := []*ir.Value{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v.Op == ir.OpPhi && v.Block == l.Header {
			continue
		}
		for _, a := range v.Args {
			if a.Block == nil || seen[a] || !l.Contains(a.Block) {
				continue
			}
			seen[a] = true
			stack = append(stack, a)
		}
	}
	return seen
}

// IsSupportedReduction validates the SCC-closure invariant: every user of
// an element is itself an element or lies outside the loop.
func IsSupportedReduction(f *ir.Func, l *ir.Loop, red *Reduction) bool {
	for elem := range red.Elements {
		for _, u := range f.Users(elem) {
			if l.Contains(u.Block) && !red.Elements[u] {
				return false
			}
		}
	}
	return true
}
